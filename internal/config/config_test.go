package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "bolt")
	t.Setenv("SESSION_TTL_MINUTES", "5")

	cfg := Load()

	assert.Equal(t, "bolt", cfg.Storage.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "pharmacy-invoice", cfg.App.Name)
	assert.Equal(t, "none", cfg.Printer.Type)
	assert.Equal(t, 32, cfg.Printer.CharWidth)
	assert.False(t, cfg.Seed.Demo)
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", Name: "pharmacy", User: "u", Password: "p", SSLMode: "disable", Timezone: "UTC"}
	assert.Equal(t, "host=db user=u password=p dbname=pharmacy port=5432 sslmode=disable TimeZone=UTC", db.DSN())
}
