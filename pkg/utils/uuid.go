package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID generates a new string identifier for catalog records
func NewID() string {
	return uuid.New().String()
}

// IsUUID reports whether s parses as a UUID
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// GenerateInvoiceNo generates a display invoice number such as "INV-1A2B3C4D"
func GenerateInvoiceNo(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.New().String()[:8])
}
