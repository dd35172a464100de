package entity

import "time"

// CollectionRecord stores one serialized catalog collection in a SQL database
type CollectionRecord struct {
	Key       string    `gorm:"size:64;primaryKey" json:"key"`
	Data      string    `gorm:"type:text;not null" json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the CollectionRecord model
func (CollectionRecord) TableName() string {
	return "collections"
}
