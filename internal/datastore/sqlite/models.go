package sqlite

import "database/sql"

// RecordModel is one flat record. Data holds the JSON object without the
// generated identifier, which is the row id.
type RecordModel struct {
	ID          int64  `gorm:"primaryKey"`
	Type        string `gorm:"not null;index:idx_records_type"`
	Root        string `gorm:"not null"`
	SurrogateID sql.NullString
	Data        string `gorm:"not null"`
}

func (RecordModel) TableName() string { return "records" }
