package models

// Row is the shape of every key/value table in the durable store. Each
// setting kind, access list and blob collection lives in its own table
// keyed by a chat or user id.
type Row struct {
	ID    int64  `gorm:"primaryKey;autoIncrement:false"`
	Value string `gorm:"type:text"`
}
