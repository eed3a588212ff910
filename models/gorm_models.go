// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormGameRecord 归档对局表
type GormGameRecord struct {
	gorm.Model
	GameID   string    `gorm:"uniqueIndex;not null"`
	RoomCode string    `gorm:"index"`
	Status   string    `gorm:"not null"`
	Winner   string
	Snapshot []byte    `gorm:"not null"`
	EndedAt  time.Time `gorm:"index"`
}

// TableName keeps the table name shared with the raw SQL store.
func (GormGameRecord) TableName() string {
	return "game_records"
}

// ToRecord converts the row into the storage-agnostic record.
func (r *GormGameRecord) ToRecord() GameRecord {
	return GameRecord{
		GameID:    r.GameID,
		RoomCode:  r.RoomCode,
		Status:    r.Status,
		Winner:    r.Winner,
		Snapshot:  r.Snapshot,
		EndedAt:   r.EndedAt,
		CreatedAt: r.CreatedAt,
	}
}
