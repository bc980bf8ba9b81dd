package entity

import (
	"time"
)

type Favorite struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"index;not null"`
	Ticker    string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
