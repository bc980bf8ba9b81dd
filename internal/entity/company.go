package entity

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Company struct {
	ID          uint           `gorm:"primaryKey"`
	Ticker      string         `gorm:"uniqueIndex;not null"`
	CompanyName string         `gorm:"not null"`
	KoreanName  string         `gorm:"index"`
	Sector      string         ``
	Industry    string         ``
	MarketCap   float64        ``
	Website     string         ``
	Description string         ``
	Profile     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

type CompanyRelationship struct {
	ID               uint      `gorm:"primaryKey"`
	SourceTicker     string    `gorm:"index;not null"`
	TargetTicker     string    `gorm:"index;not null"`
	SourceCompany    string    ``
	TargetCompany    string    ``
	RelationshipType string    ``
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}
