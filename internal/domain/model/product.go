package model

import (
	"time"

	"gorm.io/gorm"
)

// 商品（衣料品）
// Sizes は選択可能サイズ（S/M/L など）をJSONで保存する。
type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Brand       string         `gorm:"type:varchar(255);not null" json:"brand"`
	Description string         `gorm:"type:text" json:"description"`
	Price       int64          `gorm:"not null" json:"price"`
	ImageURL    string         `gorm:"type:text" json:"image"`
	Slug        string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	CategoryID  int64          `gorm:"not null;index" json:"category_id"`
	Sizes       []string       `gorm:"serializer:json" json:"sizes"`
	Available   bool           `gorm:"not null;default:false" json:"available"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
