package models

import "time"

// Student adalah identitas yang terdaftar. Satu nama, satu encoding wajah.
type Student struct {
	Id        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Encoding  []byte    `gorm:"not null" json:"-"` // float32 little-endian, lihat helper.EncodeDescriptor
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Student) TableName() string {
	return "students"
}
