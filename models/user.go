package models

import "time"

// User 日记的所有者。ID 来自外部身份（或注册时生成的 UUID）
type User struct {
	ID           string    `gorm:"primaryKey;size:191" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null;size:191" json:"email"`
	Name         string    `gorm:"column:name" json:"name"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Reflections []Reflection `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string { return "users" }
