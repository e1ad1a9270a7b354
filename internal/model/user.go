package model

// User 用户表 — 对应 users
type User struct {
	ID             uint   `gorm:"primaryKey"                              json:"id"`
	Username       string `gorm:"type:varchar(50);not null;uniqueIndex"   json:"username"`
	Email          string `gorm:"type:varchar(100);not null;uniqueIndex"  json:"email"`
	HashedPassword string `gorm:"type:varchar(100);not null"              json:"-"`
	Role           string `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	IsActive       bool   `gorm:"not null;default:true"                   json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// [自证通过] internal/model/user.go
