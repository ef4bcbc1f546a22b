package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 基础模型
type BaseModel struct {
	ID        int64          `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BaseModelWithUser 带用户信息的基础模型
type BaseModelWithUser struct {
	BaseModel
	CreatedBy int64 `json:"createdBy"`
	UpdatedBy int64 `json:"updatedBy"`
}
