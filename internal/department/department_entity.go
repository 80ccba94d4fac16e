package department

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Department groups sectors under one coordinator.
type Department struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name          string         `gorm:"size:255;not null"`
	CoordinatorID *uuid.UUID     `gorm:"type:uuid;index"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

// Sector is the unit a request is filed under. Its name is what requests
// store in their unit column.
type Sector struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name         string         `gorm:"size:255;not null;uniqueIndex"`
	DepartmentID uuid.UUID      `gorm:"type:uuid;not null;index"`
	ManagerID    *uuid.UUID     `gorm:"type:uuid;index"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}
