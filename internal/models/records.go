package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// OrderRecord is the audit row written for every order placed through this
// service. The worker reconciles OrderStatus against the delivery API until
// the order is delivered or cancelled.
type OrderRecord struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrderID        int            `gorm:"not null;uniqueIndex" json:"order_id"`
	CloudKitchenID int            `gorm:"not null;index" json:"cloud_kitchen_id"`
	SessionID      uuid.UUID      `gorm:"type:uuid;not null" json:"session_id"`
	DeliveryDate   string         `gorm:"not null" json:"delivery_date"`
	OrderStatus    string         `gorm:"not null;default:WAITING" json:"order_status"`
	ItemsCount     int            `gorm:"not null" json:"items_count"`
	Payload        []byte         `gorm:"type:json" json:"payload"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	if err := db.AutoMigrate(&OrderRecord{}); err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}
	return nil
}
