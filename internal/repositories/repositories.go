package repositories

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/cloudkitchen/services/ordering/internal/models"
)

// OrderRecordRepository provides access to the placed-order audit trail.
type OrderRecordRepository struct {
	db *gorm.DB
}

// NewOrderRecordRepository creates a new repository
func NewOrderRecordRepository(db *gorm.DB) *OrderRecordRepository {
	return &OrderRecordRepository{db: db}
}

// Create records a newly placed order.
func (r *OrderRecordRepository) Create(ctx context.Context, record *models.OrderRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetByOrderID gets a record by the platform's order id.
func (r *OrderRecordRepository) GetByOrderID(ctx context.Context, orderID int) (*models.OrderRecord, error) {
	var record models.OrderRecord
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&record).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get order record by order id")
	}
	return &record, nil
}

// ListUnsettled lists records whose status is neither delivered nor
// cancelled, for worker reconciliation.
func (r *OrderRecordRepository) ListUnsettled(ctx context.Context, limit int) ([]models.OrderRecord, error) {
	var records []models.OrderRecord
	err := r.db.WithContext(ctx).
		Where("order_status NOT IN ?", []string{models.OrderStatusDelivered, models.OrderStatusCancelled}).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list unsettled order records")
	}
	return records, nil
}

// UpdateStatus sets the status of one order record.
func (r *OrderRecordRepository) UpdateStatus(ctx context.Context, orderID int, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderRecord{}).
		Where("order_id = ?", orderID).
		Update("order_status", status)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update order record status")
	}
	if result.RowsAffected == 0 {
		return errors.New("no order record updated")
	}
	return nil
}
