package database

import (
	"time"

	"vocab-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateOrder inserts a new payment attempt
func CreateOrder(db *gorm.DB, order *models.Order) error {
	return db.Create(order).Error
}

// GetOrderByMerchantID looks an order up by its merchant transaction id
func GetOrderByMerchantID(db *gorm.DB, merchantTransactionID string) (*models.Order, error) {
	var order models.Order
	if err := db.Where("merchant_transaction_id = ?", merchantTransactionID).First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// CountRecentOrders counts the orders a user created since the given time
func CountRecentOrders(db *gorm.DB, userID uint, since time.Time) (int64, error) {
	var count int64
	err := db.Model(&models.Order{}).
		Where("user_id = ? AND created_at > ?", userID, since).
		Count(&count).Error
	return count, err
}

// TransitionOrder moves an order forward only if it is still in one of the
// expected states. It reports whether this call performed the transition.
func TransitionOrder(db *gorm.DB, merchantTransactionID string, from []string, to string, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := db.Model(&models.Order{}).
		Where("merchant_transaction_id = ? AND status IN ?", merchantTransactionID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RecordWebhookEvent inserts the event unless the same event type was
// already recorded for the order. It reports whether the row is new.
func RecordWebhookEvent(db *gorm.DB, event *models.WebhookEvent) (bool, error) {
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "event_type"}},
		DoNothing: true,
	}).Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// LockWebhookEvent re-reads a recorded event under a row lock; call inside a transaction
func LockWebhookEvent(tx *gorm.DB, orderID uint, eventType string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND event_type = ?", orderID, eventType).
		First(&event).Error
	if err != nil {
		return nil, translate(err)
	}
	return &event, nil
}

// ReplayWebhookEvent overwrites an unprocessed event with a redelivery of it
func ReplayWebhookEvent(tx *gorm.DB, event *models.WebhookEvent) error {
	return tx.Model(&models.WebhookEvent{}).Where("id = ?", event.ID).
		Updates(map[string]interface{}{
			"processed":    event.Processed,
			"processed_at": event.ProcessedAt,
			"payload":      event.Payload,
		}).Error
}

// ListWebhookEvents returns the event log of an order
func ListWebhookEvents(db *gorm.DB, orderID uint) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := db.Where("order_id = ?", orderID).Order("id ASC").Find(&events).Error
	return events, err
}

// ListStalePendingOrders returns orders still awaiting a gateway outcome
// that were created inside [createdAfter, createdBefore]
func ListStalePendingOrders(db *gorm.DB, createdAfter, createdBefore time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := db.Where("status IN ? AND created_at BETWEEN ? AND ?",
		[]string{models.OrderInitiated, models.OrderPending}, createdAfter, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
