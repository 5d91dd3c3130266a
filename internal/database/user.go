package database

import (
	"errors"
	"strings"
	"time"

	"vocab-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by lookups that match no row
var ErrNotFound = errors.New("record not found")

// NormalizeEmail lowercases and trims an address before storage or lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts a new account
func CreateUser(db *gorm.DB, user *models.User) error {
	user.Email = NormalizeEmail(user.Email)
	return db.Create(user).Error
}

// GetUserByID loads a user without purchase history
func GetUserByID(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByEmail looks a user up by normalized email
func GetUserByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := db.Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByResetTokenHash returns the user owning an unexpired reset token
func GetUserByResetTokenHash(db *gorm.DB, tokenHash string, now time.Time) (*models.User, error) {
	var user models.User
	err := db.Where("reset_password_token_hash = ? AND reset_password_expires_at > ?", tokenHash, now).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// LockUser re-reads a user row under a row lock; call inside a transaction
func LockUser(tx *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// SaveSubscription writes the subscription columns only if nobody else
// changed them since expectedVersion was read. It reports whether it won.
func SaveSubscription(db *gorm.DB, userID uint, sub models.Subscription, expectedVersion int64) (bool, error) {
	result := db.Model(&models.User{}).
		Where("id = ? AND subscription_ledger_version = ?", userID, expectedVersion).
		Updates(map[string]interface{}{
			"subscription_current_plan":   sub.CurrentPlan,
			"subscription_status":         sub.Status,
			"subscription_expires_at":     sub.ExpiresAt,
			"subscription_remaining_days": sub.RemainingDays,
			"subscription_ledger_version": expectedVersion + 1,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GetPurchaseHistory returns a user's purchases in the order they happened
func GetPurchaseHistory(db *gorm.DB, userID uint) ([]models.PurchaseRecord, error) {
	var records []models.PurchaseRecord
	err := db.Where("user_id = ?", userID).Order("purchase_date ASC, id ASC").Find(&records).Error
	return records, err
}

// ListPracticeItems returns the practice queue newest first
func ListPracticeItems(db *gorm.DB, userID uint) ([]models.PracticeItem, error) {
	var items []models.PracticeItem
	err := db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&items).Error
	return items, err
}

// AddPracticeItem inserts the item unless the user already saved the same term.
// It reports whether a row was created.
func AddPracticeItem(db *gorm.DB, item *models.PracticeItem) (bool, error) {
	var existing int64
	if err := db.Model(&models.PracticeItem{}).
		Where("user_id = ? AND term = ?", item.UserID, item.Term).
		Count(&existing).Error; err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(item)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RemovePracticeItem deletes one saved term
func RemovePracticeItem(db *gorm.DB, userID uint, term string) (bool, error) {
	result := db.Unscoped().Where("user_id = ? AND term = ?", userID, term).Delete(&models.PracticeItem{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClearPracticeQueue removes every saved term for a user
func ClearPracticeQueue(db *gorm.DB, userID uint) (int64, error) {
	result := db.Unscoped().Where("user_id = ?", userID).Delete(&models.PracticeItem{})
	return result.RowsAffected, result.Error
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
