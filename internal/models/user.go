package models

import (
	"time"
)

// User is an account holder. The subscription lives on the same row so a
// single row lock covers every entitlement mutation.
type User struct {
	BaseModel
	Name         string `json:"name" gorm:"size:100;not null"`
	Email        string `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"size:100;not null"`

	ResetPasswordTokenHash string     `json:"-" gorm:"size:64;index"`
	ResetPasswordExpiresAt *time.Time `json:"-"`

	Subscription    Subscription     `json:"subscription" gorm:"embedded;embeddedPrefix:subscription_"`
	PurchaseHistory []PurchaseRecord `json:"purchase_history,omitempty" gorm:"foreignKey:UserID"`
}

// PurchaseRecord is an append-only audit row written by the entitlement ledger
type PurchaseRecord struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	UserID                uint      `json:"-" gorm:"not null;index"`
	MerchantTransactionID string    `json:"merchant_transaction_id" gorm:"size:100;uniqueIndex;not null"`
	Plan                  string    `json:"plan" gorm:"size:20;not null"`
	PlanName              string    `json:"plan_name" gorm:"size:50"`
	Price                 int       `json:"price" gorm:"not null"` // rupees
	DaysAdded             int       `json:"days_added" gorm:"not null"`
	PurchaseDate          time.Time `json:"purchase_date" gorm:"not null"`
	ExpiresAt             time.Time `json:"expires_at"` // expiry right after this purchase
}

// PracticeItem is a word or phrase a user saved for later review
type PracticeItem struct {
	BaseModel
	UserID     uint   `json:"-" gorm:"not null;uniqueIndex:idx_practice_user_term"`
	Term       string `json:"term" gorm:"size:200;not null;uniqueIndex:idx_practice_user_term"`
	Definition string `json:"definition" gorm:"type:text"`
	Source     string `json:"source" gorm:"size:20"` // ows, iph, synonyms, antonyms, wotd
}
