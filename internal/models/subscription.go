package models

import (
	"math"
	"time"
)

// Subscription status values
const (
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
	SubscriptionExpired  = "expired"
)

// Day is the unit entitlement is sold in
const Day = 24 * time.Hour

// Subscription is the entitlement window embedded in a user row.
// ExpiresAt is the single source of truth; Status and RemainingDays are caches
// recomputed on read and on every ledger mutation.
type Subscription struct {
	CurrentPlan   string     `json:"current_plan" gorm:"size:20"`
	Status        string     `json:"status" gorm:"size:20;default:'inactive';index"`
	ExpiresAt     *time.Time `json:"expires_at" gorm:"index"`
	RemainingDays int        `json:"remaining_days" gorm:"default:0"`
	LedgerVersion int64      `json:"-" gorm:"default:0;not null"` // bumped by every write, guards lazy refresh
}

// RemainingDaysUntil returns ceil((expiresAt - now) / day) clamped to zero
func RemainingDaysUntil(expiresAt *time.Time, now time.Time) int {
	if expiresAt == nil || !expiresAt.After(now) {
		return 0
	}
	return int(math.Ceil(float64(expiresAt.Sub(now)) / float64(Day)))
}

// StatusAt derives the status from the expiry
func (s Subscription) StatusAt(now time.Time) string {
	if s.ExpiresAt != nil && s.ExpiresAt.After(now) {
		return SubscriptionActive
	}
	if s.CurrentPlan != "" || s.ExpiresAt != nil {
		return SubscriptionExpired
	}
	return SubscriptionInactive
}

// IsActive reports whether the entitlement covers now
func (s Subscription) IsActive(now time.Time) bool {
	return s.StatusAt(now) == SubscriptionActive
}

// Refresh recomputes the cached fields and reports whether anything changed
func (s *Subscription) Refresh(now time.Time) bool {
	status := s.StatusAt(now)
	remaining := RemainingDaysUntil(s.ExpiresAt, now)
	if status == s.Status && remaining == s.RemainingDays {
		return false
	}
	s.Status = status
	s.RemainingDays = remaining
	return true
}
