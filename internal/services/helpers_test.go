package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"vocab-api/internal/database"
	"vocab-api/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testSeq int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("%s_%d", t.Name(), atomic.AddInt64(&testSeq, 1))
	db, err := database.Connect("", database.MemoryDSN(name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Test User", Email: email, PasswordHash: "x"}
	require.NoError(t, database.CreateUser(db, user))
	return user
}

func seedOrder(t *testing.T, db *gorm.DB, userID uint, id, plan string, amount int, status string) *models.Order {
	t.Helper()
	order := &models.Order{UserID: userID, MerchantTransactionID: id, Plan: plan, Amount: amount, Status: status}
	require.NoError(t, database.CreateOrder(db, order))
	return order
}

// fakeClock is a settable time source
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
