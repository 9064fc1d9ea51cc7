// Package testsupport seeds in-memory databases for package tests.
package testsupport

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	orderdomain "github.com/smallbiznis/relayplan/internal/order/domain"
	planchangedomain "github.com/smallbiznis/relayplan/internal/planchange/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dsnReplacer = strings.NewReplacer("/", "_", " ", "_", "#", "_")

// OpenDB returns a migrated in-memory SQLite database private to the test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dsnReplacer.Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&orderdomain.Relay{},
		&orderdomain.Order{},
		&planchangedomain.PlanChange{},
		&planchangedomain.RebuildRun{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Ledger writes relays and orders the way the storefront would.
type Ledger struct {
	t  *testing.T
	db *gorm.DB
}

func NewLedger(t *testing.T, db *gorm.DB) *Ledger {
	return &Ledger{t: t, db: db}
}

func (l *Ledger) Relay(id string) {
	l.t.Helper()
	relay := orderdomain.Relay{
		ID:        id,
		Name:      id + ".relay.example",
		Status:    "running",
		CreatedAt: time.Now().UTC(),
	}
	if err := l.db.Create(&relay).Error; err != nil {
		l.t.Fatalf("seed relay %s: %v", id, err)
	}
}

// PaidOrder stores a paid order of the given type at paidAt.
func (l *Ledger) PaidOrder(relayID, id string, orderType orderdomain.OrderType, amount int64, paidAt time.Time) {
	l.t.Helper()
	at := paidAt.UTC()
	l.Order(orderdomain.Order{
		ID:        id,
		RelayID:   relayID,
		Amount:    amount,
		OrderType: orderType,
		Paid:      true,
		PaidAt:    &at,
	})
}

func (l *Ledger) Order(order orderdomain.Order) {
	l.t.Helper()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if err := l.db.Create(&order).Error; err != nil {
		l.t.Fatalf("seed order %s: %v", order.ID, err)
	}
}

// PlanChanges returns the stored timeline of a relay ordered by start.
func (l *Ledger) PlanChanges(relayID string) []planchangedomain.PlanChange {
	l.t.Helper()
	var rows []planchangedomain.PlanChange
	err := l.db.Where("relay_id = ?", relayID).
		Order("started_at ASC").
		Order("order_id ASC").
		Find(&rows).Error
	if err != nil {
		l.t.Fatalf("load plan changes %s: %v", relayID, err)
	}
	return rows
}
