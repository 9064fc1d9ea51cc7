// Package domain contains the read models of the relay order ledger.
package domain

import (
	"strings"
	"time"
)

// OrderType is the plan tier an order pays for.
type OrderType string

const (
	OrderTypeStandard OrderType = "standard"
	OrderTypePremium  OrderType = "premium"
)

// Relay is a hosted relay registered by the storefront.
type Relay struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Name      string    `gorm:"type:text;not null"`
	Status    string    `gorm:"type:varchar(32);not null;default:'provisioned'"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (Relay) TableName() string { return "relays" }

// Order is one payment attempt for a relay subscription. Orders are owned by the
// storefront and never written here.
type Order struct {
	ID        string     `gorm:"primaryKey;type:varchar(64)"`
	RelayID   string     `gorm:"type:varchar(64);not null;index"`
	Amount    int64      `gorm:"not null"`
	OrderType OrderType  `gorm:"type:varchar(32);not null"`
	Paid      bool       `gorm:"not null;default:false"`
	PaidAt    *time.Time `gorm:"index"`
	CreatedAt time.Time  `gorm:"not null"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

// Qualifies reports whether the order takes part in plan reconciliation.
func (o Order) Qualifies(types OrderTypes) bool {
	return o.Paid && o.PaidAt != nil && types.Contains(o.OrderType)
}

// OrderTypes is the recognized set of plan order types.
type OrderTypes []OrderType

// ParseOrderTypes normalizes configured type names.
func ParseOrderTypes(raw []string) OrderTypes {
	out := make(OrderTypes, 0, len(raw))
	for _, r := range raw {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		t := OrderType(r)
		if out.Contains(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (ts OrderTypes) Contains(t OrderType) bool {
	for _, candidate := range ts {
		if candidate == t {
			return true
		}
	}
	return false
}

func (ts OrderTypes) Strings() []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}
