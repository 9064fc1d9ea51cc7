package service

import (
	"sort"
	"time"

	orderdomain "github.com/smallbiznis/relayplan/internal/order/domain"
	planchangedomain "github.com/smallbiznis/relayplan/internal/planchange/domain"
)

// ComputeTimeline turns qualifying orders into contiguous plan intervals. The
// input is not modified. Orders without a paid_at are ignored.
func ComputeTimeline(orders []orderdomain.Order) []planchangedomain.PlanInterval {
	sorted := make([]orderdomain.Order, 0, len(orders))
	for _, o := range orders {
		if o.PaidAt == nil {
			continue
		}
		sorted = append(sorted, o)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return startsBefore(*sorted[i].PaidAt, sorted[i].ID, *sorted[j].PaidAt, sorted[j].ID)
	})

	intervals := make([]planchangedomain.PlanInterval, len(sorted))
	for i, o := range sorted {
		interval := planchangedomain.PlanInterval{
			PlanType:   string(o.OrderType),
			AmountPaid: o.Amount,
			StartedAt:  o.PaidAt.UTC(),
			OrderID:    o.ID,
		}
		if i+1 < len(sorted) {
			end := sorted[i+1].PaidAt.UTC()
			interval.EndedAt = &end
		}
		intervals[i] = interval
	}
	return intervals
}

// timelineFromRows orders stored rows like ComputeTimeline, independent of the
// collation the database sorted them with.
func timelineFromRows(rows []planchangedomain.PlanChange) []planchangedomain.PlanInterval {
	out := make([]planchangedomain.PlanInterval, len(rows))
	for i, row := range rows {
		out[i] = row.Interval()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return startsBefore(out[i].StartedAt, out[i].OrderID, out[j].StartedAt, out[j].OrderID)
	})
	return out
}

// startsBefore orders by time, then by order id in byte order.
func startsBefore(at time.Time, id string, otherAt time.Time, otherID string) bool {
	if !at.Equal(otherAt) {
		return at.Before(otherAt)
	}
	return id < otherID
}

// timelineChanged reports whether the stored intervals differ from the computed ones.
func timelineChanged(existing, computed []planchangedomain.PlanInterval) bool {
	if len(existing) != len(computed) {
		return true
	}
	for i := range existing {
		if !existing[i].Equal(computed[i]) {
			return true
		}
	}
	return false
}
