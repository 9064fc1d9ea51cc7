package service

import (
	"testing"
	"time"

	orderdomain "github.com/smallbiznis/relayplan/internal/order/domain"
	planchangedomain "github.com/smallbiznis/relayplan/internal/planchange/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func paidOrder(id string, orderType orderdomain.OrderType, amount int64, paidAt time.Time) orderdomain.Order {
	at := paidAt
	return orderdomain.Order{
		ID:        id,
		RelayID:   "relay-a",
		Amount:    amount,
		OrderType: orderType,
		Paid:      true,
		PaidAt:    &at,
	}
}

func assertContiguous(t *testing.T, timeline []planchangedomain.PlanInterval) {
	t.Helper()
	open := 0
	for i, interval := range timeline {
		if interval.Ongoing() {
			open++
			assert.Equal(t, len(timeline)-1, i, "only the last interval may be open")
			continue
		}
		require.Less(t, i+1, len(timeline))
		assert.True(t, interval.EndedAt.Equal(timeline[i+1].StartedAt), "interval %d must end where %d starts", i, i+1)
		assert.False(t, timeline[i+1].StartedAt.Before(interval.StartedAt))
	}
	if len(timeline) > 0 {
		assert.Equal(t, 1, open)
	}
}

func TestComputeTimeline(t *testing.T) {
	orders := []orderdomain.Order{
		paidOrder("o-1", orderdomain.OrderTypeStandard, 100, t0),
		paidOrder("o-2", orderdomain.OrderTypePremium, 300, t0.Add(24*time.Hour)),
		paidOrder("o-3", orderdomain.OrderTypeStandard, 100, t0.Add(72*time.Hour)),
	}

	timeline := ComputeTimeline(orders)

	require.Len(t, timeline, 3)
	assertContiguous(t, timeline)
	assert.Equal(t, "standard", timeline[0].PlanType)
	assert.Equal(t, int64(300), timeline[1].AmountPaid)
	assert.Equal(t, "o-2", timeline[1].OrderID)
	assert.True(t, timeline[0].StartedAt.Equal(t0))
	assert.True(t, timeline[1].EndedAt.Equal(t0.Add(72*time.Hour)))
	assert.Nil(t, timeline[2].EndedAt)
}

func TestComputeTimelineEmpty(t *testing.T) {
	assert.Empty(t, ComputeTimeline(nil))
	assert.Empty(t, ComputeTimeline([]orderdomain.Order{}))
}

func TestComputeTimelineSingleOrderIsOngoing(t *testing.T) {
	timeline := ComputeTimeline([]orderdomain.Order{paidOrder("o-1", orderdomain.OrderTypePremium, 300, t0)})

	require.Len(t, timeline, 1)
	assert.True(t, timeline[0].Ongoing())
}

func TestComputeTimelineSortsWithoutMutatingInput(t *testing.T) {
	orders := []orderdomain.Order{
		paidOrder("o-3", orderdomain.OrderTypeStandard, 100, t0.Add(2*time.Hour)),
		paidOrder("o-1", orderdomain.OrderTypeStandard, 100, t0),
		paidOrder("o-2", orderdomain.OrderTypePremium, 300, t0.Add(time.Hour)),
	}

	timeline := ComputeTimeline(orders)

	require.Len(t, timeline, 3)
	assert.Equal(t, []string{"o-1", "o-2", "o-3"}, orderIDs(timeline))
	assert.Equal(t, "o-3", orders[0].ID)
	assertContiguous(t, timeline)
}

func TestComputeTimelineBreaksTiesByOrderID(t *testing.T) {
	orders := []orderdomain.Order{
		paidOrder("o-b", orderdomain.OrderTypePremium, 300, t0),
		paidOrder("o-a", orderdomain.OrderTypeStandard, 100, t0),
		paidOrder("o-c", orderdomain.OrderTypeStandard, 100, t0.Add(time.Hour)),
	}

	timeline := ComputeTimeline(orders)

	assert.Equal(t, []string{"o-a", "o-b", "o-c"}, orderIDs(timeline))
	assert.True(t, timeline[0].EndedAt.Equal(timeline[0].StartedAt), "tied orders yield a zero-length interval")
	assertContiguous(t, timeline)

	again := ComputeTimeline([]orderdomain.Order{orders[2], orders[0], orders[1]})
	assert.Equal(t, orderIDs(timeline), orderIDs(again))
}

func TestTimelineFromRowsIgnoresDatabaseCollation(t *testing.T) {
	tie := t0.Add(1500 * time.Millisecond)
	orders := []orderdomain.Order{
		paidOrder("a", orderdomain.OrderTypeStandard, 100, tie),
		paidOrder("B", orderdomain.OrderTypePremium, 300, tie),
		paidOrder("c", orderdomain.OrderTypeStandard, 100, tie.Add(time.Hour)),
	}
	computed := ComputeTimeline(orders)
	require.Equal(t, []string{"B", "a", "c"}, orderIDs(computed))

	// A case-insensitive collation returns the tied rows as a, B.
	rows := make([]planchangedomain.PlanChange, 0, len(computed))
	for _, i := range []int{1, 0, 2} {
		interval := computed[i]
		rows = append(rows, planchangedomain.PlanChange{
			RelayID:    "relay-a",
			PlanType:   interval.PlanType,
			AmountPaid: interval.AmountPaid,
			StartedAt:  interval.StartedAt,
			EndedAt:    interval.EndedAt,
			OrderID:    interval.OrderID,
		})
	}

	stored := timelineFromRows(rows)
	assert.Equal(t, []string{"B", "a", "c"}, orderIDs(stored))
	assert.False(t, timelineChanged(stored, computed))
}

func TestTimelineChanged(t *testing.T) {
	end := t0.Add(time.Hour)
	stored := []planchangedomain.PlanInterval{
		{PlanType: "standard", AmountPaid: 100, StartedAt: t0, EndedAt: &end, OrderID: "o-1"},
		{PlanType: "premium", AmountPaid: 300, StartedAt: end, OrderID: "o-2"},
	}
	same := []planchangedomain.PlanInterval{
		{PlanType: "standard", AmountPaid: 100, StartedAt: t0.In(time.FixedZone("x", 3600)), EndedAt: &end, OrderID: "o-1"},
		{PlanType: "premium", AmountPaid: 300, StartedAt: end, OrderID: "o-2"},
	}

	assert.False(t, timelineChanged(stored, same))
	assert.True(t, timelineChanged(stored, same[:1]))
	assert.True(t, timelineChanged(stored, []planchangedomain.PlanInterval{same[0], {PlanType: "premium", AmountPaid: 300, StartedAt: end, EndedAt: &end, OrderID: "o-2"}}))
	assert.False(t, timelineChanged(nil, nil))
}

func orderIDs(timeline []planchangedomain.PlanInterval) []string {
	ids := make([]string, len(timeline))
	for i, interval := range timeline {
		ids[i] = interval.OrderID
	}
	return ids
}
