package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/relayplan/internal/clock"
	orderdomain "github.com/smallbiznis/relayplan/internal/order/domain"
	orderrepository "github.com/smallbiznis/relayplan/internal/order/repository"
	planchangedomain "github.com/smallbiznis/relayplan/internal/planchange/domain"
	"github.com/smallbiznis/relayplan/internal/planchange/mocks"
	planchangerepository "github.com/smallbiznis/relayplan/internal/planchange/repository"
	"github.com/smallbiznis/relayplan/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var errInsertFailed = errors.New("insert failed")

func newTestService(t *testing.T, db *gorm.DB, repo planchangedomain.Repository) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	if repo == nil {
		repo = planchangerepository.Provide()
	}
	return &Service{
		db:         db,
		log:        zaptest.NewLogger(t),
		genID:      node,
		clock:      clock.NewFakeClock(t0.Add(365 * 24 * time.Hour)),
		repo:       repo,
		orderRepo:  orderrepository.Provide(),
		orderTypes: orderdomain.OrderTypes{orderdomain.OrderTypeStandard, orderdomain.OrderTypePremium},
		tracer:     otel.Tracer(tracerName),
	}
}

// failingInsertRepo fails the n-th insert for one relay.
type failingInsertRepo struct {
	planchangedomain.Repository
	relayID string
	failAt  int
	calls   int
}

func (r *failingInsertRepo) Insert(ctx context.Context, db *gorm.DB, change *planchangedomain.PlanChange) error {
	if change.RelayID == r.relayID {
		r.calls++
		if r.calls >= r.failAt {
			return errInsertFailed
		}
	}
	return r.Repository.Insert(ctx, db, change)
}

// cancelAfterListRepo cancels the run right after the relays are enumerated.
type cancelAfterListRepo struct {
	orderdomain.Repository
	cancel context.CancelFunc
}

func (r *cancelAfterListRepo) ListRelayIDsWithQualifyingOrders(ctx context.Context, db *gorm.DB, types orderdomain.OrderTypes) ([]string, error) {
	ids, err := r.Repository.ListRelayIDsWithQualifyingOrders(ctx, db, types)
	r.cancel()
	return ids, err
}

func seedThreeOrders(ledger *testsupport.Ledger, relayID string) {
	ledger.Relay(relayID)
	ledger.PaidOrder(relayID, relayID+"-o1", orderdomain.OrderTypeStandard, 100, t0)
	ledger.PaidOrder(relayID, relayID+"-o2", orderdomain.OrderTypePremium, 300, t0.Add(24*time.Hour))
	ledger.PaidOrder(relayID, relayID+"-o3", orderdomain.OrderTypeStandard, 100, t0.Add(72*time.Hour))
}

func seedStale(t *testing.T, db *gorm.DB, relayID string, orderIDs ...string) {
	t.Helper()
	for i, orderID := range orderIDs {
		row := planchangedomain.PlanChange{
			ID:         snowflake.ID(1000 + i),
			RelayID:    relayID,
			PlanType:   "standard",
			AmountPaid: 1,
			StartedAt:  t0.Add(-time.Duration(len(orderIDs)-i) * time.Hour),
			OrderID:    orderID,
			CreatedAt:  t0,
		}
		require.NoError(t, db.Create(&row).Error)
	}
}

func intervalsOf(rows []planchangedomain.PlanChange) []planchangedomain.PlanInterval {
	return timelineFromRows(rows)
}

func TestRebuildAppliesTimeline(t *testing.T) {
	db := testsupport.OpenDB(t)
	ledger := testsupport.NewLedger(t, db)
	seedThreeOrders(ledger, "relay-a")
	seedStale(t, db, "relay-a", "stale-1", "stale-2")
	svc := newTestService(t, db, nil)

	report, err := svc.Rebuild(context.Background(), planchangedomain.RebuildRequest{RelayID: "relay-a"})
	require.NoError(t, err)

	assert.Equal(t, planchangedomain.RebuildStatusApplied, report.Status)
	assert.Equal(t, int64(2), report.Deleted)
	assert.Equal(t, 3, report.Created)
	assert.True(t, report.Changed)
	assert.Len(t, report.Existing, 2)

	rows := ledger.PlanChanges("relay-a")
	require.Len(t, rows, 3)
	stored := intervalsOf(rows)
	assertContiguous(t, stored)
	assert.Equal(t, []string{"relay-a-o1", "relay-a-o2", "relay-a-o3"}, orderIDs(stored))
	assert.Equal(t, "premium", rows[1].PlanType)
	assert.Equal(t, int64(300), rows[1].AmountPaid)
	assert.True(t, rows[0].EndedAt.Equal(t0.Add(24*time.Hour)))
	assert.True(t, rows[1].EndedAt.Equal(t0.Add(72*time.Hour)))
	assert.Nil(t, rows[2].EndedAt)
	assert.False(t, timelineChanged(report.Timeline, stored))
}

func TestRebuildIsIdempotent(t *testing.T) {
	db := testsupport.OpenDB(t)
	ledger := testsupport.NewLedger(t, db)
	seedThreeOrders(ledger, "relay-a")
	svc := newTestService(t, db, nil)
	req := planchangedomain.RebuildRequest{RelayID: "relay-a"}

	first, err := svc.Rebuild(context.Background(), req)
	require.NoError(t, err)
	firstRows := intervalsOf(ledger.PlanChanges("relay-a"))

	second, err := svc.Rebuild(context.Background(), req)
	require.NoError(t, err)
	secondRows := intervalsOf(ledger.PlanChanges("relay-a"))

	assert.True(t, first.Changed)
	assert.False(t, second.Changed)
	assert.Equal(t, int64(3), second.Deleted)
	assert.Equal(t, 3, second.Created)
	assert.False(t, timelineChanged(firstRows, secondRows))
}

func TestRebuildDryRunLeavesStoreUntouched(t *testing.T) {
	db := testsupport.OpenDB(t)
	ledger := testsupport.NewLedger(t, db)
	seedThreeOrders(ledger, "relay-a")
	seedStale(t, db, "relay-a", "stale-1")
	before := ledger.PlanChanges("relay-a")
	svc := newTestService(t, db, nil)

	report, err := svc.Rebuild(context.Background(), planchangedomain.RebuildRequest{RelayID: "relay-a", DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, planchangedomain.RebuildStatusDryRun, report.Status)
	assert.True(t, report.DryRun)
	assert.True(t, report.Changed)
	assert.Zero(t, report.Deleted)
	assert.Zero(t, report.Created)
	assert.Len(t, report.Existing, 1)
	assert.Len(t, report.Timeline, 3)
	assertContiguous(t, report.Timeline)

	after := ledger.PlanChanges("relay-a")
	assert.Equal(t, len(before), len(after))
	assert.False(t, timelineChanged(intervalsOf(before), intervalsOf(after)))
}

func TestRebuildUnknownRelay(t *testing.T) {
	db := testsupport.OpenDB(t)
	ledger := testsupport.NewLedger(t, db)
	ledger.PaidOrder("relay-ghost", "o-1", orderdomain.OrderTypeStandard, 100, t0)
	svc := newTestService(t, db, nil)

	report, err := svc.Rebuild(context.Background(), planchangedomain.RebuildRequest{RelayID: "relay-ghost"})
	require.NoError(t, err)

	assert.Equal(t, planchangedomain.RebuildStatusNotFound, report.Status)
	assert.Empty(t, report.Timeline)
	assert.Empty(t, ledger.PlanChanges("relay-ghost"))
}

func TestRebuildRejectsBlankRelay(t *testing.T) {
	svc := newTestService(t, testsupport.OpenDB(t), nil)

	_, err := svc.Rebuild(context.Background(), planchangedomain.RebuildRequest{RelayID: "  "})
	assert.ErrorIs(t, err, orderdomain.ErrInvalidRelay)
}

func TestRebuildWithoutOrdersClearsTimeline(t *testing.T) {
	db := testsupport.OpenDB(t)
	ledger := testsupport.NewLedger(t, db)
	ledger.Relay("relay-a")
	ledger.Order(orderdomain.Order{ID: "o-unpaid", RelayID: "relay-a", Amount: 100, OrderType: orderdomain.OrderTypeStandard})
	seedStale(t, db, "relay-a", "stale-1", "stale-2")
	svc := newTestService(t, db, nil)

	report, err := svc.Rebuild(context.Background(), planchangedomain.RebuildRequest{RelayID: "relay-a"})
	require.NoError(t, err)

	assert.Equal(t, planchangedomain.RebuildStatusApplied, report.Status)
	assert.Equal(t, int64(2), report.Deleted)
	assert.Zero(t, report.Created)
	assert.Empty(t, report.Timeline)
	assert.Empty(t, ledger.PlanChanges("relay-a"))
}

func TestRebuildRollsBackOnInsertFailure(t *testing.T) {
	db := testsupport.OpenDB(t)
	ledger := testsupport.NewLedger(t, db)
	seedThreeOrders(ledger, "relay-a")
	seedStale(t, db, "relay-a", "stale-1", "stale-2")
	before := intervalsOf(ledger.PlanChanges("relay-a"))
	repo := &failingInsertRepo{Repository: planchangerepository.Provide(), relayID: "relay-a", failAt: 2}
	svc := newTestService(t, db, repo)

	_, err := svc.Rebuild(context.Background(), planchangedomain.RebuildRequest{RelayID: "relay-a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errInsertFailed)
	assert.Contains(t, err.Error(), "relay-a")

	after := intervalsOf(ledger.PlanChanges("relay-a"))
	assert.False(t, timelineChanged(before, after), "failed rebuild must leave the previous timeline in place")
}

func TestRebuildDeleteFailureSkipsInserts(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := testsupport.OpenDB(t)
	ledger := testsupport.NewLedger(t, db)
	seedThreeOrders(ledger, "relay-a")

	deleteErr := errors.New("delete failed")
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().ListByRelay(gomock.Any(), gomock.Any(), "relay-a").Return(nil, nil)
	repo.EXPECT().DeleteByRelay(gomock.Any(), gomock.Any(), "relay-a").Return(int64(0), deleteErr)
	repo.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	repo.EXPECT().CountByRelay(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	svc := newTestService(t, db, repo)

	_, err := svc.Rebuild(context.Background(), planchangedomain.RebuildRequest{RelayID: "relay-a"})
	assert.ErrorIs(t, err, deleteErr)
}

func TestRebuildVerificationMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := testsupport.OpenDB(t)
	ledger := testsupport.NewLedger(t, db)
	seedThreeOrders(ledger, "relay-a")

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().ListByRelay(gomock.Any(), gomock.Any(), "relay-a").Return(nil, nil)
	repo.EXPECT().DeleteByRelay(gomock.Any(), gomock.Any(), "relay-a").Return(int64(0), nil)
	repo.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)
	repo.EXPECT().CountByRelay(gomock.Any(), gomock.Any(), "relay-a").Return(int64(2), nil)
	svc := newTestService(t, db, repo)

	_, err := svc.Rebuild(context.Background(), planchangedomain.RebuildRequest{RelayID: "relay-a"})
	assert.ErrorIs(t, err, planchangedomain.ErrVerificationFailed)
}

func TestRebuildAllIsolatesFailures(t *testing.T) {
	db := testsupport.OpenDB(t)
	ledger := testsupport.NewLedger(t, db)
	seedThreeOrders(ledger, "relay-a")
	seedThreeOrders(ledger, "relay-b")
	seedThreeOrders(ledger, "relay-c")
	ledger.PaidOrder("relay-ghost", "ghost-o1", orderdomain.OrderTypeStandard, 100, t0)
	seedStale(t, db, "relay-b", "stale-b")
	repo := &failingInsertRepo{Repository: planchangerepository.Provide(), relayID: "relay-b", failAt: 1}
	svc := newTestService(t, db, repo)

	batch, err := svc.RebuildAll(context.Background(), planchangedomain.RebuildAllRequest{})
	require.NoError(t, err)

	assert.Equal(t, 4, batch.Total)
	assert.Equal(t, 2, batch.Processed)
	assert.Equal(t, 1, batch.Skipped)
	assert.Equal(t, 1, batch.Errored)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, "relay-b", batch.Errors[0].RelayID)
	assert.Len(t, batch.Reports, 3)

	assert.Len(t, ledger.PlanChanges("relay-a"), 3)
	assert.Len(t, ledger.PlanChanges("relay-c"), 3)
	staleB := ledger.PlanChanges("relay-b")
	require.Len(t, staleB, 1)
	assert.Equal(t, "stale-b", staleB[0].OrderID)
}

func TestRebuildAllDryRun(t *testing.T) {
	db := testsupport.OpenDB(t)
	ledger := testsupport.NewLedger(t, db)
	seedThreeOrders(ledger, "relay-a")
	seedThreeOrders(ledger, "relay-b")
	svc := newTestService(t, db, nil)

	batch, err := svc.RebuildAll(context.Background(), planchangedomain.RebuildAllRequest{DryRun: true})
	require.NoError(t, err)

	assert.True(t, batch.DryRun)
	assert.Equal(t, 2, batch.Processed)
	assert.Equal(t, 2, batch.Changed)
	for _, report := range batch.Reports {
		assert.Equal(t, planchangedomain.RebuildStatusDryRun, report.Status)
	}
	assert.Empty(t, ledger.PlanChanges("relay-a"))
	assert.Empty(t, ledger.PlanChanges("relay-b"))
}

func TestRebuildAllHonoursCancellation(t *testing.T) {
	db := testsupport.OpenDB(t)
	ledger := testsupport.NewLedger(t, db)
	seedThreeOrders(ledger, "relay-a")
	seedThreeOrders(ledger, "relay-b")
	svc := newTestService(t, db, nil)
	svc.throttle = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.orderRepo = &cancelAfterListRepo{Repository: svc.orderRepo, cancel: cancel}

	batch, err := svc.RebuildAll(ctx, planchangedomain.RebuildAllRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, batch.Total)
	assert.Equal(t, 1, batch.Processed+batch.Errored, "the batch stops at the first pause")
	assert.Empty(t, ledger.PlanChanges("relay-b"))
}

func TestRebuildAllEnumerationFailure(t *testing.T) {
	svc := newTestService(t, testsupport.OpenDB(t), nil)
	svc.orderTypes = nil

	_, err := svc.RebuildAll(context.Background(), planchangedomain.RebuildAllRequest{})
	assert.ErrorIs(t, err, orderdomain.ErrNoOrderTypes)
}
