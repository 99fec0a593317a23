package checkout

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/bazaar-checkout/internal/domain/cart"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/gateway"
	"github.com/xenking/bazaar-checkout/internal/session"
)

// --- Mock implementations ---

type mockStore struct {
	mu     sync.Mutex
	drafts map[string]*order.Draft
	carts  map[string][]cart.Line
}

func newMockStore() *mockStore {
	return &mockStore{
		drafts: make(map[string]*order.Draft),
		carts:  make(map[string][]cart.Line),
	}
}

func (m *mockStore) GetCart(_ context.Context, sessionID string) ([]cart.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.carts[sessionID]
	if !ok {
		return nil, session.ErrNoCart
	}
	return lines, nil
}

func (m *mockStore) SetCart(_ context.Context, sessionID string, lines []cart.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionID] = lines
	return nil
}

func (m *mockStore) ClearCart(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}

func (m *mockStore) SaveDraft(_ context.Context, sessionID string, draft *order.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[sessionID] = draft
	return nil
}

func (m *mockStore) LoadDraft(_ context.Context, sessionID string) (*order.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[sessionID]
	if !ok {
		return nil, session.ErrNoDraft
	}
	return d, nil
}

func (m *mockStore) ClearDraft(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, sessionID)
	return nil
}

func (m *mockStore) hasDraft(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.drafts[sessionID]
	return ok
}

func (m *mockStore) hasCart(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.carts[sessionID]
	return ok
}

type mockOrderRepo struct {
	mu          sync.Mutex
	createCalls int
	created     []*order.Order
	createErr   error
	byTxn       map[string]*order.Order
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, o)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, _ string) (*order.Order, error) {
	return nil, errors.New("not implemented")
}

func (m *mockOrderRepo) GetByTransactionID(_ context.Context, txn string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byTxn[txn]
	if !ok {
		return nil, errors.New("not found")
	}
	return o, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, _ string) ([]order.Order, error) {
	return nil, nil
}

type mockGateway struct {
	mu           sync.Mutex
	intentCalls  int
	confirmCalls int

	intentErr  error
	confirmErr error
	status     string
	txnID      string

	confirmDelay time.Duration
}

func (m *mockGateway) CreateIntent(_ context.Context, _ int64) (*gateway.Intent, error) {
	m.mu.Lock()
	m.intentCalls++
	m.mu.Unlock()
	if m.intentErr != nil {
		return nil, m.intentErr
	}
	return &gateway.Intent{ClientSecret: "cs_test"}, nil
}

func (m *mockGateway) ConfirmIntent(ctx context.Context, _ string, _ gateway.Card) (*gateway.Confirmation, error) {
	m.mu.Lock()
	m.confirmCalls++
	m.mu.Unlock()

	if m.confirmDelay > 0 {
		select {
		case <-time.After(m.confirmDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.confirmErr != nil {
		return nil, m.confirmErr
	}

	status := m.status
	if status == "" {
		status = gateway.StatusSucceeded
	}
	txn := m.txnID
	if txn == "" {
		txn = "txn_123"
	}
	return &gateway.Confirmation{TransactionID: txn, Status: status}, nil
}

// --- Helpers ---

func testCard() *gateway.Card {
	return &gateway.Card{Number: "4242424242424242", ExpMonth: "12", ExpYear: "2030", CVC: "123"}
}

func seedDraft(t *testing.T, store *mockStore, sessionID string) *order.Draft {
	t.Helper()
	draft := &order.Draft{
		UserID: "u1",
		Items: []cart.Line{
			{ProductID: "p1", Name: "Widget", Quantity: 2, UnitPrice: decimal.RequireFromString("425.00")},
		},
		Address: order.ShippingAddress{
			Address1: "12 Harbor Lane",
			City:     "Karachi",
			Country:  "PK",
			ZipCode:  "74000",
			Phone:    "0334-6030339",
		},
		Subtotal:  decimal.RequireFromString("850.00"),
		Shipping:  decimal.RequireFromString("150.00"),
		Discount:  decimal.Zero,
		Total:     decimal.RequireFromString("1000.00"),
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.SaveDraft(context.Background(), sessionID, draft))
	require.NoError(t, store.SetCart(context.Background(), sessionID, draft.Items))
	return draft
}

func newTestOrchestrator(t *testing.T, store session.Store, repo order.Repository, gw gateway.Gateway) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(store, repo, gw, time.Second,
		noop.NewMeterProvider().Meter("test"), zap.NewNop())
	require.NoError(t, err)
	return o
}

// --- Tests ---

func TestSubmit_CardSuccess(t *testing.T) {
	store := newMockStore()
	repo := &mockOrderRepo{}
	gw := &mockGateway{txnID: "txn_abc"}
	draft := seedDraft(t, store, "s1")

	orch := newTestOrchestrator(t, store, repo, gw)

	got, err := orch.Submit(context.Background(), SubmitRequest{
		SessionID: "s1",
		Method:    MethodCard,
		Card:      testCard(),
	})
	require.NoError(t, err)

	assert.Equal(t, order.PaymentCard, got.Payment.Type)
	assert.Equal(t, "txn_abc", got.Payment.TransactionID)
	assert.Equal(t, gateway.StatusSucceeded, got.Payment.Status)
	assert.Equal(t, order.StatusPlaced, got.Status)
	assert.Equal(t, draft.UserID, got.UserID)
	assert.True(t, draft.Total.Equal(got.Total))

	// Draft and cart are consumed, attempt ends completed.
	assert.False(t, store.hasDraft("s1"))
	assert.False(t, store.hasCart("s1"))
	assert.Equal(t, StateCompleted, orch.State("s1"))
	assert.Equal(t, 1, repo.createCalls)
}

func TestSubmit_GatewayDeclinePreservesDraft(t *testing.T) {
	store := newMockStore()
	repo := &mockOrderRepo{}
	gw := &mockGateway{confirmErr: &gateway.Error{Message: "card declined"}}
	seedDraft(t, store, "s1")

	orch := newTestOrchestrator(t, store, repo, gw)

	_, err := orch.Submit(context.Background(), SubmitRequest{
		SessionID: "s1",
		Method:    MethodCard,
		Card:      testCard(),
	})

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "card declined", gwErr.Message)

	// No order, and the buyer can retry with the same draft and cart.
	assert.Equal(t, 0, repo.createCalls)
	assert.True(t, store.hasDraft("s1"))
	assert.True(t, store.hasCart("s1"))
	assert.Equal(t, StateFailed, orch.State("s1"))
}

func TestSubmit_GatewayStatusNotSucceeded(t *testing.T) {
	store := newMockStore()
	repo := &mockOrderRepo{}
	gw := &mockGateway{status: "requires_action"}
	seedDraft(t, store, "s1")

	orch := newTestOrchestrator(t, store, repo, gw)

	_, err := orch.Submit(context.Background(), SubmitRequest{
		SessionID: "s1",
		Method:    MethodCard,
		Card:      testCard(),
	})

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, 0, repo.createCalls)
	assert.True(t, store.hasDraft("s1"))
}

func TestSubmit_ConfirmationTimeout(t *testing.T) {
	store := newMockStore()
	repo := &mockOrderRepo{}
	gw := &mockGateway{confirmDelay: 5 * time.Second}
	seedDraft(t, store, "s1")

	orch, err := NewOrchestrator(store, repo, gw, 20*time.Millisecond,
		noop.NewMeterProvider().Meter("test"), zap.NewNop())
	require.NoError(t, err)

	_, err = orch.Submit(context.Background(), SubmitRequest{
		SessionID: "s1",
		Method:    MethodCard,
		Card:      testCard(),
	})

	var netErr *gateway.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 0, repo.createCalls)
	assert.True(t, store.hasDraft("s1"))
}

func TestSubmit_CashOnDelivery(t *testing.T) {
	store := newMockStore()
	repo := &mockOrderRepo{}
	gw := &mockGateway{}
	seedDraft(t, store, "s1")

	orch := newTestOrchestrator(t, store, repo, gw)

	got, err := orch.Submit(context.Background(), SubmitRequest{
		SessionID: "s1",
		Method:    MethodCashOnDelivery,
	})
	require.NoError(t, err)

	assert.Equal(t, order.PaymentCashOnDelivery, got.Payment.Type)
	assert.Empty(t, got.Payment.TransactionID)

	// The gateway is never contacted for cash on delivery.
	assert.Equal(t, 0, gw.intentCalls)
	assert.Equal(t, 0, gw.confirmCalls)
	assert.False(t, store.hasDraft("s1"))
	assert.False(t, store.hasCart("s1"))
}

func TestSubmit_NoDraft(t *testing.T) {
	store := newMockStore()
	orch := newTestOrchestrator(t, store, &mockOrderRepo{}, &mockGateway{})

	_, err := orch.Submit(context.Background(), SubmitRequest{
		SessionID: "s1",
		Method:    MethodCashOnDelivery,
	})
	require.ErrorIs(t, err, session.ErrNoDraft)
	assert.Equal(t, StateFailed, orch.State("s1"))
}

func TestSubmit_CardWithoutCardDetails(t *testing.T) {
	store := newMockStore()
	seedDraft(t, store, "s1")
	orch := newTestOrchestrator(t, store, &mockOrderRepo{}, &mockGateway{})

	_, err := orch.Submit(context.Background(), SubmitRequest{
		SessionID: "s1",
		Method:    MethodCard,
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestSubmit_UnknownMethod(t *testing.T) {
	store := newMockStore()
	seedDraft(t, store, "s1")
	orch := newTestOrchestrator(t, store, &mockOrderRepo{}, &mockGateway{})

	_, err := orch.Submit(context.Background(), SubmitRequest{
		SessionID: "s1",
		Method:    "barter",
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestSubmit_ReentrancyGuard(t *testing.T) {
	store := newMockStore()
	repo := &mockOrderRepo{}
	// Slow confirmation keeps the first attempt in flight long enough for
	// the concurrent submissions to hit the busy guard.
	gw := &mockGateway{confirmDelay: 100 * time.Millisecond, txnID: "txn_once"}
	seedDraft(t, store, "s1")

	orch := newTestOrchestrator(t, store, repo, gw)

	const attempts = 8
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		rejected atomic.Int32
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orch.Submit(context.Background(), SubmitRequest{
				SessionID: "s1",
				Method:    MethodCard,
				Card:      testCard(),
			})
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, ErrSubmissionInFlight):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// Exactly one attempt wins; every other submission is rejected while it
	// runs, and exactly one order is created.
	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(attempts-1), rejected.Load())
	assert.Equal(t, 1, repo.createCalls)
}

func TestSubmit_RetryAfterFailure(t *testing.T) {
	store := newMockStore()
	repo := &mockOrderRepo{}
	gw := &mockGateway{confirmErr: &gateway.Error{Message: "card declined"}}
	seedDraft(t, store, "s1")

	orch := newTestOrchestrator(t, store, repo, gw)

	_, err := orch.Submit(context.Background(), SubmitRequest{
		SessionID: "s1", Method: MethodCard, Card: testCard(),
	})
	require.Error(t, err)

	// Failure is terminal for the attempt, so a new submission is accepted.
	gw.confirmErr = nil
	got, err := orch.Submit(context.Background(), SubmitRequest{
		SessionID: "s1", Method: MethodCard, Card: testCard(),
	})
	require.NoError(t, err)
	assert.Equal(t, order.PaymentCard, got.Payment.Type)
}

func TestSubmit_DuplicateTransactionReturnsExistingOrder(t *testing.T) {
	existing := &order.Order{ID: "ord_prev", Payment: order.PaymentInfo{
		Type: order.PaymentCard, TransactionID: "txn_dup", Status: gateway.StatusSucceeded,
	}}

	store := newMockStore()
	repo := &mockOrderRepo{
		createErr: order.ErrDuplicateTransaction,
		byTxn:     map[string]*order.Order{"txn_dup": existing},
	}
	gw := &mockGateway{txnID: "txn_dup"}
	seedDraft(t, store, "s1")

	orch := newTestOrchestrator(t, store, repo, gw)

	got, err := orch.Submit(context.Background(), SubmitRequest{
		SessionID: "s1", Method: MethodCard, Card: testCard(),
	})
	require.NoError(t, err)

	// The charge already produced an order; it is returned instead of
	// recording a second one.
	assert.Equal(t, "ord_prev", got.ID)
	assert.False(t, store.hasDraft("s1"))
	assert.Equal(t, StateCompleted, orch.State("s1"))
}

func TestSubmit_OrderCreationFailureCarriesTransactionID(t *testing.T) {
	store := newMockStore()
	repo := &mockOrderRepo{createErr: errors.New("db down")}
	gw := &mockGateway{txnID: "txn_charged"}
	seedDraft(t, store, "s1")

	orch := newTestOrchestrator(t, store, repo, gw)

	_, err := orch.Submit(context.Background(), SubmitRequest{
		SessionID: "s1", Method: MethodCard, Card: testCard(),
	})

	var ocErr *OrderCreationError
	require.ErrorAs(t, err, &ocErr)
	assert.Equal(t, "txn_charged", ocErr.TransactionID)

	// The draft survives so support can reconcile against the charge.
	assert.True(t, store.hasDraft("s1"))
	assert.Equal(t, StateFailed, orch.State("s1"))
}

func TestState_IdleByDefault(t *testing.T) {
	orch := newTestOrchestrator(t, newMockStore(), &mockOrderRepo{}, &mockGateway{})
	assert.Equal(t, StateIdle, orch.State("never-seen"))
}
