// Package checkout runs the payment step of the pipeline: it consumes the
// session's draft order, settles the payment outcome with the gateway (or
// records cash on delivery), and creates the durable order record.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/gateway"
	"github.com/xenking/bazaar-checkout/internal/session"
)

// PaymentMethod selects how the buyer pays.
type PaymentMethod string

const (
	// MethodCard pays through the gateway's card flow.
	MethodCard PaymentMethod = "card"
	// MethodCashOnDelivery records the order with payment due on delivery.
	MethodCashOnDelivery PaymentMethod = "cashOnDelivery"
)

// SubmitRequest is one payment attempt for the session's current draft.
// The buyer identity and amounts come from the draft itself.
type SubmitRequest struct {
	SessionID string
	Method    PaymentMethod
	Card      *gateway.Card
}

// attempt tracks the observable state of a session's payment attempt.
type attempt struct {
	state State
	busy  bool
}

// Orchestrator coordinates one payment attempt per session at a time:
// draft load, gateway authorization and confirmation for cards, order
// creation, and draft/cart cleanup on success. It is safe for concurrent
// use; re-entrant submissions for the same session are rejected while an
// attempt is in flight.
type Orchestrator struct {
	store  session.Store
	orders order.Repository
	gw     gateway.Gateway
	lg     *zap.Logger

	confirmTimeout time.Duration

	placed   metric.Int64Counter
	failures metric.Int64Counter

	mu       sync.Mutex
	attempts map[string]*attempt
}

// NewOrchestrator creates an Orchestrator. confirmTimeout bounds the
// gateway confirmation round-trip so an attempt can never hang in
// AwaitingGatewayConfirmation indefinitely.
func NewOrchestrator(
	store session.Store,
	orders order.Repository,
	gw gateway.Gateway,
	confirmTimeout time.Duration,
	meter metric.Meter,
	lg *zap.Logger,
) (*Orchestrator, error) {
	placed, err := meter.Int64Counter("checkout.orders.placed",
		metric.WithDescription("Orders successfully recorded"))
	if err != nil {
		return nil, errors.Wrap(err, "create placed counter")
	}
	failures, err := meter.Int64Counter("checkout.payment.failures",
		metric.WithDescription("Payment attempts ending in a failed state"))
	if err != nil {
		return nil, errors.Wrap(err, "create failures counter")
	}

	return &Orchestrator{
		store:          store,
		orders:         orders,
		gw:             gw,
		lg:             lg,
		confirmTimeout: confirmTimeout,
		placed:         placed,
		failures:       failures,
		attempts:       make(map[string]*attempt),
	}, nil
}

// State returns the observable state of the session's latest attempt.
func (o *Orchestrator) State(sessionID string) State {
	o.mu.Lock()
	defer o.mu.Unlock()

	if a, ok := o.attempts[sessionID]; ok {
		return a.state
	}
	return StateIdle
}

// begin claims the session's attempt slot, rejecting re-entrant submits.
func (o *Orchestrator) begin(sessionID string) (*attempt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	a, ok := o.attempts[sessionID]
	if !ok {
		a = &attempt{state: StateIdle}
		o.attempts[sessionID] = a
	}
	if a.busy {
		return nil, ErrSubmissionInFlight
	}
	a.busy = true
	a.state = StateSubmitting
	return a, nil
}

// transition moves the attempt to the given state and logs it.
func (o *Orchestrator) transition(sessionID string, a *attempt, to State) {
	o.mu.Lock()
	from := a.state
	a.state = to
	if to.Terminal() {
		a.busy = false
	}
	o.mu.Unlock()

	o.lg.Info("payment attempt transition",
		zap.String("session_id", sessionID),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
}

// fail marks the attempt failed, counts it, and returns err unchanged.
func (o *Orchestrator) fail(ctx context.Context, sessionID string, a *attempt, err error) error {
	o.transition(sessionID, a, StateFailed)
	o.failures.Add(ctx, 1)
	return err
}

// Submit runs one payment attempt end to end and returns the recorded
// order. On any failure the session's draft and cart are left intact so
// the buyer can retry without re-entering data.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*order.Order, error) {
	a, err := o.begin(req.SessionID)
	if err != nil {
		return nil, err
	}

	draft, err := o.store.LoadDraft(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNoDraft) {
			return nil, o.fail(ctx, req.SessionID, a, err)
		}
		return nil, o.fail(ctx, req.SessionID, a, errors.Wrap(err, "load draft"))
	}

	if err := o.validate(req, draft); err != nil {
		return nil, o.fail(ctx, req.SessionID, a, err)
	}

	payment := order.PaymentInfo{Type: order.PaymentCashOnDelivery}
	if req.Method == MethodCard {
		payment, err = o.confirmCard(ctx, req, a, draft)
		if err != nil {
			return nil, o.fail(ctx, req.SessionID, a, err)
		}
	}

	o.transition(req.SessionID, a, StateFinalizing)

	recorded, err := o.finalize(ctx, req, draft, payment)
	if err != nil {
		return nil, o.fail(ctx, req.SessionID, a, err)
	}

	// Success: the draft is consumed and the cart emptied. Cleanup errors
	// are logged, not surfaced; the order is already durable.
	if err := o.store.ClearDraft(ctx, req.SessionID); err != nil {
		o.lg.Warn("clear draft failed", zap.String("session_id", req.SessionID), zap.Error(err))
	}
	if err := o.store.ClearCart(ctx, req.SessionID); err != nil {
		o.lg.Warn("clear cart failed", zap.String("session_id", req.SessionID), zap.Error(err))
	}

	o.transition(req.SessionID, a, StateCompleted)
	o.placed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", string(req.Method)),
	))

	return recorded, nil
}

// validate guards the Submitting transition: the draft must carry a
// positive total and an address that already passed checkout validation,
// and card payments must include card details.
func (o *Orchestrator) validate(req SubmitRequest, draft *order.Draft) error {
	switch req.Method {
	case MethodCard:
		if req.Card == nil {
			return &ValidationError{Reason: "card details required for card payment"}
		}
	case MethodCashOnDelivery:
	default:
		return &ValidationError{Reason: "unknown payment method"}
	}

	if !draft.Total.IsPositive() {
		return &ValidationError{Reason: "order total must be positive"}
	}
	if err := draft.Address.Validate(); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}

// confirmCard runs the card path: authorization handle scoped to the
// draft's total in minor units, then confirmation bounded by the configured
// timeout. The outcome is only attached when the gateway reports success.
func (o *Orchestrator) confirmCard(ctx context.Context, req SubmitRequest, a *attempt, draft *order.Draft) (order.PaymentInfo, error) {
	amountMinor := draft.Total.Shift(2).Round(0).IntPart()

	intent, err := o.gw.CreateIntent(ctx, amountMinor)
	if err != nil {
		return order.PaymentInfo{}, err
	}

	o.transition(req.SessionID, a, StateAwaitingGatewayConfirmation)

	confirmCtx, cancel := context.WithTimeout(ctx, o.confirmTimeout)
	defer cancel()

	conf, err := o.gw.ConfirmIntent(confirmCtx, intent.ClientSecret, *req.Card)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return order.PaymentInfo{}, &gateway.NetworkError{Err: errors.New("gateway confirmation timed out")}
		}
		return order.PaymentInfo{}, err
	}
	if conf.Status != gateway.StatusSucceeded {
		return order.PaymentInfo{}, &gateway.Error{Message: "payment not succeeded: " + conf.Status}
	}

	return order.PaymentInfo{
		Type:          order.PaymentCard,
		TransactionID: conf.TransactionID,
		Status:        conf.Status,
	}, nil
}

// finalize creates the durable order record. A duplicate gateway
// transaction id means a previous attempt already recorded the order (for
// example when the acknowledgment was lost); the existing record is
// returned instead of charging the buyer with a second order.
func (o *Orchestrator) finalize(ctx context.Context, req SubmitRequest, draft *order.Draft, payment order.PaymentInfo) (*order.Order, error) {
	ord := &order.Order{
		ID:         uuid.New().String(),
		UserID:     draft.UserID,
		Items:      draft.Items,
		Address:    draft.Address,
		Subtotal:   draft.Subtotal,
		Discount:   draft.Discount,
		Shipping:   draft.Shipping,
		Total:      draft.Total,
		CouponCode: draft.CouponCode,
		Payment:    payment,
		Status:     order.StatusPlaced,
	}

	err := o.orders.Create(ctx, ord)
	if err == nil {
		return ord, nil
	}

	if errors.Is(err, order.ErrDuplicateTransaction) && payment.TransactionID != "" {
		existing, findErr := o.orders.GetByTransactionID(ctx, payment.TransactionID)
		if findErr == nil {
			o.lg.Info("order already recorded for transaction",
				zap.String("session_id", req.SessionID),
				zap.String("transaction_id", payment.TransactionID),
				zap.String("order_id", existing.ID),
			)
			return existing, nil
		}
		err = errors.Wrap(findErr, "lookup existing order")
	}

	return nil, &OrderCreationError{
		TransactionID: payment.TransactionID,
		Err:           err,
	}
}
