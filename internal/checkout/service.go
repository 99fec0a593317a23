package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/bazaar-checkout/internal/domain/cart"
	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/domain/product"
	"github.com/xenking/bazaar-checkout/internal/session"
)

// Service owns the storefront side of the pipeline: cart mutations with
// stock enforcement and the checkout confirmation that snapshots the cart
// into the session's draft slot.
type Service struct {
	store    session.Store
	products product.Repository
	calc     *cart.Calculator
	lg       *zap.Logger
}

// NewService creates a checkout Service.
func NewService(store session.Store, products product.Repository, calc *cart.Calculator, lg *zap.Logger) *Service {
	return &Service{
		store:    store,
		products: products,
		calc:     calc,
		lg:       lg,
	}
}

// AddItem adds quantity of a product to the session's cart, merging with
// an existing line for the same product. Quantity must be at least 1 and
// the merged quantity may not exceed available stock; the line captures
// the product's effective price at add time.
func (s *Service) AddItem(ctx context.Context, sessionID, productID string, quantity int) ([]cart.Line, error) {
	if quantity < 1 {
		return nil, &cart.InvalidQuantityError{ProductID: productID}
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", productID)
	}

	lines, err := s.store.GetCart(ctx, sessionID)
	if err != nil && !errors.Is(err, session.ErrNoCart) {
		return nil, errors.Wrap(err, "get cart")
	}

	merged := false
	for i := range lines {
		if lines[i].ProductID != productID {
			continue
		}
		if lines[i].Quantity+quantity > p.Stock {
			return nil, &cart.InsufficientStockError{
				ProductID: productID,
				Requested: lines[i].Quantity + quantity,
				Available: p.Stock,
			}
		}
		lines[i].Quantity += quantity
		merged = true
		break
	}
	if !merged {
		if quantity > p.Stock {
			return nil, &cart.InsufficientStockError{
				ProductID: productID,
				Requested: quantity,
				Available: p.Stock,
			}
		}
		lines = append(lines, cart.Line{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  quantity,
			UnitPrice: p.EffectivePrice(),
		})
	}

	if err := s.store.SetCart(ctx, sessionID, lines); err != nil {
		return nil, errors.Wrap(err, "set cart")
	}
	return lines, nil
}

// Cart returns the session's cart lines, or session.ErrNoCart.
func (s *Service) Cart(ctx context.Context, sessionID string) ([]cart.Line, error) {
	return s.store.GetCart(ctx, sessionID)
}

// ClearCart empties the session's cart.
func (s *Service) ClearCart(ctx context.Context, sessionID string) error {
	return s.store.ClearCart(ctx, sessionID)
}

// ConfirmRequest carries the checkout form input.
type ConfirmRequest struct {
	SessionID  string
	UserID     string
	Address    order.ShippingAddress
	CouponCode string
}

// ConfirmResult is the outcome of a checkout confirmation. When the coupon
// was rejected the draft is still saved with a zero discount and
// CouponRejected carries the reason for the buyer.
type ConfirmResult struct {
	Draft          *order.Draft
	CouponRejected string
}

// Confirm validates the address, snapshots the cart with computed totals
// into the draft slot, and returns the draft. The save completes before
// Confirm returns, so the payment step can rely on reading it.
func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	if err := req.Address.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	lines, err := s.store.GetCart(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNoCart) {
			return nil, &ValidationError{Reason: "cart is empty"}
		}
		return nil, errors.Wrap(err, "get cart")
	}

	result := &ConfirmResult{}

	totals, err := s.calc.Compute(ctx, lines, req.CouponCode)
	if err != nil {
		switch {
		case errors.Is(err, coupon.ErrInvalidCoupon),
			errors.Is(err, coupon.ErrCouponExpired),
			errors.Is(err, coupon.ErrCouponUsageLimitReached):
			// Rejected coupons do not block checkout: totals are valid
			// with a zero discount and the buyer is notified.
			result.CouponRejected = err.Error()
		case errors.Is(err, cart.ErrEmptyCart):
			return nil, &ValidationError{Reason: "cart is empty"}
		default:
			var iq *cart.InvalidQuantityError
			if errors.As(err, &iq) {
				return nil, &ValidationError{Reason: iq.Error()}
			}
			return nil, errors.Wrap(err, "compute totals")
		}
	}

	couponCode := req.CouponCode
	if result.CouponRejected != "" {
		couponCode = ""
	}

	draft := &order.Draft{
		UserID:     req.UserID,
		Items:      lines,
		Address:    req.Address,
		CouponCode: couponCode,
		Subtotal:   totals.Subtotal,
		Discount:   totals.Discount,
		Shipping:   totals.Shipping,
		Total:      totals.Total,
		CreatedAt:  time.Now(),
	}

	if err := s.store.SaveDraft(ctx, req.SessionID, draft); err != nil {
		return nil, errors.Wrap(err, "save draft")
	}

	s.lg.Info("draft order saved",
		zap.String("session_id", req.SessionID),
		zap.String("total", draft.Total.StringFixed(2)),
		zap.Int("lines", len(draft.Items)),
	)

	result.Draft = draft
	return result, nil
}
