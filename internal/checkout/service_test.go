package checkout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/bazaar-checkout/internal/domain/cart"
	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
	"github.com/xenking/bazaar-checkout/internal/domain/product"
)

type mockProductRepo struct {
	byID map[string]*product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) { return nil, nil }

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockCouponValidator struct {
	discount *coupon.Discount
	err      error
}

func (m *mockCouponValidator) Validate(_ context.Context, _ string, _ []coupon.Item) (*coupon.Discount, error) {
	return m.discount, m.err
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

func newTestService(t *testing.T, repo *mockProductRepo, validator coupon.Validator) (*Service, *mockStore) {
	t.Helper()
	store := newMockStore()
	calc := cart.NewCalculator(decimal.NewFromInt(150), validator)
	return NewService(store, repo, calc, zap.NewNop()), store
}

func confirmReq(sessionID, couponCode string) ConfirmRequest {
	return ConfirmRequest{
		SessionID: sessionID,
		UserID:    "u1",
		Address: order.ShippingAddress{
			Address1: "12 Harbor Lane",
			City:     "Karachi",
			Country:  "PK",
			ZipCode:  "74000",
			Phone:    "0334-6030339",
		},
		CouponCode: couponCode,
	}
}

func TestAddItem(t *testing.T) {
	repo := newProductRepo(product.Product{
		ID: "p1", Name: "Widget", Price: decimal.RequireFromString("100.00"), Stock: 5,
	})
	svc, _ := newTestService(t, repo, &mockCouponValidator{})
	ctx := context.Background()

	lines, err := svc.AddItem(ctx, "s1", "p1", 2)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "Widget", lines[0].Name)

	// Same product merges into the existing line.
	lines, err = svc.AddItem(ctx, "s1", "p1", 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestAddItem_CapturesDiscountPrice(t *testing.T) {
	discounted := decimal.RequireFromString("80.00")
	repo := newProductRepo(product.Product{
		ID: "p1", Name: "Widget",
		Price:         decimal.RequireFromString("100.00"),
		DiscountPrice: &discounted,
		Stock:         5,
	})
	svc, _ := newTestService(t, repo, &mockCouponValidator{})

	lines, err := svc.AddItem(context.Background(), "s1", "p1", 1)
	require.NoError(t, err)
	assert.True(t, discounted.Equal(lines[0].UnitPrice),
		"expected effective price %s, got %s", discounted, lines[0].UnitPrice)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc, _ := newTestService(t, newProductRepo(), &mockCouponValidator{})

	_, err := svc.AddItem(context.Background(), "s1", "p1", 0)

	var iqErr *cart.InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
}

func TestAddItem_ProductNotFound(t *testing.T) {
	svc, _ := newTestService(t, newProductRepo(), &mockCouponValidator{})

	_, err := svc.AddItem(context.Background(), "s1", "missing", 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestAddItem_StockLimit(t *testing.T) {
	repo := newProductRepo(product.Product{
		ID: "p1", Name: "Widget", Price: decimal.NewFromInt(10), Stock: 3,
	})
	svc, _ := newTestService(t, repo, &mockCouponValidator{})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", "p1", 4)
	var stockErr *cart.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Available)

	// The merged quantity is checked too, not just the new line.
	_, err = svc.AddItem(ctx, "s1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "s1", "p1", 2)
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 4, stockErr.Requested)
}

func TestConfirm_SavesDraft(t *testing.T) {
	repo := newProductRepo(product.Product{
		ID: "p1", Name: "Widget", Price: decimal.RequireFromString("250.00"), Stock: 10,
	})
	svc, store := newTestService(t, repo, &mockCouponValidator{})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", "p1", 4)
	require.NoError(t, err)

	result, err := svc.Confirm(ctx, confirmReq("s1", ""))
	require.NoError(t, err)
	require.NotNil(t, result.Draft)
	assert.Empty(t, result.CouponRejected)

	// subtotal 1000 + shipping 150.
	assert.True(t, result.Draft.Total.Equal(decimal.RequireFromString("1150.00")),
		"total: %s", result.Draft.Total)

	// The draft is already readable by the payment step.
	saved, err := store.LoadDraft(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", saved.UserID)
	assert.True(t, saved.Total.Equal(result.Draft.Total))
}

func TestConfirm_OverwritesPreviousDraft(t *testing.T) {
	repo := newProductRepo(product.Product{
		ID: "p1", Name: "Widget", Price: decimal.RequireFromString("100.00"), Stock: 10,
	})
	svc, store := newTestService(t, repo, &mockCouponValidator{})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", "p1", 1)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, confirmReq("s1", ""))
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, "s1", "p1", 1)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, confirmReq("s1", ""))
	require.NoError(t, err)

	saved, err := store.LoadDraft(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, saved.Items, 1)
	assert.Equal(t, 2, saved.Items[0].Quantity, "draft reflects the latest cart")
}

func TestConfirm_RejectedCouponStillSavesDraft(t *testing.T) {
	repo := newProductRepo(product.Product{
		ID: "p1", Name: "Widget", Price: decimal.RequireFromString("200.00"), Stock: 10,
	})
	svc, store := newTestService(t, repo, &mockCouponValidator{err: coupon.ErrInvalidCoupon})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", "p1", 1)
	require.NoError(t, err)

	result, err := svc.Confirm(ctx, confirmReq("s1", "BOGUS"))
	require.NoError(t, err)
	assert.NotEmpty(t, result.CouponRejected)
	assert.True(t, result.Draft.Discount.IsZero())
	assert.Empty(t, result.Draft.CouponCode, "rejected code is not carried on the draft")

	saved, err := store.LoadDraft(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, saved.Total.Equal(decimal.RequireFromString("350.00")), "total: %s", saved.Total)
}

func TestConfirm_AppliedCoupon(t *testing.T) {
	repo := newProductRepo(product.Product{
		ID: "p1", Name: "Widget", Price: decimal.RequireFromString("250.00"), Stock: 10,
	})
	svc, _ := newTestService(t, repo, &mockCouponValidator{
		discount: &coupon.Discount{Amount: decimal.RequireFromString("100.00")},
	})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", "p1", 4)
	require.NoError(t, err)

	result, err := svc.Confirm(ctx, confirmReq("s1", "DISCOUNT10"))
	require.NoError(t, err)
	assert.Empty(t, result.CouponRejected)
	assert.Equal(t, "DISCOUNT10", result.Draft.CouponCode)
	assert.True(t, result.Draft.Discount.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, result.Draft.Total.Equal(decimal.RequireFromString("1050.00")),
		"total: %s", result.Draft.Total)
}

func TestConfirm_EmptyCart(t *testing.T) {
	svc, _ := newTestService(t, newProductRepo(), &mockCouponValidator{})

	_, err := svc.Confirm(context.Background(), confirmReq("s1", ""))

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestConfirm_InvalidAddress(t *testing.T) {
	svc, store := newTestService(t, newProductRepo(), &mockCouponValidator{})

	req := confirmReq("s1", "")
	req.Address.Phone = "03346030339"

	_, err := svc.Confirm(context.Background(), req)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "phoneNumber")

	_, err = store.LoadDraft(context.Background(), "s1")
	require.Error(t, err, "no draft saved on validation failure")
}
