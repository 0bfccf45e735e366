package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
	repo "github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"
)

func newOrderUC(tx *txManagerMock) *OrderUsecase {
	return NewOrderUsecase(tx, &noopNotifier{}, zap.NewNop(), 5, 24*time.Hour)
}

// =====================
// Checkout tests
// =====================

func TestOrderUsecase_Checkout_EmptyIdempotencyKey(t *testing.T) {
	tx := new(txManagerMock)
	uc := newOrderUC(tx)

	_, err := uc.Checkout(context.Background(), 1, CheckoutInput{IdempotencyKey: "  "})
	assertErrContains(t, err, "invalid idempotency_key")
}

func TestOrderUsecase_Checkout_Success_DecrementsStockAndFreezesSnapshot(t *testing.T) {
	ctx := context.Background()

	tx := new(txManagerMock)
	orders := new(orderRepoMock)
	orderItems := new(orderItemRepoMock)
	carts := new(cartRepoMock)
	stock := new(stockRepoMock)
	variants := new(variantRepoMock)

	tx.Repos = &txReposMock{
		orders:     orders,
		orderItems: orderItems,
		carts:      carts,
		stock:      stock,
		variants:   variants,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	userID := int64(7)
	price := decimal.NewFromInt(100)

	orders.On("FindByIdempotencyKey", mock.Anything, userID, "key-1").Return(model.Order{}, false, nil)
	carts.On("FindActiveByUserID", mock.Anything, userID).Return(model.Cart{ID: 3, UserID: userID, Status: model.CartStatusActive}, nil)
	carts.On("ListItems", mock.Anything, int64(3)).Return([]model.CartItem{
		{
			CartID:            3,
			VariantID:         11,
			Quantity:          2,
			UnitPriceSnapshot: price,
			ProductTitle:      "2024 Faculty Shirt",
			SizeName:          "L",
			GenerationName:    "Gen 30",
		},
	}, nil)

	variants.On("FindDetail", mock.Anything, int64(11)).Return(repo.VariantDetail{
		Variant:  model.ProductVariant{ID: 11, ProductID: 5, Stock: 2},
		Price:    price,
		IsActive: true,
	}, nil)
	stock.On("DecreaseStockIfEnough", mock.Anything, int64(11), int64(2)).Return(true, nil)
	stock.On("IncrementSold", mock.Anything, int64(5), int64(2)).Return(nil)
	// 減算後の残量は0なので在庫僅少イベントが積まれる（通知はbest-effort）
	variants.On("FindByID", mock.Anything, int64(11)).Return(model.ProductVariant{ID: 11, ProductID: 5, Stock: 0}, nil)

	orders.On("Create", mock.Anything, mock.AnythingOfType("model.Order")).Return(int64(42), nil)
	orderItems.On("CreateBulk", mock.Anything, int64(42), mock.Anything).Return(nil)
	carts.On("UpdateStatus", mock.Anything, int64(3), model.CartStatusCheckedOut).Return(nil)
	carts.On("Clear", mock.Anything, int64(3)).Return(nil)

	uc := newOrderUC(tx)

	out, err := uc.Checkout(ctx, userID, CheckoutInput{IdempotencyKey: "key-1"})
	assert.NoError(t, err)
	assert.Equal(t, int64(42), out.ID)
	assert.Equal(t, "PLACED", out.Status)
	assert.True(t, out.CartTotal.Equal(decimal.NewFromInt(200)), "total=%s", out.CartTotal)
	assert.Equal(t, 1, len(out.Items))
	assert.Equal(t, "2024 Faculty Shirt", out.Items[0].ProductTitle)

	orders.AssertExpectations(t)
	orderItems.AssertExpectations(t)
	carts.AssertExpectations(t)
	stock.AssertExpectations(t)
}

func TestOrderUsecase_Checkout_OutOfStock_AbortsWholeOrder(t *testing.T) {
	ctx := context.Background()

	tx := new(txManagerMock)
	orders := new(orderRepoMock)
	carts := new(cartRepoMock)
	stock := new(stockRepoMock)
	variants := new(variantRepoMock)

	tx.Repos = &txReposMock{orders: orders, carts: carts, stock: stock, variants: variants}
	tx.On("WithinTx", mock.Anything).Return(nil)

	userID := int64(7)

	orders.On("FindByIdempotencyKey", mock.Anything, userID, "key-2").Return(model.Order{}, false, nil)
	carts.On("FindActiveByUserID", mock.Anything, userID).Return(model.Cart{ID: 3}, nil)
	carts.On("ListItems", mock.Anything, int64(3)).Return([]model.CartItem{
		{VariantID: 11, Quantity: 3, UnitPriceSnapshot: decimal.NewFromInt(100)},
	}, nil)
	variants.On("FindDetail", mock.Anything, int64(11)).Return(repo.VariantDetail{
		Variant:  model.ProductVariant{ID: 11, ProductID: 5, Stock: 1},
		Price:    decimal.NewFromInt(100),
		IsActive: true,
	}, nil)
	stock.On("DecreaseStockIfEnough", mock.Anything, int64(11), int64(3)).Return(false, nil)

	uc := newOrderUC(tx)

	_, err := uc.Checkout(ctx, userID, CheckoutInput{IdempotencyKey: "key-2"})
	assertErrContains(t, err, "out of stock")

	// 注文は作られない
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	carts.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_Checkout_IdempotentReplay_ReturnsExistingOrder(t *testing.T) {
	ctx := context.Background()

	tx := new(txManagerMock)
	orders := new(orderRepoMock)
	orderItems := new(orderItemRepoMock)
	stock := new(stockRepoMock)

	tx.Repos = &txReposMock{orders: orders, orderItems: orderItems, stock: stock}
	tx.On("WithinTx", mock.Anything).Return(nil)

	userID := int64(7)
	existing := model.Order{ID: 42, UserID: userID, Status: model.OrderStatusPlaced}

	orders.On("FindByIdempotencyKey", mock.Anything, userID, "key-1").Return(existing, true, nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{}, nil)

	uc := newOrderUC(tx)

	out, err := uc.Checkout(ctx, userID, CheckoutInput{IdempotencyKey: "key-1"})
	assert.NoError(t, err)
	assert.Equal(t, int64(42), out.ID)

	// 在庫は二度減らない
	stock.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// =====================
// CancelMyOrder tests
// =====================

func TestOrderUsecase_CancelMyOrder_ReleasesStockOnce(t *testing.T) {
	ctx := context.Background()

	tx := new(txManagerMock)
	orders := new(orderRepoMock)
	orderItems := new(orderItemRepoMock)
	stock := new(stockRepoMock)

	tx.Repos = &txReposMock{orders: orders, orderItems: orderItems, stock: stock}
	tx.On("WithinTx", mock.Anything).Return(nil)

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, UserID: 7, Status: model.OrderStatusPlaced,
	}, nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{
		{OrderID: 42, VariantID: 11, ProductID: 5, Quantity: 2},
	}, nil)
	stock.On("IncreaseStock", mock.Anything, int64(11), int64(2)).Return(nil)
	orders.On("MarkCanceled", mock.Anything, int64(42), mock.AnythingOfType("repository.CancelFields")).Return(nil)

	uc := newOrderUC(tx)

	err := uc.CancelMyOrder(ctx, 7, 42, CancelMyOrderInput{Reason: "changed my mind"})
	assert.NoError(t, err)

	stock.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestOrderUsecase_CancelMyOrder_AlreadyCanceled_Rejected(t *testing.T) {
	ctx := context.Background()

	tx := new(txManagerMock)
	orders := new(orderRepoMock)
	stock := new(stockRepoMock)

	tx.Repos = &txReposMock{orders: orders, stock: stock}
	tx.On("WithinTx", mock.Anything).Return(nil)

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, UserID: 7, Status: model.OrderStatusCanceled,
	}, nil)

	uc := newOrderUC(tx)

	err := uc.CancelMyOrder(ctx, 7, 42, CancelMyOrderInput{})
	assertErrContains(t, err, "invalid status transition")

	// 在庫が二重に戻ることはない
	stock.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_CancelMyOrder_ForeignOrder_NotFound(t *testing.T) {
	ctx := context.Background()

	tx := new(txManagerMock)
	orders := new(orderRepoMock)

	tx.Repos = &txReposMock{orders: orders}
	tx.On("WithinTx", mock.Anything).Return(nil)

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, UserID: 99, Status: model.OrderStatusPlaced,
	}, nil)

	uc := newOrderUC(tx)

	err := uc.CancelMyOrder(ctx, 7, 42, CancelMyOrderInput{})
	assertErrContains(t, err, "not found")
}

// =====================
// DeleteMyOrder (purge) tests
// =====================

func TestOrderUsecase_DeleteMyOrder_Placed_PurgesAndRewindsSold(t *testing.T) {
	ctx := context.Background()

	tx := new(txManagerMock)
	orders := new(orderRepoMock)
	orderItems := new(orderItemRepoMock)
	stock := new(stockRepoMock)

	tx.Repos = &txReposMock{orders: orders, orderItems: orderItems, stock: stock}
	tx.On("WithinTx", mock.Anything).Return(nil)

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, UserID: 7, Status: model.OrderStatusPlaced,
	}, nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{
		{OrderID: 42, VariantID: 11, ProductID: 5, Quantity: 2},
	}, nil)
	stock.On("IncreaseStock", mock.Anything, int64(11), int64(2)).Return(nil)
	stock.On("DecrementSold", mock.Anything, int64(5), int64(2)).Return(nil)
	orderItems.On("DeleteByOrderID", mock.Anything, int64(42)).Return(nil)
	orders.On("Delete", mock.Anything, int64(42)).Return(nil)

	uc := newOrderUC(tx)

	err := uc.DeleteMyOrder(ctx, 7, 42)
	assert.NoError(t, err)

	stock.AssertExpectations(t)
	orders.AssertExpectations(t)
	orderItems.AssertExpectations(t)
}

func TestOrderUsecase_DeleteMyOrder_Ready_WithinGrace_Rejected(t *testing.T) {
	ctx := context.Background()

	tx := new(txManagerMock)
	orders := new(orderRepoMock)
	stock := new(stockRepoMock)

	tx.Repos = &txReposMock{orders: orders, stock: stock}
	tx.On("WithinTx", mock.Anything).Return(nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, UserID: 7, Status: model.OrderStatusReadyForPickup,
		UpdatedAt: base.Add(-1 * time.Hour),
	}, nil)

	uc := newOrderUC(tx)
	uc.now = func() time.Time { return base }

	err := uc.DeleteMyOrder(ctx, 7, 42)
	assertErrContains(t, err, "grace period not elapsed")

	orders.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	stock.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_DeleteMyOrder_Ready_AfterGrace_Purges(t *testing.T) {
	ctx := context.Background()

	tx := new(txManagerMock)
	orders := new(orderRepoMock)
	orderItems := new(orderItemRepoMock)
	stock := new(stockRepoMock)

	tx.Repos = &txReposMock{orders: orders, orderItems: orderItems, stock: stock}
	tx.On("WithinTx", mock.Anything).Return(nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, UserID: 7, Status: model.OrderStatusReadyForPickup,
		UpdatedAt: base.Add(-25 * time.Hour),
	}, nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{}, nil)
	orderItems.On("DeleteByOrderID", mock.Anything, int64(42)).Return(nil)
	orders.On("Delete", mock.Anything, int64(42)).Return(nil)

	uc := newOrderUC(tx)
	uc.now = func() time.Time { return base }

	err := uc.DeleteMyOrder(ctx, 7, 42)
	assert.NoError(t, err)

	orders.AssertExpectations(t)
}

func TestOrderUsecase_DeleteMyOrder_Completed_Rejected(t *testing.T) {
	ctx := context.Background()

	tx := new(txManagerMock)
	orders := new(orderRepoMock)

	tx.Repos = &txReposMock{orders: orders}
	tx.On("WithinTx", mock.Anything).Return(nil)

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, UserID: 7, Status: model.OrderStatusCompleted,
	}, nil)

	uc := newOrderUC(tx)

	err := uc.DeleteMyOrder(ctx, 7, 42)
	assertErrContains(t, err, "cannot delete order in this status")
}
