package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
	repo "github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"
)

func newSweepUC(tx *txManagerMock, base time.Time) *SweepUsecase {
	uc := NewSweepUsecase(tx, &noopNotifier{}, zap.NewNop())
	uc.now = func() time.Time { return base }
	return uc
}

func TestSweepUsecase_InvalidRetentionDays(t *testing.T) {
	tx := new(txManagerMock)
	uc := newSweepUC(tx, time.Now())

	_, err := uc.ExpireReadyOrders(context.Background(), 0, 0)
	assertErrContains(t, err, "invalid retention days")
}

func TestSweepUsecase_ExpiresOnlyOrdersPastRetention(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)
	cutoff := base.AddDate(0, 0, -3)

	tx := new(txManagerMock)
	orders := new(orderRepoMock)
	orderItems := new(orderItemRepoMock)
	stock := new(stockRepoMock)
	audit := new(auditLogRepoMock)

	tx.Repos = &txReposMock{orders: orders, orderItems: orderItems, stock: stock, auditLogs: audit}
	tx.On("WithinTx", mock.Anything).Return(nil)

	// 選定は4日前の1件だけ（2日前のものはcutoffに引っかからない想定でリストに出ない）
	old := model.Order{
		ID: 1, UserID: 7, Status: model.OrderStatusReadyForPickup,
		UpdatedAt: base.AddDate(0, 0, -4),
	}
	orders.On("ListReadyForPickupBefore", mock.Anything, cutoff).Return([]model.Order{old}, nil)

	// Tx内の読み直しでも条件を満たしている
	orders.On("FindByIDForUpdate", mock.Anything, int64(1)).Return(old, nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{
		{OrderID: 1, VariantID: 11, ProductID: 5, Quantity: 1},
	}, nil)
	stock.On("IncreaseStock", mock.Anything, int64(11), int64(1)).Return(nil)
	orders.On("MarkCanceled", mock.Anything, int64(1), mock.MatchedBy(func(f repo.CancelFields) bool {
		return f.Reason == "expired" && f.AdminUserID == nil
	})).Return(nil)
	audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionExpireSweep && l.ActorUserID == 0
	})).Return(nil)

	uc := newSweepUC(tx, base)

	result, err := uc.ExpireReadyOrders(ctx, 0, 3)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, 0, result.Failed)

	orders.AssertExpectations(t)
	stock.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestSweepUsecase_SkipsOrderThatRacedAway(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)

	tx := new(txManagerMock)
	orders := new(orderRepoMock)
	stock := new(stockRepoMock)
	audit := new(auditLogRepoMock)

	tx.Repos = &txReposMock{orders: orders, stock: stock, auditLogs: audit}
	tx.On("WithinTx", mock.Anything).Return(nil)

	stale := model.Order{
		ID: 1, Status: model.OrderStatusReadyForPickup,
		UpdatedAt: base.AddDate(0, 0, -5),
	}
	orders.On("ListReadyForPickupBefore", mock.Anything, mock.Anything).Return([]model.Order{stale}, nil)

	// 選定の後、顧客が受け取りを済ませていた
	orders.On("FindByIDForUpdate", mock.Anything, int64(1)).Return(model.Order{
		ID: 1, Status: model.OrderStatusCompleted,
	}, nil)

	uc := newSweepUC(tx, base)

	result, err := uc.ExpireReadyOrders(ctx, 0, 3)
	assert.NoError(t, err)
	assert.Equal(t, 0, result.Expired)
	assert.Equal(t, 0, result.Failed)

	stock.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "MarkCanceled", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweepUsecase_OneFailureDoesNotStopRest(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)

	tx := new(txManagerMock)
	orders := new(orderRepoMock)
	orderItems := new(orderItemRepoMock)
	stock := new(stockRepoMock)
	audit := new(auditLogRepoMock)

	tx.Repos = &txReposMock{orders: orders, orderItems: orderItems, stock: stock, auditLogs: audit}
	tx.On("WithinTx", mock.Anything).Return(nil)

	o1 := model.Order{ID: 1, Status: model.OrderStatusReadyForPickup, UpdatedAt: base.AddDate(0, 0, -5)}
	o2 := model.Order{ID: 2, Status: model.OrderStatusReadyForPickup, UpdatedAt: base.AddDate(0, 0, -5)}
	orders.On("ListReadyForPickupBefore", mock.Anything, mock.Anything).Return([]model.Order{o1, o2}, nil)

	orders.On("FindByIDForUpdate", mock.Anything, int64(1)).Return(o1, nil)
	orders.On("FindByIDForUpdate", mock.Anything, int64(2)).Return(o2, nil)

	orderItems.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{}, nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(2)).Return([]model.OrderItem{}, nil)

	// 1件目は確定に失敗、2件目は成功
	orders.On("MarkCanceled", mock.Anything, int64(1), mock.Anything).Return(errors.New("deadlock"))
	orders.On("MarkCanceled", mock.Anything, int64(2), mock.Anything).Return(nil)

	audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	uc := newSweepUC(tx, base)

	result, err := uc.ExpireReadyOrders(ctx, 0, 3)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, 1, result.Failed)
}
