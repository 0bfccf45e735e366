package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
	repo "github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"
)

func TestAdminStockUsecase_SetStock_NegativeStock_Rejected(t *testing.T) {
	tx := new(txManagerMock)
	uc := NewAdminStockUsecase(tx)

	err := uc.SetStock(context.Background(), 9, 11, -1, "stocktake")
	assertErrContains(t, err, "invalid stock")
}

func TestAdminStockUsecase_SetStock_RequiresReason(t *testing.T) {
	tx := new(txManagerMock)
	uc := NewAdminStockUsecase(tx)

	err := uc.SetStock(context.Background(), 9, 11, 10, "  ")
	assertErrContains(t, err, "reason required")
}

func TestAdminStockUsecase_SetStock_UnknownVariant_NotFound(t *testing.T) {
	ctx := context.Background()

	tx := new(txManagerMock)
	variants := new(variantRepoMock)
	stock := new(stockRepoMock)

	tx.Repos = &txReposMock{variants: variants, stock: stock}
	tx.On("WithinTx", mock.Anything).Return(nil)

	variants.On("FindByID", mock.Anything, int64(11)).Return(model.ProductVariant{}, repo.ErrNotFound)

	uc := NewAdminStockUsecase(tx)

	err := uc.SetStock(ctx, 9, 11, 10, "stocktake")
	assertErrContains(t, err, "not found")

	stock.AssertNotCalled(t, "SetStockWithAdjustment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminStockUsecase_SetStock_WritesAdjustmentAndAudit(t *testing.T) {
	ctx := context.Background()

	tx := new(txManagerMock)
	variants := new(variantRepoMock)
	stock := new(stockRepoMock)
	audit := new(auditLogRepoMock)

	tx.Repos = &txReposMock{variants: variants, stock: stock, auditLogs: audit}
	tx.On("WithinTx", mock.Anything).Return(nil)

	variants.On("FindByID", mock.Anything, int64(11)).Return(model.ProductVariant{ID: 11, Stock: 4}, nil)
	stock.On("SetStockWithAdjustment", mock.Anything, int64(9), int64(11), int64(20), "restock delivery").Return(nil)
	audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdateStock &&
			l.ResourceType == model.AuditResourceVariant &&
			l.BeforeJSON == `{"stock":4}` &&
			l.AfterJSON == `{"stock":20}`
	})).Return(nil)

	uc := NewAdminStockUsecase(tx)

	err := uc.SetStock(ctx, 9, 11, 20, "restock delivery")
	assert.NoError(t, err)

	stock.AssertExpectations(t)
	audit.AssertExpectations(t)
}
