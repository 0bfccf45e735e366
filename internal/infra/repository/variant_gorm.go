package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
	repo "github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"
)

type VariantGormRepository struct {
	db *gorm.DB
}

func NewVariantGormRepository(db *gorm.DB) *VariantGormRepository {
	return &VariantGormRepository{db: db}
}

func (r *VariantGormRepository) FindByID(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	var v model.ProductVariant
	err := r.db.WithContext(ctx).Where("id = ?", variantID).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ProductVariant{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ProductVariant{}, err
	}
	return v, nil
}

// バリアント＋商品・サイズ・世代をまとめて引く（スナップショット元）。
func (r *VariantGormRepository) FindDetail(ctx context.Context, variantID int64) (repo.VariantDetail, error) {
	v, err := r.FindByID(ctx, variantID)
	if err != nil {
		return repo.VariantDetail{}, err
	}

	var p model.Product
	err = r.db.WithContext(ctx).Where("id = ?", v.ProductID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.VariantDetail{}, repo.ErrNotFound
	}
	if err != nil {
		return repo.VariantDetail{}, err
	}

	var s model.Size
	err = r.db.WithContext(ctx).Where("id = ?", v.SizeID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.VariantDetail{}, repo.ErrNotFound
	}
	if err != nil {
		return repo.VariantDetail{}, err
	}

	var g model.Generation
	err = r.db.WithContext(ctx).Where("id = ?", v.GenerationID).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.VariantDetail{}, repo.ErrNotFound
	}
	if err != nil {
		return repo.VariantDetail{}, err
	}

	return repo.VariantDetail{
		Variant:        v,
		ProductTitle:   p.Title,
		SizeName:       s.Name,
		GenerationName: g.Name,
		Price:          p.Price,
		IsActive:       p.IsActive,
	}, nil
}
