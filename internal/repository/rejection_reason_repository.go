package repository

import (
	"context"

	"review-go/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RejectionReasonRepository 拒绝理由目录访问层
type RejectionReasonRepository struct {
	db *gorm.DB
}

// NewRejectionReasonRepository 创建拒绝理由Repository
func NewRejectionReasonRepository(db *gorm.DB) *RejectionReasonRepository {
	return &RejectionReasonRepository{db: db}
}

// WithTx 返回绑定到事务的Repository
func (r *RejectionReasonRepository) WithTx(tx *gorm.DB) *RejectionReasonRepository {
	return &RejectionReasonRepository{db: tx}
}

// List 获取拒绝理由，activeOnly 时只返回启用的
func (r *RejectionReasonRepository) List(ctx context.Context, activeOnly bool) ([]models.RejectionReason, error) {
	var reasons []models.RejectionReason
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("category ASC, id ASC").Find(&reasons).Error
	return reasons, err
}

// GetByID 根据ID获取
func (r *RejectionReasonRepository) GetByID(ctx context.Context, id string) (*models.RejectionReason, error) {
	var reason models.RejectionReason
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&reason).Error; err != nil {
		return nil, translate(err, "拒绝理由", id)
	}
	return &reason, nil
}

// GetByIDs 批量获取启用的拒绝理由
func (r *RejectionReasonRepository) GetByIDs(ctx context.Context, ids []string) ([]models.RejectionReason, error) {
	var reasons []models.RejectionReason
	if len(ids) == 0 {
		return reasons, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ? AND is_active = ?", ids, true).Find(&reasons).Error
	return reasons, err
}

// Create 创建拒绝理由
func (r *RejectionReasonRepository) Create(ctx context.Context, reason *models.RejectionReason) error {
	return r.db.WithContext(ctx).Create(reason).Error
}

// Save 保存拒绝理由
func (r *RejectionReasonRepository) Save(ctx context.Context, reason *models.RejectionReason) error {
	return r.db.WithContext(ctx).Save(reason).Error
}

// Seed 写入缺失的默认拒绝理由，已存在的不覆盖
func (r *RejectionReasonRepository) Seed(ctx context.Context, reasons []models.RejectionReason) error {
	if len(reasons) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&reasons).Error
}
