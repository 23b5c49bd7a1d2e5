package repository

import (
	"context"

	"review-go/internal/models"

	"gorm.io/gorm"
)

// FinalDatasetRepository 最终数据集访问层
type FinalDatasetRepository struct {
	db *gorm.DB
}

// NewFinalDatasetRepository 创建最终数据集Repository
func NewFinalDatasetRepository(db *gorm.DB) *FinalDatasetRepository {
	return &FinalDatasetRepository{db: db}
}

// WithTx 返回绑定到事务的Repository
func (r *FinalDatasetRepository) WithTx(tx *gorm.DB) *FinalDatasetRepository {
	return &FinalDatasetRepository{db: tx}
}

// Create 创建最终数据
func (r *FinalDatasetRepository) Create(ctx context.Context, item *models.FinalDatasetItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// ExistsForItem 检查数据是否已晋升
func (r *FinalDatasetRepository) ExistsForItem(ctx context.Context, itemID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FinalDatasetItem{}).Where("dataset_item_id = ?", itemID).Count(&count).Error
	return count > 0, err
}

// GetByID 根据ID获取
func (r *FinalDatasetRepository) GetByID(ctx context.Context, id uint) (*models.FinalDatasetItem, error) {
	var item models.FinalDatasetItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, translate(err, "最终数据", id)
	}
	return &item, nil
}

// List 分页获取
func (r *FinalDatasetRepository) List(ctx context.Context, offset, limit int) ([]models.FinalDatasetItem, int64, error) {
	var items []models.FinalDatasetItem
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.FinalDatasetItem{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// ListAll 获取全部最终数据，用于导出
func (r *FinalDatasetRepository) ListAll(ctx context.Context) ([]models.FinalDatasetItem, error) {
	var items []models.FinalDatasetItem
	err := r.db.WithContext(ctx).Order("id ASC").Find(&items).Error
	return items, err
}

// Count 统计数量
func (r *FinalDatasetRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FinalDatasetItem{}).Count(&count).Error
	return count, err
}

// CountByModel 按生成模型统计
func (r *FinalDatasetRepository) CountByModel(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		ModelName string
		Count     int64
	}
	err := r.db.WithContext(ctx).Model(&models.FinalDatasetItem{}).
		Select("COALESCE(model_name, '') AS model_name, COUNT(*) AS count").
		Group("COALESCE(model_name, '')").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.ModelName] = row.Count
	}
	return result, nil
}

// Delete 删除单条
func (r *FinalDatasetRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.FinalDatasetItem{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "最终数据", id)
	}
	return nil
}

// DeleteAll 删除全部，返回删除数量
func (r *FinalDatasetRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.FinalDatasetItem{})
	return result.RowsAffected, result.Error
}
