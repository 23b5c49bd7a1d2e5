package repository

import (
	"context"

	"review-go/internal/models"

	"gorm.io/gorm"
)

// DatasetRepository 待审核数据访问层
type DatasetRepository struct {
	db *gorm.DB
}

// NewDatasetRepository 创建数据Repository
func NewDatasetRepository(db *gorm.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// WithTx 返回绑定到事务的Repository
func (r *DatasetRepository) WithTx(tx *gorm.DB) *DatasetRepository {
	return &DatasetRepository{db: tx}
}

// Create 创建数据
func (r *DatasetRepository) Create(ctx context.Context, item *models.DatasetItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// GetByID 根据ID获取数据（不含计数）
func (r *DatasetRepository) GetByID(ctx context.Context, id uint) (*models.DatasetItem, error) {
	var item models.DatasetItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, translate(err, "数据", id)
	}
	return &item, nil
}

// Save 保存全部字段
func (r *DatasetRepository) Save(ctx context.Context, item *models.DatasetItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete 删除数据
func (r *DatasetRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.DatasetItem{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "数据", id)
	}
	return nil
}

// ListActive 分页获取非终态数据
func (r *DatasetRepository) ListActive(ctx context.Context, offset, limit int) ([]models.DatasetItem, int64, error) {
	var items []models.DatasetItem
	var total int64

	query := r.db.WithContext(ctx).Model(&models.DatasetItem{}).Where("status IN ?", models.ActiveStatuses)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// ListByStatus 获取指定状态的数据
func (r *DatasetRepository) ListByStatus(ctx context.Context, status models.ItemStatus) ([]models.DatasetItem, error) {
	var items []models.DatasetItem
	err := r.db.WithContext(ctx).Where("status = ?", status).Order("id ASC").Find(&items).Error
	return items, err
}

// UpdateStatus 更新状态
func (r *DatasetRepository) UpdateStatus(ctx context.Context, id uint, status models.ItemStatus) error {
	return r.db.WithContext(ctx).Model(&models.DatasetItem{}).Where("id = ?", id).Update("status", status).Error
}

// CompareAndSetStatus 仅当当前状态属于 from 时更新，返回是否更新成功
func (r *DatasetRepository) CompareAndSetStatus(ctx context.Context, id uint, from []models.ItemStatus, to models.ItemStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.DatasetItem{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	return result.RowsAffected == 1, result.Error
}

// ApplyRegeneration 写入新版本内容，仅对仍处于 regenerating 的数据生效
func (r *DatasetRepository) ApplyRegeneration(ctx context.Context, item *models.DatasetItem) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.DatasetItem{}).
		Where("id = ? AND status = ?", item.ID, models.StatusRegenerating).
		Updates(map[string]interface{}{
			"instruction": item.Instruction,
			"input":       item.Input,
			"output":      item.Output,
			"model_name":  item.ModelName,
			"history":     item.History,
			"status":      models.StatusPending,
		})
	return result.RowsAffected == 1, result.Error
}

// CountActive 统计非终态数据数量
func (r *DatasetRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DatasetItem{}).Where("status IN ?", models.ActiveStatuses).Count(&count).Error
	return count, err
}

// CountByModel 按生成模型统计数据数量
func (r *DatasetRepository) CountByModel(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		ModelName string
		Count     int64
	}
	err := r.db.WithContext(ctx).Model(&models.DatasetItem{}).
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
