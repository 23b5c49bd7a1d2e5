package repository

import (
	"context"
	"time"

	"review-go/internal/models"

	"gorm.io/gorm"
)

// RegenerationJobRepository 重新生成任务访问层
type RegenerationJobRepository struct {
	db *gorm.DB
}

// NewRegenerationJobRepository 创建任务Repository
func NewRegenerationJobRepository(db *gorm.DB) *RegenerationJobRepository {
	return &RegenerationJobRepository{db: db}
}

// WithTx 返回绑定到事务的Repository
func (r *RegenerationJobRepository) WithTx(tx *gorm.DB) *RegenerationJobRepository {
	return &RegenerationJobRepository{db: tx}
}

// Create 创建任务
func (r *RegenerationJobRepository) Create(ctx context.Context, job *models.RegenerationJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID 根据ID获取
func (r *RegenerationJobRepository) GetByID(ctx context.Context, id string) (*models.RegenerationJob, error) {
	var job models.RegenerationJob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, translate(err, "重新生成任务", id)
	}
	return &job, nil
}

// MarkRunning 将排队中的任务标记为执行中，返回是否成功
func (r *RegenerationJobRepository) MarkRunning(ctx context.Context, id, modelName string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.RegenerationJob{}).
		Where("id = ? AND status = ?", id, models.JobQueued).
		Updates(map[string]interface{}{
			"status":     models.JobRunning,
			"model_name": modelName,
			"started_at": &now,
		})
	return result.RowsAffected == 1, result.Error
}

// Finish 结束任务
func (r *RegenerationJobRepository) Finish(ctx context.Context, id string, status models.JobStatus, errMsg string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.RegenerationJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"error":       errMsg,
			"finished_at": &now,
		}).Error
}

// DiscardQueued 丢弃仍在排队的任务，返回是否成功
func (r *RegenerationJobRepository) DiscardQueued(ctx context.Context, id, errMsg string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.RegenerationJob{}).
		Where("id = ? AND status = ?", id, models.JobQueued).
		Updates(map[string]interface{}{
			"status":      models.JobDiscarded,
			"error":       errMsg,
			"finished_at": &now,
		})
	return result.RowsAffected == 1, result.Error
}

// ListByStatus 获取指定状态的任务
func (r *RegenerationJobRepository) ListByStatus(ctx context.Context, status models.JobStatus) ([]models.RegenerationJob, error) {
	var jobs []models.RegenerationJob
	err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC").Find(&jobs).Error
	return jobs, err
}

// ListByItem 获取数据的全部任务，最新的在前
func (r *RegenerationJobRepository) ListByItem(ctx context.Context, itemID uint) ([]models.RegenerationJob, error) {
	var jobs []models.RegenerationJob
	err := r.db.WithContext(ctx).Where("dataset_item_id = ?", itemID).Order("created_at DESC").Find(&jobs).Error
	return jobs, err
}

// ListOutstanding 数据排队或执行中的任务
func (r *RegenerationJobRepository) ListOutstanding(ctx context.Context, itemID uint) ([]models.RegenerationJob, error) {
	var jobs []models.RegenerationJob
	err := r.db.WithContext(ctx).
		Where("dataset_item_id = ? AND status IN ?", itemID, []models.JobStatus{models.JobQueued, models.JobRunning}).
		Order("created_at ASC").
		Find(&jobs).Error
	return jobs, err
}
