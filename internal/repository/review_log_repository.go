package repository

import (
	"context"
	"time"

	"review-go/internal/models"

	"gorm.io/gorm"
)

// ReviewCounts 单条数据的审核计数
type ReviewCounts struct {
	Accept int64
	Reject int64
}

// ReviewLogRepository 审核记录数据访问层
type ReviewLogRepository struct {
	db *gorm.DB
}

// NewReviewLogRepository 创建审核记录Repository
func NewReviewLogRepository(db *gorm.DB) *ReviewLogRepository {
	return &ReviewLogRepository{db: db}
}

// WithTx 返回绑定到事务的Repository
func (r *ReviewLogRepository) WithTx(tx *gorm.DB) *ReviewLogRepository {
	return &ReviewLogRepository{db: tx}
}

// Create 写入审核记录及其拒绝理由关联
func (r *ReviewLogRepository) Create(ctx context.Context, entry *models.ReviewLogEntry) error {
	return r.db.WithContext(ctx).Omit("Reasons.*").Create(entry).Error
}

// Exists 检查审核员是否已审核过该数据
func (r *ReviewLogRepository) Exists(ctx context.Context, itemID, reviewerID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReviewLogEntry{}).
		Where("dataset_item_id = ? AND reviewer_id = ?", itemID, reviewerID).
		Count(&count).Error
	return count > 0, err
}

// CountsForItem 从审核记录聚合单条数据的计数
func (r *ReviewLogRepository) CountsForItem(ctx context.Context, itemID uint) (ReviewCounts, error) {
	counts, err := r.CountsForItems(ctx, []uint{itemID})
	if err != nil {
		return ReviewCounts{}, err
	}
	return counts[itemID], nil
}

// CountsForItems 批量聚合计数
func (r *ReviewLogRepository) CountsForItems(ctx context.Context, itemIDs []uint) (map[uint]ReviewCounts, error) {
	result := make(map[uint]ReviewCounts, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		DatasetItemID uint
		Result        models.ReviewResult
		Count         int64
	}
	err := r.db.WithContext(ctx).Model(&models.ReviewLogEntry{}).
		Select("dataset_item_id, result, COUNT(*) AS count").
		Where("dataset_item_id IN ?", itemIDs).
		Group("dataset_item_id, result").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		c := result[row.DatasetItemID]
		switch row.Result {
		case models.ResultAccept:
			c.Accept = row.Count
		case models.ResultReject:
			c.Reject = row.Count
		}
		result[row.DatasetItemID] = c
	}
	return result, nil
}

// ReviewerIDsForItems 批量获取每条数据的审核员
func (r *ReviewLogRepository) ReviewerIDsForItems(ctx context.Context, itemIDs []uint) (map[uint][]uint, error) {
	result := make(map[uint][]uint, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		DatasetItemID uint
		ReviewerID    uint
	}
	err := r.db.WithContext(ctx).Model(&models.ReviewLogEntry{}).
		Select("dataset_item_id, reviewer_id").
		Where("dataset_item_id IN ?", itemIDs).
		Order("id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.DatasetItemID] = append(result[row.DatasetItemID], row.ReviewerID)
	}
	return result, nil
}

// ListByItem 获取数据的审核记录，result 为空时返回全部
func (r *ReviewLogRepository) ListByItem(ctx context.Context, itemID uint, result models.ReviewResult) ([]models.ReviewLogEntry, error) {
	var entries []models.ReviewLogEntry
	query := r.db.WithContext(ctx).Preload("Reviewer").Preload("Reasons").Where("dataset_item_id = ?", itemID)
	if result != "" {
		query = query.Where("result = ?", result)
	}
	err := query.Order("id ASC").Find(&entries).Error
	return entries, err
}

// ListByReviewer 分页获取审核员的审核记录
func (r *ReviewLogRepository) ListByReviewer(ctx context.Context, reviewerID uint, offset, limit int) ([]models.ReviewLogEntry, int64, error) {
	var entries []models.ReviewLogEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ReviewLogEntry{}).Where("reviewer_id = ?", reviewerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Reasons").Order("id DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, total, err
}

// DeleteByItem 删除数据的全部审核记录（含拒绝理由关联）
func (r *ReviewLogRepository) DeleteByItem(ctx context.Context, itemID uint) (int64, error) {
	db := r.db.WithContext(ctx)

	sub := db.Model(&models.ReviewLogEntry{}).Select("id").Where("dataset_item_id = ?", itemID)
	if err := db.Exec("DELETE FROM review_log_reasons WHERE review_log_id IN (?)", sub).Error; err != nil {
		return 0, err
	}

	result := db.Where("dataset_item_id = ?", itemID).Delete(&models.ReviewLogEntry{})
	return result.RowsAffected, result.Error
}

// ReviewFilter 统计查询条件，ReviewerID 为0表示全部审核员
type ReviewFilter struct {
	ReviewerID uint
}

func (r *ReviewLogRepository) filtered(ctx context.Context, f ReviewFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.ReviewLogEntry{})
	if f.ReviewerID != 0 {
		query = query.Where("reviewer_id = ?", f.ReviewerID)
	}
	return query
}

// CountByResult 统计各结论的审核数量
func (r *ReviewLogRepository) CountByResult(ctx context.Context, f ReviewFilter) (ReviewCounts, error) {
	var rows []struct {
		Result models.ReviewResult
		Count  int64
	}
	err := r.filtered(ctx, f).Select("result, COUNT(*) AS count").Group("result").Scan(&rows).Error
	if err != nil {
		return ReviewCounts{}, err
	}

	var counts ReviewCounts
	for _, row := range rows {
		switch row.Result {
		case models.ResultAccept:
			counts.Accept = row.Count
		case models.ResultReject:
			counts.Reject = row.Count
		}
	}
	return counts, nil
}

// CountReviewedItems 统计审核过的不同数据数量
func (r *ReviewLogRepository) CountReviewedItems(ctx context.Context, f ReviewFilter) (int64, error) {
	var count int64
	err := r.filtered(ctx, f).Distinct("dataset_item_id").Count(&count).Error
	return count, err
}

// TimestampsSince 获取某时间之后的审核时间
func (r *ReviewLogRepository) TimestampsSince(ctx context.Context, since time.Time, f ReviewFilter) ([]time.Time, error) {
	var stamps []time.Time
	err := r.filtered(ctx, f).Where("created_at >= ?", since).Pluck("created_at", &stamps).Error
	return stamps, err
}

// ReviewerCount 审核员审核数量
type ReviewerCount struct {
	ReviewerID  uint
	Username    string
	ReviewCount int64
}

// TopReviewers 按审核数量排序的审核员
func (r *ReviewLogRepository) TopReviewers(ctx context.Context, limit int) ([]ReviewerCount, error) {
	var rows []ReviewerCount
	err := r.db.WithContext(ctx).Table("review_logs").
		Select("review_logs.reviewer_id AS reviewer_id, users.username AS username, COUNT(review_logs.id) AS review_count").
		Joins("JOIN users ON users.id = review_logs.reviewer_id").
		Group("review_logs.reviewer_id, users.username").
		Order("review_count DESC, users.username ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// CommentCount 拒绝意见出现次数
type CommentCount struct {
	Comment string
	Count   int64
}

// CommonRejectionComments 出现最多的拒绝意见
func (r *ReviewLogRepository) CommonRejectionComments(ctx context.Context, limit int, f ReviewFilter) ([]CommentCount, error) {
	var rows []CommentCount
	err := r.filtered(ctx, f).
		Select("comment, COUNT(*) AS count").
		Where("result = ? AND comment IS NOT NULL AND comment <> ''", models.ResultReject).
		Group("comment").
		Order("count DESC, comment ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// ModelReviewCount 按模型统计的审核数量
type ModelReviewCount struct {
	ModelName string
	Result    models.ReviewResult
	Count     int64
}

// CountByModel 按审核时的生成模型统计
func (r *ReviewLogRepository) CountByModel(ctx context.Context) ([]ModelReviewCount, error) {
	var rows []ModelReviewCount
	err := r.db.WithContext(ctx).Model(&models.ReviewLogEntry{}).
		Select("COALESCE(model_name, '') AS model_name, result, COUNT(*) AS count").
		Group("COALESCE(model_name, ''), result").
		Scan(&rows).Error
	return rows, err
}
