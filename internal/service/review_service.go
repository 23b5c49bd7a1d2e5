package service

import (
	"context"
	"fmt"
	"strings"

	"review-go/internal/apperr"
	"review-go/internal/dto"
	"review-go/internal/lock"
	"review-go/internal/models"
	"review-go/internal/repository"
	"review-go/internal/settings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReviewService 审核状态机
type ReviewService struct {
	db         *gorm.DB
	itemRepo   *repository.DatasetRepository
	logRepo    *repository.ReviewLogRepository
	finalRepo  *repository.FinalDatasetRepository
	reasonRepo *repository.RejectionReasonRepository
	settings   *settings.Store
	locker     *lock.ItemLocker
	queue      *RegenerationQueue
	logger     logrus.FieldLogger
}

// NewReviewService 创建审核服务
func NewReviewService(
	db *gorm.DB,
	settingsStore *settings.Store,
	locker *lock.ItemLocker,
	queue *RegenerationQueue,
	logger logrus.FieldLogger,
) *ReviewService {
	return &ReviewService{
		db:         db,
		itemRepo:   repository.NewDatasetRepository(db),
		logRepo:    repository.NewReviewLogRepository(db),
		finalRepo:  repository.NewFinalDatasetRepository(db),
		reasonRepo: repository.NewRejectionReasonRepository(db),
		settings:   settingsStore,
		locker:     locker,
		queue:      queue,
		logger:     logger,
	}
}

// SubmitReview 提交审核
//
// 写入审核记录、从审核记录重新计数、判断阈值并执行晋升或安排重新生成，
// 整个过程在数据级别的锁和同一个数据库事务中完成。
func (s *ReviewService) SubmitReview(ctx context.Context, itemID, reviewerID uint, req *dto.SubmitReviewRequest) (*dto.ReviewOutcome, error) {
	result := models.ReviewResult(strings.ToUpper(strings.TrimSpace(req.Result)))
	if result != models.ResultAccept && result != models.ResultReject {
		return nil, apperr.Validation("审核结论必须是 ACCEPT 或 REJECT")
	}

	unlock, err := s.locker.Lock(ctx, itemID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// 阈值在事务外读取：sqlite 只有一个连接，事务内不能再用事务外的句柄
	acceptThreshold, err := s.settings.AcceptanceThreshold(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取通过阈值失败: %w", err)
	}
	rejectThreshold, err := s.settings.RejectionThreshold(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取拒绝阈值失败: %w", err)
	}

	var outcome *dto.ReviewOutcome
	var job *models.RegenerationJob

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := s.itemRepo.WithTx(tx)
		logs := s.logRepo.WithTx(tx)

		item, err := items.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.Status.IsActive() {
			return apperr.Conflict(fmt.Sprintf("数据 %d 已结束审核（%s）", itemID, item.Status))
		}

		exists, err := logs.Exists(ctx, itemID, reviewerID)
		if err != nil {
			return fmt.Errorf("检查审核记录失败: %w", err)
		}
		if exists {
			return apperr.DuplicateReview(itemID, reviewerID)
		}

		reasons, err := s.resolveReasons(ctx, tx, req.ReasonIDs)
		if err != nil {
			return err
		}

		entry := &models.ReviewLogEntry{
			DatasetItemID:  itemID,
			ReviewerID:     reviewerID,
			Result:         result,
			Comment:        strings.TrimSpace(req.Comment),
			DetailedReason: strings.TrimSpace(req.DetailedReason),
			ModelName:      item.ModelName,
			Reasons:        reasons,
		}
		if err := logs.Create(ctx, entry); err != nil {
			if isUniqueViolation(err) {
				return apperr.DuplicateReview(itemID, reviewerID)
			}
			return fmt.Errorf("写入审核记录失败: %w", err)
		}

		counts, err := logs.CountsForItem(ctx, itemID)
		if err != nil {
			return fmt.Errorf("统计审核记录失败: %w", err)
		}

		outcome = &dto.ReviewOutcome{
			Review:      entry,
			AcceptCount: counts.Accept,
			RejectCount: counts.Reject,
			Status:      item.Status,
		}

		switch {
		case result == models.ResultAccept && counts.Accept >= int64(acceptThreshold):
			final, err := s.promote(ctx, tx, item)
			if err != nil {
				return err
			}
			outcome.Status = models.StatusAccepted
			outcome.Promoted = true
			outcome.FinalDatasetID = final.ID

		case result == models.ResultReject && counts.Reject >= int64(rejectThreshold):
			if item.Status == models.StatusRegenerating {
				break
			}
			job, err = s.queue.schedule(ctx, tx, item, "", models.TriggerAuto)
			if err != nil {
				return err
			}
			outcome.Status = models.StatusRegenerating
			outcome.RegenerationJobID = job.ID

		case item.Status == models.StatusPending:
			if _, err := items.CompareAndSetStatus(ctx, itemID, []models.ItemStatus{models.StatusPending}, models.StatusReviewing); err != nil {
				return fmt.Errorf("更新数据状态失败: %w", err)
			}
			outcome.Status = models.StatusReviewing
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"item_id":      itemID,
		"reviewer_id":  reviewerID,
		"result":       result,
		"accept_count": outcome.AcceptCount,
		"reject_count": outcome.RejectCount,
		"status":       outcome.Status,
	}).Info("审核已提交")

	if job != nil {
		s.queue.Dispatch(job)
	}
	return outcome, nil
}

// promote 创建最终数据并把原数据标记为已通过
func (s *ReviewService) promote(ctx context.Context, tx *gorm.DB, item *models.DatasetItem) (*models.FinalDatasetItem, error) {
	finals := s.finalRepo.WithTx(tx)

	exists, err := finals.ExistsForItem(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("检查最终数据失败: %w", err)
	}
	if exists {
		return nil, apperr.Conflict(fmt.Sprintf("数据 %d 已经晋升", item.ID))
	}

	final := &models.FinalDatasetItem{
		OriginalInput: ComposeOriginalInput(item),
		FinalOutput:   item.Output,
		DatasetItemID: item.ID,
		ModelName:     item.ModelName,
	}
	if err := finals.Create(ctx, final); err != nil {
		return nil, fmt.Errorf("创建最终数据失败: %w", err)
	}

	ok, err := s.itemRepo.WithTx(tx).CompareAndSetStatus(ctx, item.ID, models.ActiveStatuses, models.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("更新数据状态失败: %w", err)
	}
	if !ok {
		return nil, apperr.Conflict(fmt.Sprintf("数据 %d 状态已变化", item.ID))
	}

	s.logger.WithFields(logrus.Fields{"item_id": item.ID, "final_id": final.ID}).Info("数据已晋升到最终数据集")
	return final, nil
}

// resolveReasons 校验拒绝理由ID都存在且启用
func (s *ReviewService) resolveReasons(ctx context.Context, tx *gorm.DB, ids []string) ([]models.RejectionReason, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, nil
	}

	reasons, err := s.reasonRepo.WithTx(tx).GetByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("读取拒绝理由失败: %w", err)
	}
	if len(reasons) != len(unique) {
		found := make(map[string]struct{}, len(reasons))
		for _, r := range reasons {
			found[r.ID] = struct{}{}
		}
		var missing []string
		for _, id := range unique {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, apperr.Validation("未知的拒绝理由: " + strings.Join(missing, ", "))
	}
	return reasons, nil
}

// MyReviews 审核员自己的审核记录
func (s *ReviewService) MyReviews(ctx context.Context, reviewerID uint, page, perPage int) ([]models.ReviewLogEntry, int64, error) {
	return s.logRepo.ListByReviewer(ctx, reviewerID, (page-1)*perPage, perPage)
}

// ComposeOriginalInput 组合系统提示词、指令、输入和来源作为最终数据的输入，空白字段跳过
func ComposeOriginalInput(item *models.DatasetItem) string {
	var parts []string
	if s := strings.TrimSpace(item.System); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(item.Instruction); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(item.Input); s != "" {
		parts = append(parts, s)
	}
	if len(item.Source) > 0 {
		parts = append(parts, "参考来源："+strings.Join(item.Source, "；"))
	}
	return strings.Join(parts, "\n\n")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
