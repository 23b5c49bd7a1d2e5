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
	"review-go/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MaxBatchSize 批量创建的最大条数
const MaxBatchSize = 100

// DatasetService 待审核数据服务
type DatasetService struct {
	db       *gorm.DB
	itemRepo *repository.DatasetRepository
	logRepo  *repository.ReviewLogRepository
	locker   *lock.ItemLocker
	logger   logrus.FieldLogger
}

// NewDatasetService 创建数据服务
func NewDatasetService(db *gorm.DB, locker *lock.ItemLocker, logger logrus.FieldLogger) *DatasetService {
	return &DatasetService{
		db:       db,
		itemRepo: repository.NewDatasetRepository(db),
		logRepo:  repository.NewReviewLogRepository(db),
		locker:   locker,
		logger:   logger,
	}
}

func newItem(in *dto.DatasetInput) (*models.DatasetItem, error) {
	if strings.TrimSpace(in.Output) == "" {
		return nil, apperr.Validation("output 不能为空")
	}
	return &models.DatasetItem{
		Instruction: in.Instruction,
		Input:       in.Input,
		Output:      in.Output,
		System:      in.System,
		History:     models.History(in.History),
		Source:      models.StringList(in.Source),
		ModelName:   strings.TrimSpace(in.ModelName),
		Status:      models.StatusPending,
	}, nil
}

// Create 创建一条待审核数据
func (s *DatasetService) Create(ctx context.Context, in *dto.DatasetInput) (*models.DatasetItem, error) {
	item, err := newItem(in)
	if err != nil {
		return nil, err
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("创建数据失败: %w", err)
	}
	return item, nil
}

// CreateBatch 批量创建，任意一条失败则全部回滚
func (s *DatasetService) CreateBatch(ctx context.Context, inputs []dto.DatasetInput) ([]models.DatasetItem, error) {
	if len(inputs) == 0 {
		return nil, apperr.Validation("批量数据不能为空")
	}
	if len(inputs) > MaxBatchSize {
		return nil, apperr.Validation(fmt.Sprintf("单次最多创建 %d 条数据", MaxBatchSize))
	}
	return s.createAll(ctx, inputs)
}

func (s *DatasetService) createAll(ctx context.Context, inputs []dto.DatasetInput) ([]models.DatasetItem, error) {
	items := make([]models.DatasetItem, 0, len(inputs))
	for i := range inputs {
		item, err := newItem(&inputs[i])
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("第%d条数据无效: %s", i+1, apperr.Message(err)))
		}
		items = append(items, *item)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.itemRepo.WithTx(tx)
		for i := range items {
			if err := repo.Create(ctx, &items[i]); err != nil {
				return fmt.Errorf("创建第%d条数据失败: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Import 导入JSON数组或JSONL文件，整个文件在一个事务中写入
func (s *DatasetService) Import(ctx context.Context, content []byte) ([]models.DatasetItem, error) {
	records, err := utils.ParseRecords(content)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if len(records) == 0 {
		return nil, apperr.Validation("文件中没有数据")
	}

	inputs := make([]dto.DatasetInput, 0, len(records))
	for _, r := range records {
		in := dto.DatasetInput{
			Instruction: r.Instruction,
			Input:       r.Input,
			Output:      r.Output,
			System:      r.System,
			Source:      r.Source,
			ModelName:   r.ModelName,
		}
		for _, pair := range r.History {
			if len(pair) >= 2 {
				in.History = append(in.History, models.HistoryEntry{Instruction: pair[0], Output: pair[1]})
			}
		}
		inputs = append(inputs, in)
	}

	items, err := s.createAll(ctx, inputs)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("count", len(items)).Info("导入数据完成")
	return items, nil
}

// List 分页获取非终态数据，附带从审核记录聚合的计数和审核员
func (s *DatasetService) List(ctx context.Context, page, perPage int) ([]models.DatasetItem, int64, error) {
	items, total, err := s.itemRepo.ListActive(ctx, (page-1)*perPage, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("获取数据列表失败: %w", err)
	}
	if err := s.attachCounts(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get 获取单条数据
func (s *DatasetService) Get(ctx context.Context, id uint) (*models.DatasetItem, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items := []models.DatasetItem{*item}
	if err := s.attachCounts(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (s *DatasetService) attachCounts(ctx context.Context, items []models.DatasetItem) error {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	counts, err := s.logRepo.CountsForItems(ctx, ids)
	if err != nil {
		return fmt.Errorf("统计审核记录失败: %w", err)
	}
	reviewers, err := s.logRepo.ReviewerIDsForItems(ctx, ids)
	if err != nil {
		return fmt.Errorf("获取审核员失败: %w", err)
	}

	for i := range items {
		c := counts[items[i].ID]
		items[i].AcceptCount = c.Accept
		items[i].RejectCount = c.Reject
		items[i].ReviewerIDs = reviewers[items[i].ID]
		if items[i].ReviewerIDs == nil {
			items[i].ReviewerIDs = []uint{}
		}
	}
	return nil
}

// Update 修改数据内容，状态和审核记录不变
func (s *DatasetService) Update(ctx context.Context, id uint, in *dto.DatasetUpdate) (*models.DatasetItem, error) {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Instruction != nil {
		item.Instruction = *in.Instruction
	}
	if in.Input != nil {
		item.Input = *in.Input
	}
	if in.Output != nil {
		if strings.TrimSpace(*in.Output) == "" {
			return nil, apperr.Validation("output 不能为空")
		}
		item.Output = *in.Output
	}
	if in.System != nil {
		item.System = *in.System
	}
	if in.Source != nil {
		item.Source = models.StringList(*in.Source)
	}
	if in.ModelName != nil {
		item.ModelName = strings.TrimSpace(*in.ModelName)
	}

	if err := s.itemRepo.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("更新数据失败: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete 删除数据及其审核记录，已生成的最终数据保留
func (s *DatasetService) Delete(ctx context.Context, id uint) error {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.logRepo.WithTx(tx).DeleteByItem(ctx, id); err != nil {
			return fmt.Errorf("删除审核记录失败: %w", err)
		}
		return s.itemRepo.WithTx(tx).Delete(ctx, id)
	})
}

// Rejections 数据收到的拒绝意见
func (s *DatasetService) Rejections(ctx context.Context, id uint) ([]dto.RejectionFeedback, error) {
	if _, err := s.itemRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	entries, err := s.logRepo.ListByItem(ctx, id, models.ResultReject)
	if err != nil {
		return nil, fmt.Errorf("获取拒绝意见失败: %w", err)
	}

	result := make([]dto.RejectionFeedback, 0, len(entries))
	for _, e := range entries {
		fb := dto.RejectionFeedback{
			ReviewID:       e.ID,
			ReviewerID:     e.ReviewerID,
			Comment:        e.Comment,
			DetailedReason: e.DetailedReason,
			ReasonIDs:      e.ReasonIDs(),
			Reasons:        e.Reasons,
			Timestamp:      e.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if e.Reviewer != nil {
			fb.Reviewer = e.Reviewer.Username
		}
		result = append(result, fb)
	}
	return result, nil
}
