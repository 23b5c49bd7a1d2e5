package service

import (
	"context"
	"fmt"
	"io"

	"review-go/internal/apperr"
	"review-go/internal/models"
	"review-go/internal/repository"
	"review-go/internal/utils"

	"gorm.io/gorm"
)

// 导出格式
const (
	ExportJSONL = "jsonl"
	ExportCSV   = "csv"
)

// FinalDatasetService 最终数据集服务
type FinalDatasetService struct {
	finalRepo *repository.FinalDatasetRepository
}

// NewFinalDatasetService 创建最终数据集服务
func NewFinalDatasetService(db *gorm.DB) *FinalDatasetService {
	return &FinalDatasetService{finalRepo: repository.NewFinalDatasetRepository(db)}
}

// List 分页获取
func (s *FinalDatasetService) List(ctx context.Context, page, perPage int) ([]models.FinalDatasetItem, int64, error) {
	return s.finalRepo.List(ctx, (page-1)*perPage, perPage)
}

// Delete 删除单条
func (s *FinalDatasetService) Delete(ctx context.Context, id uint) error {
	return s.finalRepo.Delete(ctx, id)
}

// DeleteAll 清空最终数据集
func (s *FinalDatasetService) DeleteAll(ctx context.Context) (int64, error) {
	return s.finalRepo.DeleteAll(ctx)
}

// Export 按格式写出全部最终数据
func (s *FinalDatasetService) Export(ctx context.Context, w io.Writer, format string) error {
	if format != ExportJSONL && format != ExportCSV {
		return apperr.Validation(fmt.Sprintf("不支持的导出格式: %s", format))
	}

	items, err := s.finalRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("读取最终数据失败: %w", err)
	}

	rows := make([]utils.ExportRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, utils.ExportRow{
			ID:           item.ID,
			Input:        item.OriginalInput,
			Output:       item.FinalOutput,
			RawDatasetID: item.DatasetItemID,
			ModelName:    item.ModelName,
			CreatedAt:    item.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	if format == ExportCSV {
		return utils.WriteCSV(w, rows)
	}
	return utils.WriteJSONL(w, rows)
}
