package service

import (
	"context"
	"fmt"
	"strings"

	"review-go/internal/apperr"
	"review-go/internal/dto"
	"review-go/internal/models"
	"review-go/internal/repository"

	"gorm.io/gorm"
)

// DefaultRejectionReasons 首次启动时写入的拒绝理由
var DefaultRejectionReasons = []models.RejectionReason{
	{ID: "inaccurate", Label: "内容不准确", Description: "回答存在事实或法条引用错误", Category: "accuracy", IsActive: true},
	{ID: "missing_citation", Label: "缺少引用", Description: "回答没有引用相关条文", Category: "accuracy", IsActive: true},
	{ID: "too_brief", Label: "过于简略", Description: "回答缺乏具体分析或步骤", Category: "quality", IsActive: true},
	{ID: "not_practical", Label: "缺乏实用性", Description: "没有可执行的建议", Category: "quality", IsActive: true},
	{ID: "off_topic", Label: "答非所问", Description: "回答与指令不相关", Category: "relevance", IsActive: true},
	{ID: "format_issue", Label: "格式问题", Description: "指令或回答格式不符合要求", Category: "format", IsActive: true},
}

// CatalogService 拒绝理由和条文目录
type CatalogService struct {
	reasonRepo  *repository.RejectionReasonRepository
	articleRepo *repository.ArticleRepository
}

// NewCatalogService 创建目录服务
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{
		reasonRepo:  repository.NewRejectionReasonRepository(db),
		articleRepo: repository.NewArticleRepository(db),
	}
}

// SeedReasons 写入默认拒绝理由
func (s *CatalogService) SeedReasons(ctx context.Context) error {
	reasons := make([]models.RejectionReason, len(DefaultRejectionReasons))
	copy(reasons, DefaultRejectionReasons)
	return s.reasonRepo.Seed(ctx, reasons)
}

// ListReasons 拒绝理由列表
func (s *CatalogService) ListReasons(ctx context.Context, includeInactive bool) ([]models.RejectionReason, error) {
	return s.reasonRepo.List(ctx, !includeInactive)
}

// CreateReason 新增拒绝理由
func (s *CatalogService) CreateReason(ctx context.Context, req *dto.ReasonRequest) (*models.RejectionReason, error) {
	id := strings.TrimSpace(req.ID)
	if _, err := s.reasonRepo.GetByID(ctx, id); err == nil {
		return nil, apperr.Validation(fmt.Sprintf("拒绝理由 %s 已存在", id))
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	reason := &models.RejectionReason{
		ID:          id,
		Label:       req.Label,
		Description: req.Description,
		Category:    req.Category,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.reasonRepo.Create(ctx, reason); err != nil {
		return nil, fmt.Errorf("创建拒绝理由失败: %w", err)
	}
	return reason, nil
}

// UpdateReason 修改拒绝理由，停用后历史审核记录中的引用保留
func (s *CatalogService) UpdateReason(ctx context.Context, id string, req *dto.ReasonRequest) (*models.RejectionReason, error) {
	reason, err := s.reasonRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	reason.Label = req.Label
	reason.Description = req.Description
	reason.Category = req.Category
	if req.IsActive != nil {
		reason.IsActive = *req.IsActive
	}

	if err := s.reasonRepo.Save(ctx, reason); err != nil {
		return nil, fmt.Errorf("更新拒绝理由失败: %w", err)
	}
	return reason, nil
}

// CreateArticles 批量创建条文
func (s *CatalogService) CreateArticles(ctx context.Context, inputs []dto.ArticleInput) ([]models.SourceArticle, error) {
	if len(inputs) == 0 {
		return nil, apperr.Validation("条文不能为空")
	}

	articles := make([]models.SourceArticle, 0, len(inputs))
	for _, in := range inputs {
		articles = append(articles, models.SourceArticle{
			Title:   strings.TrimSpace(in.Title),
			Number:  strings.TrimSpace(in.Number),
			Content: in.Content,
		})
	}
	if err := s.articleRepo.CreateBatch(ctx, articles); err != nil {
		return nil, fmt.Errorf("创建条文失败: %w", err)
	}
	return articles, nil
}

// ListArticles 分页获取条文
func (s *CatalogService) ListArticles(ctx context.Context, page, perPage int) ([]models.SourceArticle, int64, error) {
	return s.articleRepo.List(ctx, (page-1)*perPage, perPage)
}

// SearchArticle 按标题和条号查找
func (s *CatalogService) SearchArticle(ctx context.Context, title, number string) (*models.SourceArticle, error) {
	return s.articleRepo.FindByTitleAndNumber(ctx, strings.TrimSpace(title), strings.TrimSpace(number))
}

// UpdateArticle 修改条文
func (s *CatalogService) UpdateArticle(ctx context.Context, id uint, in *dto.ArticleInput) (*models.SourceArticle, error) {
	article, err := s.articleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	article.Title = strings.TrimSpace(in.Title)
	article.Number = strings.TrimSpace(in.Number)
	article.Content = in.Content
	if err := s.articleRepo.Save(ctx, article); err != nil {
		return nil, fmt.Errorf("更新条文失败: %w", err)
	}
	return article, nil
}

// DeleteArticle 删除条文
func (s *CatalogService) DeleteArticle(ctx context.Context, id uint) error {
	return s.articleRepo.Delete(ctx, id)
}
