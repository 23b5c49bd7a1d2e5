package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"review-go/internal/apperr"
	"review-go/internal/dto"
	"review-go/internal/models"
	"review-go/internal/repository"
	"review-go/internal/settings"
	"review-go/pkg/generator"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// MaxGenerateBatch 单次批量生成的最大条数
	MaxGenerateBatch  = 50
	maxRandomArticles = 3
)

// GenerationService 根据条文生成候选数据，确认后才进入审核
type GenerationService struct {
	articleRepo *repository.ArticleRepository
	datasets    *DatasetService
	settings    *settings.Store
	gen         Generator
	queue       *RegenerationQueue
	logger      logrus.FieldLogger

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewGenerationService 创建生成服务
func NewGenerationService(
	db *gorm.DB,
	datasets *DatasetService,
	settingsStore *settings.Store,
	gen Generator,
	queue *RegenerationQueue,
	logger logrus.FieldLogger,
) *GenerationService {
	return &GenerationService{
		articleRepo: repository.NewArticleRepository(db),
		datasets:    datasets,
		settings:    settingsStore,
		gen:         gen,
		queue:       queue,
		logger:      logger,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *GenerationService) target(ctx context.Context, model string) (generator.Target, error) {
	resolved, err := s.queue.ResolveModel(ctx, model)
	if err != nil {
		return generator.Target{}, err
	}
	baseURL, err := s.settings.GeneratorBaseURL(ctx)
	if err != nil {
		return generator.Target{}, err
	}
	return generator.Target{BaseURL: baseURL, Model: resolved}, nil
}

func (s *GenerationService) generate(ctx context.Context, target generator.Target, articles []models.SourceArticle, system, hint string) (*dto.GeneratedCandidate, error) {
	req := generator.ArticleRequest{System: system, Hint: hint}
	citations := make([]string, 0, len(articles))
	for i := range articles {
		citation := articles[i].Citation()
		citations = append(citations, citation)
		req.Articles = append(req.Articles, generator.Article{Citation: citation, Content: articles[i].Content})
	}

	candidate, err := s.gen.FromArticles(ctx, target, req)
	if err != nil {
		return nil, err
	}

	return &dto.GeneratedCandidate{
		Instruction: candidate.Instruction,
		Input:       candidate.Input,
		Output:      candidate.Output,
		System:      system,
		Source:      citations,
		ModelName:   target.Model,
	}, nil
}

// Generate 根据选择的条文生成一条候选数据
func (s *GenerationService) Generate(ctx context.Context, req *dto.GenerateRequest) (*dto.GeneratedCandidate, error) {
	articles, err := s.articleRepo.ListByIDs(ctx, req.ArticleIDs)
	if err != nil {
		return nil, fmt.Errorf("读取条文失败: %w", err)
	}
	if len(articles) == 0 {
		return nil, apperr.Validation("请选择至少一个条文")
	}

	target, err := s.target(ctx, req.Model)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, target, articles, req.System, req.Hint)
}

// GenerateBatch 批量生成。random_selection 时每条随机选取1-3个条文，单条失败不影响其他条
func (s *GenerationService) GenerateBatch(ctx context.Context, req *dto.BatchGenerateRequest) (*dto.BatchGenerateResponse, error) {
	if req.BatchSize < 1 || req.BatchSize > MaxGenerateBatch {
		return nil, apperr.Validation(fmt.Sprintf("batch_size 必须在1到%d之间", MaxGenerateBatch))
	}

	var pool []models.SourceArticle
	var err error
	if len(req.ArticleIDs) == 0 && req.RandomSelection {
		pool, err = s.articleRepo.ListAll(ctx)
	} else {
		pool, err = s.articleRepo.ListByIDs(ctx, req.ArticleIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("读取条文失败: %w", err)
	}
	if len(pool) == 0 {
		return nil, apperr.Validation("请选择至少一个条文")
	}

	target, err := s.target(ctx, req.Model)
	if err != nil {
		return nil, err
	}

	resp := &dto.BatchGenerateResponse{Candidates: make([]dto.GeneratedCandidate, 0, req.BatchSize)}
	for i := 0; i < req.BatchSize; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		articles := pool
		if req.RandomSelection && len(pool) > 1 {
			articles = s.sample(pool)
		}

		candidate, err := s.generate(ctx, target, articles, req.System, "")
		if err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("第%d条: %s", i+1, apperr.Message(err)))
			s.logger.WithError(err).WithField("index", i+1).Warn("批量生成单条失败")
			continue
		}
		resp.Candidates = append(resp.Candidates, *candidate)
	}
	return resp, nil
}

// sample 随机选取1到3个不重复的条文
func (s *GenerationService) sample(pool []models.SourceArticle) []models.SourceArticle {
	s.randMu.Lock()
	defer s.randMu.Unlock()

	n := maxRandomArticles
	if len(pool) < n {
		n = len(pool)
	}
	n = 1 + s.rand.Intn(n)

	picked := make([]models.SourceArticle, 0, n)
	for _, idx := range s.rand.Perm(len(pool))[:n] {
		picked = append(picked, pool[idx])
	}
	return picked
}

// Confirm 保存确认后的候选数据，状态为 pending
func (s *GenerationService) Confirm(ctx context.Context, candidates []dto.GeneratedCandidate) ([]models.DatasetItem, error) {
	inputs := make([]dto.DatasetInput, 0, len(candidates))
	for _, c := range candidates {
		inputs = append(inputs, dto.DatasetInput{
			Instruction: c.Instruction,
			Input:       c.Input,
			Output:      c.Output,
			System:      c.System,
			Source:      c.Source,
			ModelName:   strings.TrimSpace(c.ModelName),
		})
	}
	return s.datasets.CreateBatch(ctx, inputs)
}
