package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"review-go/internal/config"
	"review-go/internal/lock"
	"review-go/internal/models"
	"review-go/internal/repository"
	"review-go/internal/settings"
	"review-go/internal/testutil"
	"review-go/pkg/generator"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeGenerator 记录请求并返回预设结果
type fakeGenerator struct {
	mu        sync.Mutex
	err       error
	candidate generator.Candidate
	calls     int
	targets   []generator.Target
	requests  []generator.RegenerateRequest
	articles  []generator.ArticleRequest
}

func (f *fakeGenerator) Regenerate(ctx context.Context, target generator.Target, req generator.RegenerateRequest) (*generator.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.targets = append(f.targets, target)
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	c := f.candidate
	return &c, nil
}

func (f *fakeGenerator) FromArticles(ctx context.Context, target generator.Target, req generator.ArticleRequest) (*generator.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.targets = append(f.targets, target)
	f.articles = append(f.articles, req)
	if f.err != nil {
		return nil, f.err
	}
	c := f.candidate
	return &c, nil
}

var errGeneratorDown = errors.New("connection refused")

type harness struct {
	db       *gorm.DB
	cfg      *config.Config
	store    *settings.Store
	gen      *fakeGenerator
	locker   *lock.ItemLocker
	queue    *RegenerationQueue
	reviews  *ReviewService
	datasets *DatasetService
	finals   *FinalDatasetService
	stats    *StatsService
	catalog  *CatalogService
	logger   *logrus.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := testutil.OpenTestDB(t)
	logger := quietLogger()

	cfg := &config.Config{}
	config.SetDefaults(cfg)

	store, err := settings.NewStore(repository.NewSettingRepository(db), cfg, logger)
	if err != nil {
		t.Fatalf("创建设置存储失败: %v", err)
	}

	gen := &fakeGenerator{candidate: generator.Candidate{
		Instruction: "新的指令",
		Input:       "新的输入",
		Output:      "新的回答",
	}}
	locker := lock.NewItemLocker(nil, logger)
	queue := NewRegenerationQueue(db, store, gen, locker, QueueOptions{
		Workers:       1,
		QueueSize:     16,
		FallbackModel: cfg.Generator.FallbackModel,
	}, logger)

	h := &harness{
		db:       db,
		cfg:      cfg,
		store:    store,
		gen:      gen,
		locker:   locker,
		queue:    queue,
		reviews:  NewReviewService(db, store, locker, queue, logger),
		datasets: NewDatasetService(db, locker, logger),
		finals:   NewFinalDatasetService(db),
		stats:    NewStatsService(db),
		catalog:  NewCatalogService(db),
		logger:   logger,
	}
	if err := h.catalog.SeedReasons(context.Background()); err != nil {
		t.Fatalf("写入拒绝理由失败: %v", err)
	}
	return h
}

func (h *harness) experts(t *testing.T, n int) []*models.User {
	t.Helper()
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, testutil.CreateUser(t, h.db, "expert"+string(rune('a'+i)), models.RoleExpert))
	}
	return users
}

func (h *harness) item(t *testing.T) *models.DatasetItem {
	t.Helper()
	return testutil.CreateItem(t, h.db, &models.DatasetItem{
		Instruction: "公司能否不经同意收集员工指纹？",
		Output:      "不能，需要取得个人单独同意。",
		System:      "你是法律顾问",
		Source:      models.StringList{"个人信息保护法第29条"},
		ModelName:   "qwen3:8b",
	})
}

// drain 执行队列中已投递的任务
func (h *harness) drain(t *testing.T) {
	t.Helper()
	for {
		select {
		case jobID := <-h.queue.jobs:
			h.queue.Run(context.Background(), jobID)
		default:
			return
		}
	}
}

func (h *harness) reload(t *testing.T, id uint) *models.DatasetItem {
	t.Helper()
	item, err := repository.NewDatasetRepository(h.db).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("读取数据失败: %v", err)
	}
	return item
}
