package service

import (
	"context"
	"sort"
	"strings"

	"review-go/internal/dto"
	"review-go/internal/settings"

	"github.com/sirupsen/logrus"
)

// ModelLister 查询生成服务可用的模型
type ModelLister interface {
	ListModels(ctx context.Context, baseURL string) ([]string, error)
}

// SettingsService 系统设置
type SettingsService struct {
	store  *settings.Store
	lister ModelLister
	logger logrus.FieldLogger
}

// NewSettingsService 创建设置服务
func NewSettingsService(store *settings.Store, lister ModelLister, logger logrus.FieldLogger) *SettingsService {
	return &SettingsService{store: store, lister: lister, logger: logger}
}

// All 全部设置及其来源
func (s *SettingsService) All(ctx context.Context) ([]settings.Entry, error) {
	return s.store.All(ctx)
}

// Get 单个设置
func (s *SettingsService) Get(ctx context.Context, key string) (*settings.Entry, error) {
	return s.store.Get(ctx, key)
}

// Update 批量更新，按键名顺序写入，遇到非法值立即返回
func (s *SettingsService) Update(ctx context.Context, req dto.SettingsUpdateRequest) ([]settings.Entry, error) {
	keys := make([]string, 0, len(req))
	for key := range req {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := s.store.Set(ctx, key, req[key]); err != nil {
			return nil, err
		}
		s.logger.WithField("key", settings.CanonicalKey(key)).Info("设置已更新")
	}
	return s.store.All(ctx)
}

// TestGenerator 测试生成服务连接，baseURL 为空时使用当前设置
func (s *SettingsService) TestGenerator(ctx context.Context, baseURL string) (*dto.GeneratorTestResponse, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		current, err := s.store.GeneratorBaseURL(ctx)
		if err != nil {
			return nil, err
		}
		baseURL = current
	}

	resp := &dto.GeneratorTestResponse{BaseURL: baseURL}
	list, err := s.lister.ListModels(ctx, baseURL)
	if err != nil {
		s.logger.WithError(err).WithField("base_url", baseURL).Warn("生成服务连接测试失败")
		resp.Error = err.Error()
		return resp, nil
	}
	resp.OK = true
	resp.Models = list
	return resp, nil
}

// Models 当前生成服务上的模型
func (s *SettingsService) Models(ctx context.Context) ([]string, error) {
	baseURL, err := s.store.GeneratorBaseURL(ctx)
	if err != nil {
		return nil, err
	}
	return s.lister.ListModels(ctx, baseURL)
}
