package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"review-go/internal/apperr"
	"review-go/internal/config"
	"review-go/internal/models"
	"review-go/internal/repository"

	"github.com/sirupsen/logrus"
)

// 已知设置项
const (
	KeyAcceptanceThreshold = "acceptance_threshold"
	KeyRejectionThreshold  = "rejection_threshold"
	KeyGeneratorModels     = "generator_models"
	KeyGeneratorBaseURL    = "generator_base_url"
	KeyGeneratorModel      = "generator_model"
)

// 值来源
const (
	SourceOverride  = "override"
	SourcePersisted = "persisted"
	SourceDefault   = "default"
)

// aliases 旧版本使用的键名
var aliases = map[string]string{
	"approval_threshold": KeyAcceptanceThreshold,
	"ollama_models":      KeyGeneratorModels,
	"ollama_url":         KeyGeneratorBaseURL,
	"ollama_model":       KeyGeneratorModel,
}

// CanonicalKey 返回键的规范名称
func CanonicalKey(key string) string {
	key = strings.TrimSpace(key)
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	return key
}

// Entry 一个设置项的生效值
type Entry struct {
	Key    string          `json:"key"`
	Value  json.RawMessage `json:"value"`
	Source string          `json:"source"`
}

// Store 运行时设置
//
// 读取顺序：显式覆盖 > 数据库 > 编译期默认值。每次读取都访问数据库，不做缓存。
type Store struct {
	repo      *repository.SettingRepository
	overrides map[string]json.RawMessage
	defaults  map[string]json.RawMessage
	logger    logrus.FieldLogger
}

// NewStore 创建设置存储
func NewStore(repo *repository.SettingRepository, cfg *config.Config, logger logrus.FieldLogger) (*Store, error) {
	modelList := cfg.Generator.Models
	if modelList == nil {
		modelList = []string{}
	}

	s := &Store{
		repo:      repo,
		overrides: make(map[string]json.RawMessage),
		defaults:  make(map[string]json.RawMessage),
		logger:    logger,
	}

	defaults := map[string]interface{}{
		KeyAcceptanceThreshold: cfg.Review.AcceptanceThreshold,
		KeyRejectionThreshold:  cfg.Review.RejectionThreshold,
		KeyGeneratorModels:     modelList,
		KeyGeneratorBaseURL:    cfg.Generator.BaseURL,
		KeyGeneratorModel:      cfg.Generator.DefaultModel,
	}
	for key, value := range defaults {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("序列化默认设置 %s 失败: %w", key, err)
		}
		s.defaults[key] = raw
	}

	for key, value := range cfg.SettingsOverrides {
		key = CanonicalKey(key)
		raw, err := normalize(key, value)
		if err != nil {
			return nil, fmt.Errorf("设置覆盖 %s 无效: %w", key, err)
		}
		s.overrides[key] = raw
	}

	return s, nil
}

// Get 读取设置的生效值，未知且未持久化的键返回 NotFound
func (s *Store) Get(ctx context.Context, key string) (*Entry, error) {
	key = CanonicalKey(key)

	if raw, ok := s.overrides[key]; ok {
		return &Entry{Key: key, Value: raw, Source: SourceOverride}, nil
	}

	setting, err := s.persisted(ctx, key)
	if err != nil {
		return nil, err
	}
	if setting != nil {
		raw := unwrapLegacy(json.RawMessage(setting.Value))
		if _, known := s.defaults[key]; !known {
			return &Entry{Key: key, Value: raw, Source: SourcePersisted}, nil
		}
		if normalized, err := normalize(key, raw); err == nil {
			return &Entry{Key: key, Value: normalized, Source: SourcePersisted}, nil
		}
		s.logger.WithFields(logrus.Fields{"key": key, "value": string(raw)}).Warn("持久化设置无效，使用默认值")
	}

	if raw, ok := s.defaults[key]; ok {
		return &Entry{Key: key, Value: raw, Source: SourceDefault}, nil
	}
	return nil, apperr.NotFound("设置", key)
}

// persisted 读取数据库中的值，规范键名不存在时查找旧键名
func (s *Store) persisted(ctx context.Context, key string) (*models.Setting, error) {
	candidates := []string{key}
	for legacy, canonical := range aliases {
		if canonical == key {
			candidates = append(candidates, legacy)
		}
	}

	for _, candidate := range candidates {
		setting, err := s.repo.Get(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("读取设置 %s 失败: %w", candidate, err)
		}
		if setting != nil {
			return setting, nil
		}
	}
	return nil, nil
}

// Set 校验并持久化设置。被显式覆盖的键仍会写入，但生效值不变
func (s *Store) Set(ctx context.Context, key string, value interface{}) error {
	key = CanonicalKey(key)
	if key == "" {
		return apperr.Validation("设置键不能为空")
	}

	raw, err := normalize(key, value)
	if err != nil {
		return apperr.Validation(fmt.Sprintf("设置 %s 无效: %v", key, err))
	}

	if err := s.repo.Upsert(ctx, key, models.JSONValue(raw)); err != nil {
		return fmt.Errorf("保存设置 %s 失败: %w", key, err)
	}

	if _, overridden := s.overrides[key]; overridden {
		s.logger.WithField("key", key).Warn("设置已被配置文件覆盖，本次修改暂不生效")
	}
	return nil
}

// All 返回全部生效设置，按键排序
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	keys := make(map[string]struct{})
	for key := range s.defaults {
		keys[key] = struct{}{}
	}
	for key := range s.overrides {
		keys[key] = struct{}{}
	}

	persisted, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取设置失败: %w", err)
	}
	for _, setting := range persisted {
		keys[CanonicalKey(setting.Key)] = struct{}{}
	}

	sorted := make([]string, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)

	entries := make([]Entry, 0, len(sorted))
	for _, key := range sorted {
		entry, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// AcceptanceThreshold 通过阈值
func (s *Store) AcceptanceThreshold(ctx context.Context) (int, error) {
	return s.intValue(ctx, KeyAcceptanceThreshold)
}

// RejectionThreshold 拒绝阈值
func (s *Store) RejectionThreshold(ctx context.Context) (int, error) {
	return s.intValue(ctx, KeyRejectionThreshold)
}

// GeneratorModels 可用于重新生成的模型列表
func (s *Store) GeneratorModels(ctx context.Context) ([]string, error) {
	entry, err := s.Get(ctx, KeyGeneratorModels)
	if err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal(entry.Value, &list); err != nil {
		return nil, fmt.Errorf("解析模型列表失败: %w", err)
	}
	return list, nil
}

// GeneratorBaseURL 文本生成服务地址
func (s *Store) GeneratorBaseURL(ctx context.Context) (string, error) {
	return s.stringValue(ctx, KeyGeneratorBaseURL)
}

// GeneratorModel 默认生成模型
func (s *Store) GeneratorModel(ctx context.Context) (string, error) {
	return s.stringValue(ctx, KeyGeneratorModel)
}

func (s *Store) intValue(ctx context.Context, key string) (int, error) {
	entry, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	var n int
	if err := json.Unmarshal(entry.Value, &n); err != nil {
		return 0, fmt.Errorf("解析设置 %s 失败: %w", key, err)
	}
	return n, nil
}

func (s *Store) stringValue(ctx context.Context, key string) (string, error) {
	entry, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	var str string
	if err := json.Unmarshal(entry.Value, &str); err != nil {
		return "", fmt.Errorf("解析设置 %s 失败: %w", key, err)
	}
	return str, nil
}

// unwrapLegacy 兼容旧版本 {"value": x} 的存储格式
func unwrapLegacy(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil || len(wrapper) != 1 {
		return raw
	}
	if inner, ok := wrapper["value"]; ok {
		return inner
	}
	return raw
}

// normalize 校验已知键的值并转换为规范JSON，未知键原样序列化
func normalize(key string, value interface{}) (json.RawMessage, error) {
	var decoded interface{}
	switch v := value.(type) {
	case json.RawMessage:
		if err := json.Unmarshal(unwrapLegacy(v), &decoded); err != nil {
			return nil, fmt.Errorf("不是合法的JSON: %w", err)
		}
	case models.JSONValue:
		if err := json.Unmarshal(unwrapLegacy(json.RawMessage(v)), &decoded); err != nil {
			return nil, fmt.Errorf("不是合法的JSON: %w", err)
		}
	default:
		decoded = v
	}

	switch key {
	case KeyAcceptanceThreshold, KeyRejectionThreshold:
		n, err := toInt(decoded)
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, fmt.Errorf("阈值必须大于0")
		}
		return json.Marshal(n)

	case KeyGeneratorModels:
		list, err := toStringList(decoded)
		if err != nil {
			return nil, err
		}
		return json.Marshal(list)

	case KeyGeneratorBaseURL:
		str, ok := decoded.(string)
		if !ok {
			return nil, fmt.Errorf("必须是字符串")
		}
		u, err := url.Parse(str)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("不是合法的HTTP地址")
		}
		return json.Marshal(strings.TrimRight(str, "/"))

	case KeyGeneratorModel:
		str, ok := decoded.(string)
		if !ok {
			return nil, fmt.Errorf("必须是字符串")
		}
		return json.Marshal(strings.TrimSpace(str))
	}

	return json.Marshal(decoded)
}

func toInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("必须是整数")
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("必须是整数")
		}
		return n, nil
	default:
		return 0, fmt.Errorf("必须是整数")
	}
}

func toStringList(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return cleanList(v), nil
	case []interface{}:
		list := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("模型列表只能包含字符串")
			}
			list = append(list, str)
		}
		return cleanList(list), nil
	case string:
		// 兼容逗号分隔的旧格式
		return cleanList(strings.Split(v, ",")), nil
	default:
		return nil, fmt.Errorf("必须是字符串列表")
	}
}

func cleanList(list []string) []string {
	cleaned := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		cleaned = append(cleaned, item)
	}
	return cleaned
}
