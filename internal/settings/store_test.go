package settings

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"review-go/internal/apperr"
	"review-go/internal/config"
	"review-go/internal/models"
	"review-go/internal/repository"
	"review-go/internal/testutil"

	"github.com/sirupsen/logrus"
)

func newTestStore(t *testing.T, overrides map[string]interface{}) (*Store, *repository.SettingRepository) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	repo := repository.NewSettingRepository(db)

	cfg := &config.Config{SettingsOverrides: overrides}
	config.SetDefaults(cfg)
	cfg.Generator.Models = []string{"m1"}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewStore(repo, cfg, logger)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store, repo
}

func TestStorePrecedence(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, map[string]interface{}{"rejection_threshold": 9})

	got, err := store.AcceptanceThreshold(ctx)
	if err != nil || got != config.DefaultAcceptanceThreshold {
		t.Fatalf("默认通过阈值 = %d, %v", got, err)
	}

	if err := store.Set(ctx, "approval_threshold", 4); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, _ = store.AcceptanceThreshold(ctx)
	if got != 4 {
		t.Errorf("持久化后通过阈值 = %d, want 4", got)
	}

	if err := store.Set(ctx, KeyRejectionThreshold, 5); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, _ = store.RejectionThreshold(ctx)
	if got != 9 {
		t.Errorf("覆盖后拒绝阈值 = %d, want 9", got)
	}
}

func TestStoreSetValidation(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, nil)

	tests := []struct {
		name    string
		key     string
		value   interface{}
		wantErr bool
	}{
		{"整数阈值", KeyAcceptanceThreshold, 3, false},
		{"字符串数字阈值", KeyRejectionThreshold, "4", false},
		{"零阈值", KeyAcceptanceThreshold, 0, true},
		{"小数阈值", KeyAcceptanceThreshold, 1.5, true},
		{"模型列表", KeyGeneratorModels, []interface{}{"a", " b ", "a"}, false},
		{"模型列表含数字", KeyGeneratorModels, []interface{}{"a", 1}, true},
		{"合法地址", KeyGeneratorBaseURL, "http://localhost:11434/v1/", false},
		{"非法地址", KeyGeneratorBaseURL, "localhost", true},
		{"未知键", "theme", map[string]interface{}{"dark": true}, false},
		{"空键", " ", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Set(ctx, tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperr.IsValidation(err) {
				t.Errorf("错误类型 = %v, want validation", err)
			}
		})
	}

	list, err := store.GeneratorModels(ctx)
	if err != nil {
		t.Fatalf("GeneratorModels() error = %v", err)
	}
	if len(list) != 2 || list[0] != "a" || list[1] != "b" {
		t.Errorf("模型列表 = %v", list)
	}

	base, _ := store.GeneratorBaseURL(ctx)
	if base != "http://localhost:11434/v1" {
		t.Errorf("地址 = %q", base)
	}
}

func TestStoreLegacyValues(t *testing.T) {
	ctx := context.Background()
	store, repo := newTestStore(t, nil)

	if err := repo.Upsert(ctx, "rejection_threshold", models.JSONValue(`{"value": "6"}`)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(ctx, "ollama_models", models.JSONValue(`{"value": ["x", "y"]}`)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(ctx, KeyAcceptanceThreshold, models.JSONValue(`"abc"`)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if got, _ := store.RejectionThreshold(ctx); got != 6 {
		t.Errorf("拒绝阈值 = %d, want 6", got)
	}
	// 无效的持久化值回退到默认值
	if got, _ := store.AcceptanceThreshold(ctx); got != config.DefaultAcceptanceThreshold {
		t.Errorf("通过阈值 = %d, want default", got)
	}

	entries, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	byKey := make(map[string]Entry)
	for _, e := range entries {
		byKey[e.Key] = e
	}
	if _, ok := byKey["ollama_models"]; ok {
		t.Errorf("旧键名不应出现在结果中")
	}
	var list []string
	if err := json.Unmarshal(byKey[KeyGeneratorModels].Value, &list); err != nil || len(list) != 2 {
		t.Errorf("模型列表 = %s", byKey[KeyGeneratorModels].Value)
	}
	if byKey[KeyGeneratorModels].Source != SourcePersisted {
		t.Errorf("来源 = %s", byKey[KeyGeneratorModels].Source)
	}
}

func TestStoreGetUnknown(t *testing.T) {
	store, _ := newTestStore(t, nil)
	if _, err := store.Get(context.Background(), "missing"); !apperr.IsNotFound(err) {
		t.Errorf("Get() error = %v, want not found", err)
	}
}
