package service

import (
	"context"
	"testing"

	"review-go/internal/apperr"
	"review-go/internal/dto"
	"review-go/internal/models"
)

func newGenerationService(h *harness) *GenerationService {
	return NewGenerationService(h.db, h.datasets, h.store, h.gen, h.queue, h.logger)
}

func seedArticles(t *testing.T, h *harness, n int) []models.SourceArticle {
	t.Helper()
	inputs := make([]dto.ArticleInput, 0, n)
	for i := 0; i < n; i++ {
		inputs = append(inputs, dto.ArticleInput{Title: "个人信息保护法", Number: string(rune('1' + i)), Content: "条文内容"})
	}
	articles, err := h.catalog.CreateArticles(context.Background(), inputs)
	if err != nil {
		t.Fatalf("创建条文失败: %v", err)
	}
	return articles
}

func TestGenerate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := newGenerationService(h)
	articles := seedArticles(t, h, 2)

	candidate, err := svc.Generate(ctx, &dto.GenerateRequest{
		ArticleIDs: []uint{articles[0].ID, articles[1].ID},
		System:     "你是法律顾问",
		Model:      "qwen3:8b",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if candidate.ModelName != "qwen3:8b" || candidate.Output != "新的回答" {
		t.Errorf("candidate = %+v", candidate)
	}
	if len(candidate.Source) != 2 || candidate.Source[0] != "个人信息保护法第1条" {
		t.Errorf("source = %v", candidate.Source)
	}
	if len(h.gen.articles) != 1 || len(h.gen.articles[0].Articles) != 2 {
		t.Errorf("generator request = %+v", h.gen.articles)
	}

	if _, err := svc.Generate(ctx, &dto.GenerateRequest{ArticleIDs: []uint{999}}); !apperr.IsValidation(err) {
		t.Errorf("Generate(missing articles) error = %v", err)
	}

	h.gen.err = apperr.UpstreamGeneration("生成服务不可用", errGeneratorDown)
	if _, err := svc.Generate(ctx, &dto.GenerateRequest{ArticleIDs: []uint{articles[0].ID}}); !apperr.IsUpstreamGeneration(err) {
		t.Errorf("Generate(upstream down) error = %v", err)
	}
}

func TestGenerateBatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := newGenerationService(h)
	seedArticles(t, h, 5)

	resp, err := svc.GenerateBatch(ctx, &dto.BatchGenerateRequest{BatchSize: 8, RandomSelection: true})
	if err != nil {
		t.Fatalf("GenerateBatch() error = %v", err)
	}
	if len(resp.Candidates) != 8 || resp.Failed != 0 {
		t.Fatalf("resp = %+v", resp)
	}
	for _, req := range h.gen.articles {
		if n := len(req.Articles); n < 1 || n > maxRandomArticles {
			t.Errorf("random selection picked %d articles", n)
		}
	}

	h.gen.err = errGeneratorDown
	resp, err = svc.GenerateBatch(ctx, &dto.BatchGenerateRequest{BatchSize: 2, RandomSelection: true})
	if err != nil {
		t.Fatalf("GenerateBatch() error = %v", err)
	}
	if resp.Failed != 2 || len(resp.Errors) != 2 || len(resp.Candidates) != 0 {
		t.Errorf("resp = %+v", resp)
	}

	tests := []struct {
		name string
		req  dto.BatchGenerateRequest
	}{
		{"数量为0", dto.BatchGenerateRequest{BatchSize: 0, RandomSelection: true}},
		{"数量超限", dto.BatchGenerateRequest{BatchSize: MaxGenerateBatch + 1, RandomSelection: true}},
		{"未选择条文", dto.BatchGenerateRequest{BatchSize: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.GenerateBatch(ctx, &tt.req); !apperr.IsValidation(err) {
				t.Errorf("error = %v, want validation", err)
			}
		})
	}
}

func TestConfirmCandidates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := newGenerationService(h)

	items, err := svc.Confirm(ctx, []dto.GeneratedCandidate{
		{Instruction: "q", Output: "a", Source: []string{"法第1条"}, ModelName: "m"},
	})
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if len(items) != 1 || items[0].Status != models.StatusPending || items[0].ModelName != "m" {
		t.Errorf("items = %+v", items)
	}
}

func TestCatalog(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reasons, err := h.catalog.ListReasons(ctx, false)
	if err != nil || len(reasons) != len(DefaultRejectionReasons) {
		t.Fatalf("reasons = %d, err = %v", len(reasons), err)
	}

	// 重复写入默认理由不会报错
	if err := h.catalog.SeedReasons(ctx); err != nil {
		t.Errorf("SeedReasons() again error = %v", err)
	}

	if _, err := h.catalog.CreateReason(ctx, &dto.ReasonRequest{ID: "too_brief", Label: "x"}); !apperr.IsValidation(err) {
		t.Errorf("CreateReason(duplicate) error = %v", err)
	}

	inactive := false
	if _, err := h.catalog.UpdateReason(ctx, "too_brief", &dto.ReasonRequest{Label: "过于简略", IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateReason() error = %v", err)
	}
	active, _ := h.catalog.ListReasons(ctx, false)
	all, _ := h.catalog.ListReasons(ctx, true)
	if len(active) != len(all)-1 {
		t.Errorf("active = %d, all = %d", len(active), len(all))
	}

	articles := seedArticles(t, h, 1)
	found, err := h.catalog.SearchArticle(ctx, "个人信息保护法", "1")
	if err != nil || found.ID != articles[0].ID {
		t.Errorf("SearchArticle() = %+v, %v", found, err)
	}
	if err := h.catalog.DeleteArticle(ctx, articles[0].ID); err != nil {
		t.Errorf("DeleteArticle() error = %v", err)
	}
	if _, err := h.catalog.SearchArticle(ctx, "个人信息保护法", "1"); !apperr.IsNotFound(err) {
		t.Errorf("SearchArticle(deleted) error = %v", err)
	}
}
