package service

import (
	"context"
	"sync"
	"testing"

	"review-go/internal/apperr"
	"review-go/internal/dto"
	"review-go/internal/models"
	"review-go/internal/repository"
)

func accept() *dto.SubmitReviewRequest {
	return &dto.SubmitReviewRequest{Result: "ACCEPT"}
}

func reject(comment string, reasons ...string) *dto.SubmitReviewRequest {
	return &dto.SubmitReviewRequest{Result: "REJECT", Comment: comment, ReasonIDs: reasons}
}

func TestSubmitReviewPromotesOnAcceptanceThreshold(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	users := h.experts(t, 3)
	item := h.item(t)

	first, err := h.reviews.SubmitReview(ctx, item.ID, users[0].ID, accept())
	if err != nil {
		t.Fatalf("第一次审核失败: %v", err)
	}
	if first.Status != models.StatusReviewing || first.Promoted || first.AcceptCount != 1 {
		t.Fatalf("第一次审核结果 = %+v", first)
	}

	second, err := h.reviews.SubmitReview(ctx, item.ID, users[1].ID, accept())
	if err != nil {
		t.Fatalf("第二次审核失败: %v", err)
	}
	if !second.Promoted || second.Status != models.StatusAccepted || second.FinalDatasetID == 0 {
		t.Fatalf("第二次审核结果 = %+v", second)
	}

	final, err := repository.NewFinalDatasetRepository(h.db).GetByID(ctx, second.FinalDatasetID)
	if err != nil {
		t.Fatalf("读取最终数据失败: %v", err)
	}
	if final.FinalOutput != item.Output {
		t.Errorf("final output = %q, want %q", final.FinalOutput, item.Output)
	}
	if final.OriginalInput != ComposeOriginalInput(item) {
		t.Errorf("original input = %q", final.OriginalInput)
	}
	if final.DatasetItemID != item.ID || final.ModelName != item.ModelName {
		t.Errorf("final = %+v", final)
	}

	_, err = h.reviews.SubmitReview(ctx, item.ID, users[2].ID, accept())
	if !apperr.IsConflict(err) {
		t.Fatalf("第三次审核 error = %v, want conflict", err)
	}

	count, _ := repository.NewFinalDatasetRepository(h.db).Count(ctx)
	if count != 1 {
		t.Errorf("final count = %d, want 1", count)
	}
	if got := h.reload(t, item.ID).Status; got != models.StatusAccepted {
		t.Errorf("status = %s, want accepted", got)
	}
}

func TestSubmitReviewSchedulesRegeneration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	users := h.experts(t, 3)
	item := h.item(t)
	original := *item

	var outcome *dto.ReviewOutcome
	var err error
	for i, u := range users {
		outcome, err = h.reviews.SubmitReview(ctx, item.ID, u.ID, reject("回答过于简略", "too_brief"))
		if err != nil {
			t.Fatalf("第%d次拒绝失败: %v", i+1, err)
		}
	}
	if outcome.Status != models.StatusRegenerating || outcome.RegenerationJobID == "" || outcome.RejectCount != 3 {
		t.Fatalf("outcome = %+v", outcome)
	}

	h.drain(t)

	got := h.reload(t, item.ID)
	if got.Status != models.StatusPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}
	if got.Output != "新的回答" || got.Instruction != "新的指令" {
		t.Errorf("content not replaced: %+v", got)
	}
	if len(got.History) != 1 {
		t.Fatalf("history len = %d, want 1", len(got.History))
	}
	prev := got.History[0]
	if prev.Output != original.Output || prev.RejectCount != 3 || prev.ModelName != original.ModelName {
		t.Errorf("history entry = %+v", prev)
	}

	counts, err := repository.NewReviewLogRepository(h.db).CountsForItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if counts.Accept != 0 || counts.Reject != 0 {
		t.Errorf("ledger not cleared: %+v", counts)
	}

	if len(h.gen.requests) != 1 {
		t.Fatalf("generator calls = %d", len(h.gen.requests))
	}
	req := h.gen.requests[0]
	if req.Output != original.Output {
		t.Errorf("regenerate request output = %q", req.Output)
	}
	if len(req.Feedback) != 2 {
		t.Errorf("feedback = %v, want comment and reason label", req.Feedback)
	}
	if h.gen.targets[0].Model != h.cfg.Generator.FallbackModel {
		t.Errorf("model = %q, want fallback", h.gen.targets[0].Model)
	}

	job, err := repository.NewRegenerationJobRepository(h.db).GetByID(ctx, outcome.RegenerationJobID)
	if err != nil {
		t.Fatalf("读取任务失败: %v", err)
	}
	if job.Status != models.JobSucceeded {
		t.Errorf("job status = %s", job.Status)
	}

	// 重新生成后的新版本可以被同一批审核员再次审核
	if _, err := h.reviews.SubmitReview(ctx, item.ID, users[0].ID, accept()); err != nil {
		t.Errorf("重新生成后审核失败: %v", err)
	}
}

func TestRegenerationFailureKeepsContent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	users := h.experts(t, 3)
	item := h.item(t)
	h.gen.err = apperr.UpstreamGeneration("生成服务不可用", errGeneratorDown)

	var jobID string
	for _, u := range users {
		outcome, err := h.reviews.SubmitReview(ctx, item.ID, u.ID, reject("错误"))
		if err != nil {
			t.Fatalf("拒绝失败: %v", err)
		}
		jobID = outcome.RegenerationJobID
	}
	h.drain(t)

	got := h.reload(t, item.ID)
	if got.Status != models.StatusRegenerating {
		t.Errorf("status = %s, want regenerating", got.Status)
	}
	if got.Output != item.Output || len(got.History) != 0 {
		t.Errorf("content changed after failure: %+v", got)
	}

	counts, _ := repository.NewReviewLogRepository(h.db).CountsForItem(ctx, item.ID)
	if counts.Reject != 3 {
		t.Errorf("reject count = %d, want 3", counts.Reject)
	}

	job, _ := repository.NewRegenerationJobRepository(h.db).GetByID(ctx, jobID)
	if job.Status != models.JobFailed || job.Error == "" {
		t.Errorf("job = %+v", job)
	}

	stuck, err := h.queue.ListStuck(ctx)
	if err != nil || len(stuck) != 1 || stuck[0].ID != item.ID {
		t.Fatalf("stuck = %v, err = %v", stuck, err)
	}

	h.gen.err = nil
	if _, err := h.queue.Retry(ctx, item.ID, "qwen3:14b"); err != nil {
		t.Fatalf("重试失败: %v", err)
	}
	h.drain(t)

	got = h.reload(t, item.ID)
	if got.Status != models.StatusPending || got.ModelName != "qwen3:14b" {
		t.Errorf("after retry = %+v", got)
	}
}

func TestSubmitReviewErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	users := h.experts(t, 2)
	item := h.item(t)

	if _, err := h.reviews.SubmitReview(ctx, item.ID, users[0].ID, reject("不对")); err != nil {
		t.Fatalf("审核失败: %v", err)
	}

	tests := []struct {
		name     string
		id       uint
		reviewer uint
		req      *dto.SubmitReviewRequest
		check    func(error) bool
	}{
		{"重复审核", item.ID, users[0].ID, accept(), apperr.IsDuplicateReview},
		{"数据不存在", 9999, users[1].ID, accept(), apperr.IsNotFound},
		{"非法结论", item.ID, users[1].ID, &dto.SubmitReviewRequest{Result: "MAYBE"}, apperr.IsValidation},
		{"未知拒绝理由", item.ID, users[1].ID, reject("x", "no_such_reason"), apperr.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.reviews.SubmitReview(ctx, tt.id, tt.reviewer, tt.req)
			if !tt.check(err) {
				t.Errorf("error = %v", err)
			}
		})
	}

	counts, _ := repository.NewReviewLogRepository(h.db).CountsForItem(ctx, item.ID)
	if counts.Accept != 0 || counts.Reject != 1 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestSubmitReviewConcurrent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	users := h.experts(t, 6)
	item := h.item(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	promoted, conflicts := 0, 0
	for _, u := range users {
		wg.Add(1)
		go func(reviewerID uint) {
			defer wg.Done()
			outcome, err := h.reviews.SubmitReview(ctx, item.ID, reviewerID, accept())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && outcome.Promoted:
				promoted++
			case apperr.IsConflict(err):
				conflicts++
			case err != nil:
				t.Errorf("审核失败: %v", err)
			}
		}(u.ID)
	}
	wg.Wait()

	if promoted != 1 {
		t.Errorf("promoted = %d, want 1", promoted)
	}
	if conflicts != len(users)-2 {
		t.Errorf("conflicts = %d, want %d", conflicts, len(users)-2)
	}
	count, _ := repository.NewFinalDatasetRepository(h.db).Count(ctx)
	if count != 1 {
		t.Errorf("final count = %d", count)
	}
}

func TestCountersMatchLedger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	users := h.experts(t, 3)
	item := h.item(t)

	if _, err := h.store.Get(ctx, "acceptance_threshold"); err != nil {
		t.Fatalf("读取设置失败: %v", err)
	}
	if err := h.store.Set(ctx, "acceptance_threshold", 5); err != nil {
		t.Fatalf("修改阈值失败: %v", err)
	}

	results := []*dto.SubmitReviewRequest{accept(), reject("不完整"), accept()}
	for i, req := range results {
		if _, err := h.reviews.SubmitReview(ctx, item.ID, users[i].ID, req); err != nil {
			t.Fatalf("审核失败: %v", err)
		}
	}

	got, err := h.datasets.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("读取数据失败: %v", err)
	}
	if got.AcceptCount != 2 || got.RejectCount != 1 || len(got.ReviewerIDs) != 3 {
		t.Errorf("counters = %d/%d reviewers=%v", got.AcceptCount, got.RejectCount, got.ReviewerIDs)
	}
	if got.Status != models.StatusReviewing {
		t.Errorf("status = %s", got.Status)
	}
}

func TestComposeOriginalInput(t *testing.T) {
	tests := []struct {
		name string
		item models.DatasetItem
		want string
	}{
		{
			name: "全部字段",
			item: models.DatasetItem{System: "系统", Instruction: "问题", Input: "补充", Source: models.StringList{"A第1条", "B第2条"}},
			want: "系统\n\n问题\n\n补充\n\n参考来源：A第1条；B第2条",
		},
		{
			name: "只有指令",
			item: models.DatasetItem{Instruction: "问题"},
			want: "问题",
		},
		{
			name: "空白字段跳过",
			item: models.DatasetItem{System: " ", Instruction: "问题", Input: "\n"},
			want: "问题",
		},
		{
			name: "全部为空",
			item: models.DatasetItem{Input: "  "},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComposeOriginalInput(&tt.item); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
