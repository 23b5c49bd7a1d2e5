package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"review-go/internal/apperr"
	"review-go/internal/dto"
	"review-go/internal/models"
	"review-go/internal/repository"
)

func TestCreateBatchAllOrNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		inputs  []dto.DatasetInput
		wantErr bool
		want    int64
	}{
		{name: "空列表", inputs: nil, wantErr: true},
		{name: "含空回答", inputs: []dto.DatasetInput{{Output: "a"}, {Output: "  "}}, wantErr: true},
		{name: "超过上限", inputs: make([]dto.DatasetInput, MaxBatchSize+1), wantErr: true},
		{name: "正常", inputs: []dto.DatasetInput{{Instruction: "q1", Output: "a1"}, {Instruction: "q2", Output: "a2"}}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := h.datasets.CreateBatch(ctx, tt.inputs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateBatch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !apperr.IsValidation(err) {
				t.Errorf("error = %v, want validation", err)
			}
			if !tt.wantErr && int64(len(items)) != tt.want {
				t.Errorf("created = %d", len(items))
			}
		})
	}

	_, total, err := h.datasets.List(ctx, 1, 50)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}

func TestImport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	content := strings.Join([]string{
		`{"instruction":"q1","output":"a1","history":[["h1","r1"]],"source":["法第1条"]}`,
		`{"instruction":"q2","output":"a2","model_name":"qwen3:8b"}`,
	}, "\n")

	items, err := h.datasets.Import(ctx, []byte(content))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("imported = %d", len(items))
	}
	if len(items[0].History) != 1 || items[0].History[0].Output != "r1" {
		t.Errorf("history = %+v", items[0].History)
	}
	if items[1].ModelName != "qwen3:8b" || items[1].Status != models.StatusPending {
		t.Errorf("item = %+v", items[1])
	}

	if _, err := h.datasets.Import(ctx, []byte("not json")); !apperr.IsValidation(err) {
		t.Errorf("Import(bad) error = %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	users := h.experts(t, 2)
	item := h.item(t)

	newOutput := "修改后的回答"
	updated, err := h.datasets.Update(ctx, item.ID, &dto.DatasetUpdate{Output: &newOutput})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Output != newOutput || updated.Instruction != item.Instruction {
		t.Errorf("updated = %+v", updated)
	}

	empty := ""
	if _, err := h.datasets.Update(ctx, item.ID, &dto.DatasetUpdate{Output: &empty}); !apperr.IsValidation(err) {
		t.Errorf("Update(empty) error = %v", err)
	}

	if _, err := h.reviews.SubmitReview(ctx, item.ID, users[0].ID, reject("太短", "too_brief")); err != nil {
		t.Fatal(err)
	}
	feedback, err := h.datasets.Rejections(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(feedback) != 1 || feedback[0].Reviewer != users[0].Username || len(feedback[0].Reasons) != 1 {
		t.Errorf("feedback = %+v", feedback)
	}
	if ids := feedback[0].ReasonIDs; len(ids) != 1 || ids[0] != "too_brief" {
		t.Errorf("reason ids = %v", ids)
	}

	if err := h.datasets.Delete(ctx, item.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := h.datasets.Get(ctx, item.ID); !apperr.IsNotFound(err) {
		t.Errorf("Get(deleted) error = %v", err)
	}
	counts, _ := repository.NewReviewLogRepository(h.db).CountsForItem(ctx, item.ID)
	if counts.Reject != 0 {
		t.Errorf("review logs not deleted: %+v", counts)
	}
	if err := h.datasets.Delete(ctx, item.ID); !apperr.IsNotFound(err) {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestFinalDatasetExport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	users := h.experts(t, 2)
	item := h.item(t)

	for _, u := range users {
		if _, err := h.reviews.SubmitReview(ctx, item.ID, u.ID, accept()); err != nil {
			t.Fatal(err)
		}
	}

	var jsonl bytes.Buffer
	if err := h.finals.Export(ctx, &jsonl, ExportJSONL); err != nil {
		t.Fatalf("Export(jsonl) error = %v", err)
	}
	var row map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(jsonl.Bytes()), &row); err != nil {
		t.Fatalf("jsonl line invalid: %v", err)
	}
	if row["final_output"] != item.Output {
		t.Errorf("row = %v", row)
	}

	var csvOut bytes.Buffer
	if err := h.finals.Export(ctx, &csvOut, ExportCSV); err != nil {
		t.Fatalf("Export(csv) error = %v", err)
	}
	if !strings.HasPrefix(csvOut.String(), "\ufeffid,original_input") {
		t.Errorf("csv header = %q", csvOut.String()[:30])
	}

	if err := h.finals.Export(ctx, &csvOut, "xml"); !apperr.IsValidation(err) {
		t.Errorf("Export(xml) error = %v", err)
	}

	// 删除原数据不影响最终数据
	if err := h.datasets.Delete(ctx, item.ID); err != nil {
		t.Fatal(err)
	}
	finals, total, err := h.finals.List(ctx, 1, 10)
	if err != nil || total != 1 || finals[0].DatasetItemID != item.ID {
		t.Errorf("finals = %+v total = %d err = %v", finals, total, err)
	}

	n, err := h.finals.DeleteAll(ctx)
	if err != nil || n != 1 {
		t.Errorf("DeleteAll() = %d, %v", n, err)
	}
}
