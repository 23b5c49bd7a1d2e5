package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"review-go/internal/config"
	"review-go/internal/lock"
	"review-go/internal/repository"
	"review-go/internal/service"
	"review-go/internal/settings"
	"review-go/internal/testutil"
	"review-go/internal/utils"
	"review-go/pkg/generator"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type stubGenerator struct{}

func (stubGenerator) Regenerate(ctx context.Context, target generator.Target, req generator.RegenerateRequest) (*generator.Candidate, error) {
	return &generator.Candidate{Instruction: req.Instruction, Output: "改进后的回答"}, nil
}

func (stubGenerator) FromArticles(ctx context.Context, target generator.Target, req generator.ArticleRequest) (*generator.Candidate, error) {
	return &generator.Candidate{Instruction: "生成的问题", Output: "生成的回答"}, nil
}

type stubLister struct{}

func (stubLister) ListModels(ctx context.Context, baseURL string) ([]string, error) {
	return []string{"qwen3:8b"}, nil
}

type testServer struct {
	engine *gin.Engine
	queue  *service.RegenerationQueue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitValidator()

	db := testutil.OpenTestDB(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		Admin:  config.AccountConfig{Username: "admin", Password: "admin1234"},
		Expert: config.AccountConfig{Username: "expert", Password: "expert1234"},
	}
	config.SetDefaults(cfg)
	cfg.JWT.SecretKey = "test"

	store, err := settings.NewStore(repository.NewSettingRepository(db), cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	jwtManager := utils.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Algorithm, time.Hour)
	locker := lock.NewItemLocker(nil, logger)
	queue := service.NewRegenerationQueue(db, store, stubGenerator{}, locker, service.QueueOptions{
		Workers:       1,
		QueueSize:     8,
		FallbackModel: cfg.Generator.FallbackModel,
	}, logger)
	datasets := service.NewDatasetService(db, locker, logger)

	svc := &Services{
		Auth:         service.NewAuthService(db, jwtManager, cfg, logger),
		Review:       service.NewReviewService(db, store, locker, queue, logger),
		Dataset:      datasets,
		FinalDataset: service.NewFinalDatasetService(db),
		Generation:   service.NewGenerationService(db, datasets, store, stubGenerator{}, queue, logger),
		Catalog:      service.NewCatalogService(db),
		Settings:     service.NewSettingsService(store, stubLister{}, logger),
		Stats:        service.NewStatsService(db),
		Queue:        queue,
	}
	if err := svc.Auth.InitAccounts(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := svc.Catalog.SeedReasons(context.Background()); err != nil {
		t.Fatal(err)
	}

	return &testServer{engine: SetupRouter(cfg, jwtManager, logger, svc), queue: queue}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": username, "password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, w.Code, w.Body.String())
	}
	return resp["data"].(map[string]interface{})["access_token"].(string)
}

func (s *testServer) createUser(t *testing.T, adminToken, username string) string {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/api/admin/users", adminToken, map[string]string{"username": username, "password": "review2024"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create user: %d %s", w.Code, w.Body.String())
	}
	return s.login(t, username, "review2024")
}

func TestReviewFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", "admin1234")
	expert := s.login(t, "expert", "expert1234")
	second := s.createUser(t, admin, "expert2")

	w, resp := s.do(t, http.MethodPost, "/api/admin/datasets", admin, map[string]interface{}{
		"instruction": "员工离职后公司能保留其个人信息多久？",
		"output":      "应当在实现处理目的所必要的最短时间内保存。",
		"source":      []string{"个人信息保护法第19条"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create dataset: %d %s", w.Code, w.Body.String())
	}
	id := int(resp["data"].(map[string]interface{})["id"].(float64))
	path := "/api/review/" + strconv.Itoa(id)

	tests := []struct {
		name   string
		token  string
		body   interface{}
		status int
	}{
		{"非法结论", expert, map[string]string{"result": "MAYBE"}, http.StatusBadRequest},
		{"第一次通过", expert, map[string]string{"result": "ACCEPT"}, http.StatusOK},
		{"重复审核", expert, map[string]string{"result": "REJECT"}, http.StatusBadRequest},
		{"第二次通过后晋升", second, map[string]string{"result": "accept"}, http.StatusOK},
		{"已晋升的数据", admin, map[string]string{"result": "ACCEPT"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := s.do(t, http.MethodPost, path, tt.token, tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
		})
	}

	w, resp = s.do(t, http.MethodGet, "/api/admin/final-datasets", admin, nil)
	if w.Code != http.StatusOK || resp["total"].(float64) != 1 {
		t.Fatalf("final list: %d %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/final-datasets/export?format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "应当在实现处理目的所必要的最短时间内保存") {
		t.Errorf("export: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "attachment") {
		t.Errorf("content disposition = %q", rec.Header().Get("Content-Disposition"))
	}

	w, _ = s.do(t, http.MethodGet, "/api/datasets/"+strconv.Itoa(id), expert, nil)
	if w.Code != http.StatusOK {
		t.Errorf("accepted item should still be readable: %d", w.Code)
	}
}

func TestManualRegenerateOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", "admin1234")

	w, resp := s.do(t, http.MethodPost, "/api/admin/datasets/batch", admin, map[string]interface{}{
		"items": []map[string]string{{"instruction": "q", "output": "a"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("batch create: %d %s", w.Code, w.Body.String())
	}
	id := int(resp["data"].([]interface{})[0].(map[string]interface{})["id"].(float64))

	w, resp = s.do(t, http.MethodPost, "/api/admin/datasets/"+strconv.Itoa(id)+"/regenerate", admin, map[string]string{"model": "qwen3:8b"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("regenerate: %d %s", w.Code, w.Body.String())
	}
	if resp["data"].(map[string]interface{})["job_id"] == "" {
		t.Error("missing job id")
	}

	w, _ = s.do(t, http.MethodPost, "/api/admin/datasets/"+strconv.Itoa(id)+"/regenerate", admin, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("second regenerate: %d", w.Code)
	}

	w, resp = s.do(t, http.MethodGet, "/api/admin/datasets/"+strconv.Itoa(id)+"/jobs", admin, nil)
	if w.Code != http.StatusOK || len(resp["data"].([]interface{})) != 1 {
		t.Errorf("jobs: %d %s", w.Code, w.Body.String())
	}
}

func TestAccessControl(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", "admin1234")
	expert := s.login(t, "expert", "expert1234")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
	}{
		{"未登录", http.MethodGet, "/api/datasets", "", nil, http.StatusUnauthorized},
		{"审核员看数据", http.MethodGet, "/api/datasets", expert, nil, http.StatusOK},
		{"审核员创建数据", http.MethodPost, "/api/admin/datasets", expert, map[string]string{"output": "a"}, http.StatusForbidden},
		{"审核员看设置", http.MethodGet, "/api/admin/settings", expert, nil, http.StatusForbidden},
		{"管理员看设置", http.MethodGet, "/api/admin/settings", admin, nil, http.StatusOK},
		{"非法阈值", http.MethodPut, "/api/admin/settings", admin, map[string]interface{}{"acceptance_threshold": 0}, http.StatusBadRequest},
		{"修改阈值", http.MethodPut, "/api/admin/settings", admin, map[string]interface{}{"approval_threshold": 4}, http.StatusOK},
		{"测试生成服务", http.MethodPost, "/api/admin/settings/test-generator", admin, nil, http.StatusOK},
		{"数据不存在", http.MethodGet, "/api/datasets/999", expert, nil, http.StatusNotFound},
		{"非法ID", http.MethodGet, "/api/datasets/abc", expert, nil, http.StatusBadRequest},
		{"空批量", http.MethodPost, "/api/admin/datasets/batch", admin, map[string]interface{}{"items": []interface{}{}}, http.StatusBadRequest},
		{"审核员面板", http.MethodGet, "/api/stats/dashboard", expert, nil, http.StatusOK},
		{"拒绝理由", http.MethodGet, "/api/rejection-reasons", expert, nil, http.StatusOK},
		{"错误格式导出", http.MethodGet, "/api/admin/final-datasets/export?format=xml", admin, nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := s.do(t, tt.method, tt.path, tt.token, tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestGenerateAndConfirmOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", "admin1234")

	w, _ := s.do(t, http.MethodPost, "/api/admin/articles", admin, map[string]interface{}{
		"articles": []map[string]string{{"title": "劳动合同法", "number": "39", "content": "劳动者有下列情形之一的，用人单位可以解除劳动合同"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create articles: %d %s", w.Code, w.Body.String())
	}

	w, resp := s.do(t, http.MethodPost, "/api/admin/generate/batch", admin, map[string]interface{}{"batch_size": 2, "random_selection": true})
	if w.Code != http.StatusOK {
		t.Fatalf("generate batch: %d %s", w.Code, w.Body.String())
	}
	candidates := resp["data"].(map[string]interface{})["candidates"].([]interface{})
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d", len(candidates))
	}

	w, _ = s.do(t, http.MethodPost, "/api/admin/generate/confirm", admin, map[string]interface{}{"candidates": candidates})
	if w.Code != http.StatusCreated {
		t.Fatalf("confirm: %d %s", w.Code, w.Body.String())
	}

	w, resp = s.do(t, http.MethodGet, "/api/datasets", admin, nil)
	if w.Code != http.StatusOK || resp["total"].(float64) != 2 {
		t.Errorf("datasets: %d %s", w.Code, w.Body.String())
	}

	w, _ = s.do(t, http.MethodGet, "/api/articles/search?title="+url.QueryEscape("劳动合同法")+"&number=39", admin, nil)
	if w.Code != http.StatusOK {
		t.Errorf("search article: %d %s", w.Code, w.Body.String())
	}
}
