package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"review-go/internal/config"
	"review-go/internal/models"
	"review-go/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuthAndAdmin(t *testing.T) {
	jwtManager := utils.NewJWTManager("secret", "HS256", time.Hour)
	adminToken, _ := jwtManager.GenerateToken(1, "admin", "admin")
	expertToken, _ := jwtManager.GenerateToken(2, "expert", "expert")
	refreshToken, _ := jwtManager.GenerateRefreshToken(2, "expert")

	r := gin.New()
	r.GET("/me", AuthMiddleware(jwtManager), func(c *gin.Context) {
		id, _ := GetUserID(c)
		if GetRole(c) == "" {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})
	r.GET("/admin", AuthMiddleware(jwtManager), AdminMiddleware(), func(c *gin.Context) {
		if GetRole(c) != models.RoleAdmin {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"缺少Token", "/me", "", http.StatusUnauthorized},
		{"格式错误", "/me", "Token abc", http.StatusUnauthorized},
		{"Token无效", "/me", "Bearer abc", http.StatusUnauthorized},
		{"刷新Token不能访问", "/me", "Bearer " + refreshToken, http.StatusUnauthorized},
		{"审核员", "/me", "Bearer " + expertToken, http.StatusOK},
		{"审核员访问管理接口", "/admin", "Bearer " + expertToken, http.StatusForbidden},
		{"管理员", "/admin", "Bearer " + adminToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := &config.Config{}
	cfg.CORS.Origins = []string{"http://localhost:5173"}
	config.SetDefaults(cfg)

	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin %q", got)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	r := gin.New()
	r.Use(LoggerMiddleware(logger))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for path, level := range map[string]string{"/ok": "info", "/bad": "warning", "/boom": "error"} {
		buf.Reset()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		if !bytes.Contains(buf.Bytes(), []byte(`"level":"`+level+`"`)) {
			t.Errorf("%s logged %s, want level %s", path, buf.String(), level)
		}
	}
}
