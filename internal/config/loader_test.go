package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		body    string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "默认值",
			body: "jwt:\n  secret_key: s\nadmin:\n  password: p\ndatabase:\n  path: " + filepath.Join(dir, "db", "a.db") + "\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 18080 {
					t.Errorf("port = %d", cfg.Server.Port)
				}
				if cfg.Review.AcceptanceThreshold != DefaultAcceptanceThreshold || cfg.Review.RejectionThreshold != DefaultRejectionThreshold {
					t.Errorf("thresholds = %+v", cfg.Review)
				}
				if cfg.Generator.FallbackModel != DefaultFallbackModel {
					t.Errorf("fallback model = %q", cfg.Generator.FallbackModel)
				}
				if _, err := os.Stat(filepath.Join(dir, "db")); err != nil {
					t.Errorf("数据库目录未创建: %v", err)
				}
			},
		},
		{
			name: "覆盖阈值和模型列表",
			body: "jwt:\n  secret_key: s\nadmin:\n  password: p\ndatabase:\n  path: \":memory:\"\nreview:\n  acceptance_threshold: 5\ngenerator:\n  models: [a, b]\nsettings_overrides:\n  rejection_threshold: 7\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Review.AcceptanceThreshold != 5 {
					t.Errorf("acceptance = %d", cfg.Review.AcceptanceThreshold)
				}
				if len(cfg.Generator.Models) != 2 {
					t.Errorf("models = %v", cfg.Generator.Models)
				}
				if cfg.SettingsOverrides["rejection_threshold"] != 7 {
					t.Errorf("overrides = %v", cfg.SettingsOverrides)
				}
			},
		},
		{
			name:    "缺少JWT密钥",
			body:    "admin:\n  password: p\ndatabase:\n  path: \":memory:\"\n",
			wantErr: true,
		},
		{
			name:    "缺少管理员密码",
			body:    "jwt:\n  secret_key: s\ndatabase:\n  path: \":memory:\"\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
