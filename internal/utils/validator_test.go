package utils

import (
	"testing"
	"time"
)

func TestValidateStruct(t *testing.T) {
	type form struct {
		Username string `validate:"required,username"`
		Password string `validate:"required,password"`
		Result   string `validate:"required,review_result"`
	}

	tests := []struct {
		name    string
		in      form
		wantErr bool
	}{
		{"合法", form{"alice_1", "secret123", "accept"}, false},
		{"用户名过短", form{"al", "secret123", "ACCEPT"}, true},
		{"用户名含非法字符", form{"al-ice", "secret123", "ACCEPT"}, true},
		{"弱密码", form{"alice", "password", "ACCEPT"}, true},
		{"结论非法", form{"alice", "secret123", "MAYBE"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager("secret", "HS256", time.Minute)
	token, err := manager.GenerateToken(3, "alice", "admin")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != 3 || claims.Username != "alice" || !claims.IsAdmin {
		t.Errorf("claims = %+v", claims)
	}

	other := NewJWTManager("other", "HS256", time.Minute)
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("不同密钥签发的Token应当无效")
	}
}

func TestJWTRefreshTokenSeparation(t *testing.T) {
	manager := NewJWTManager("secret", "HS256", time.Minute)
	access, err := manager.GenerateToken(3, "alice", "expert")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	refresh, err := manager.GenerateRefreshToken(3, "alice")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	if _, err := manager.ValidateToken(refresh); err == nil {
		t.Error("刷新Token不应通过访问校验")
	}
	if _, err := manager.ValidateRefreshToken(access); err == nil {
		t.Error("访问Token不应通过刷新校验")
	}

	claims, err := manager.ValidateRefreshToken(refresh)
	if err != nil {
		t.Fatalf("ValidateRefreshToken() error = %v", err)
	}
	if claims.UserID != 3 || claims.Type != TokenTypeRefresh {
		t.Errorf("claims = %+v", claims)
	}
}
