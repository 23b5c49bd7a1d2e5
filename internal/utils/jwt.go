package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims JWT声明
type JWTClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsAdmin  bool   `json:"is_admin"`
	Type     string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Token类型
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// DefaultRefreshExpire 刷新Token默认有效期
const DefaultRefreshExpire = 7 * 24 * time.Hour

// JWTManager JWT管理器
type JWTManager struct {
	secretKey     []byte
	algorithm     jwt.SigningMethod
	expireTime    time.Duration
	refreshExpire time.Duration
}

// NewJWTManager 创建JWT管理器
func NewJWTManager(secretKey string, algorithm string, expireTime time.Duration) *JWTManager {
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		method = jwt.SigningMethodHS256
	}
	return &JWTManager{
		secretKey:     []byte(secretKey),
		algorithm:     method,
		expireTime:    expireTime,
		refreshExpire: DefaultRefreshExpire,
	}
}

// SetRefreshExpire 设置刷新Token有效期
func (j *JWTManager) SetRefreshExpire(d time.Duration) {
	if d > 0 {
		j.refreshExpire = d
	}
}

// GenerateToken 生成访问Token
func (j *JWTManager) GenerateToken(userID uint, username, role string) (string, error) {
	return j.sign(JWTClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		IsAdmin:  role == "admin",
		Type:     TokenTypeAccess,
	}, j.expireTime)
}

// GenerateRefreshToken 生成刷新Token，只携带用户身份
func (j *JWTManager) GenerateRefreshToken(userID uint, username string) (string, error) {
	return j.sign(JWTClaims{
		UserID:   userID,
		Username: username,
		Type:     TokenTypeRefresh,
	}, j.refreshExpire)
}

func (j *JWTManager) sign(claims JWTClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.Username,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(j.algorithm, claims)
	return token.SignedString(j.secretKey)
}

// ValidateToken 验证访问Token，刷新Token不能用于访问接口
func (j *JWTManager) ValidateToken(tokenString string) (*JWTClaims, error) {
	claims, err := j.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type == TokenTypeRefresh {
		return nil, errors.New("刷新Token不能用于访问接口")
	}
	return claims, nil
}

// ValidateRefreshToken 验证刷新Token
func (j *JWTManager) ValidateRefreshToken(tokenString string) (*JWTClaims, error) {
	claims, err := j.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, errors.New("不是刷新Token")
	}
	return claims, nil
}

func (j *JWTManager) parse(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != j.algorithm {
			return nil, errors.New("无效的签名算法")
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的Token")
}
