package service

import (
	"context"
	"fmt"

	"review-go/internal/apperr"
	"review-go/internal/config"
	"review-go/internal/dto"
	"review-go/internal/models"
	"review-go/internal/repository"
	"review-go/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuthService 认证和用户管理服务
type AuthService struct {
	userRepo   *repository.UserRepository
	jwtManager *utils.JWTManager
	cfg        *config.Config
	logger     logrus.FieldLogger
}

// NewAuthService 创建认证服务
func NewAuthService(db *gorm.DB, jwtManager *utils.JWTManager, cfg *config.Config, logger logrus.FieldLogger) *AuthService {
	return &AuthService{
		userRepo:   repository.NewUserRepository(db),
		jwtManager: jwtManager,
		cfg:        cfg,
		logger:     logger,
	}
}

// Login 用户登录
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("用户名或密码错误")
		}
		return nil, err
	}

	if err := utils.CheckPassword(req.Password, user.PasswordHash); err != nil {
		return nil, apperr.Unauthorized("用户名或密码错误")
	}

	if !user.IsActive {
		return nil, apperr.Forbidden("用户已被禁用")
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("生成Token失败: %w", err)
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("生成刷新Token失败: %w", err)
	}

	return &dto.LoginResponse{
		AccessToken:  token,
		RefreshToken: refresh,
		TokenType:    "bearer",
		User:         toUserInfo(user),
	}, nil
}

// Refresh 用刷新Token换取新的访问Token，角色以数据库中的当前值为准
func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.LoginResponse, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, apperr.Unauthorized("刷新Token无效或已过期")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("用户不存在")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("用户已被禁用")
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("生成Token失败: %w", err)
	}

	return &dto.LoginResponse{
		AccessToken:  token,
		RefreshToken: req.RefreshToken,
		TokenType:    "bearer",
		User:         toUserInfo(user),
	}, nil
}

// GetUser 获取用户
func (s *AuthService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// GetMe 获取当前用户信息
func (s *AuthService) GetMe(ctx context.Context, userID uint) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := toUserInfo(user)
	return &info, nil
}

// CreateUser 管理员创建用户
func (s *AuthService) CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserInfo, error) {
	if !utils.PasswordStrong(req.Password) {
		return nil, apperr.Validation("密码至少8位，且必须同时包含字母和数字")
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("检查用户名失败: %w", err)
	}
	if exists {
		return nil, apperr.Validation("用户名已存在")
	}

	role := models.Role(req.Role)
	if role == "" {
		role = models.RoleExpert
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: hashed,
		Role:         role,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	info := toUserInfo(user)
	return &info, nil
}

// ListUsers 分页获取用户
func (s *AuthService) ListUsers(ctx context.Context, page, perPage int) ([]dto.UserInfo, int64, error) {
	users, total, err := s.userRepo.List(ctx, (page-1)*perPage, perPage)
	if err != nil {
		return nil, 0, err
	}

	infos := make([]dto.UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, toUserInfo(&users[i]))
	}
	return infos, total, nil
}

// DeleteUser 删除用户，不能删除自己
func (s *AuthService) DeleteUser(ctx context.Context, currentUserID, userID uint) error {
	if currentUserID == userID {
		return apperr.Validation("不能删除当前登录的用户")
	}
	return s.userRepo.Delete(ctx, userID)
}

// InitAccounts 初始化管理员和可选的审核员账号，已存在时跳过
func (s *AuthService) InitAccounts(ctx context.Context) error {
	if err := s.ensureAccount(ctx, s.cfg.Admin, models.RoleAdmin); err != nil {
		return fmt.Errorf("初始化管理员失败: %w", err)
	}
	if s.cfg.Expert.Username != "" && s.cfg.Expert.Password != "" {
		if err := s.ensureAccount(ctx, s.cfg.Expert, models.RoleExpert); err != nil {
			return fmt.Errorf("初始化审核员失败: %w", err)
		}
	}
	return nil
}

func (s *AuthService) ensureAccount(ctx context.Context, account config.AccountConfig, role models.Role) error {
	exists, err := s.userRepo.ExistsByUsername(ctx, account.Username)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	// 配置中的密码可能已经是bcrypt哈希
	passwordHash := account.Password
	if !utils.IsBcryptHash(passwordHash) {
		hashed, err := utils.HashPassword(account.Password)
		if err != nil {
			return fmt.Errorf("密码哈希失败: %w", err)
		}
		passwordHash = hashed
	}

	user := &models.User{
		Username:     account.Username,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"username": user.Username, "role": role}).Info("已创建初始账号")
	return nil
}

func toUserInfo(user *models.User) dto.UserInfo {
	return dto.UserInfo{
		ID:        user.ID,
		Username:  user.Username,
		Role:      string(user.Role),
		IsActive:  user.IsActive,
		IsAdmin:   user.IsAdmin(),
		CreatedAt: user.CreatedAt,
	}
}
