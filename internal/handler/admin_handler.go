package handler

import (
	"review-go/internal/dto"
	"review-go/internal/middleware"
	"review-go/internal/service"
	"review-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler 管理员处理器：用户、系统设置和重新生成任务
type AdminHandler struct {
	authService     *service.AuthService
	settingsService *service.SettingsService
	queue           *service.RegenerationQueue
}

// NewAdminHandler 创建管理员处理器
func NewAdminHandler(
	authService *service.AuthService,
	settingsService *service.SettingsService,
	queue *service.RegenerationQueue,
) *AdminHandler {
	return &AdminHandler{
		authService:     authService,
		settingsService: settingsService,
		queue:           queue,
	}
}

// ListUsers 获取用户列表
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, perPage := pagination(c)

	users, total, err := h.authService.ListUsers(c.Request.Context(), page, perPage)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}

	utils.PaginatedResponse(c, users, total, page, perPage)
}

// CreateUser 创建用户
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.CreateUser(c.Request.Context(), &req)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}

	utils.Created(c, user)
}

// DeleteUser 删除用户
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	currentUserID, _ := middleware.GetUserID(c)
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	if err := h.authService.DeleteUser(c.Request.Context(), currentUserID, userID); err != nil {
		utils.ErrorFromApp(c, err)
		return
	}

	utils.SuccessWithMessage(c, "删除成功", nil)
}

// GetSettings 获取全部生效的设置
func (h *AdminHandler) GetSettings(c *gin.Context) {
	entries, err := h.settingsService.All(c.Request.Context())
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessResponse(c, entries)
}

// UpdateSettings 更新设置
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req dto.SettingsUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req) == 0 {
		utils.BadRequest(c, "没有需要更新的设置")
		return
	}

	entries, err := h.settingsService.Update(c.Request.Context(), req)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessWithMessage(c, "设置已更新", entries)
}

// TestGenerator 测试生成服务连接
func (h *AdminHandler) TestGenerator(c *gin.Context) {
	var req dto.GeneratorTestRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	resp, err := h.settingsService.TestGenerator(c.Request.Context(), req.BaseURL)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessResponse(c, resp)
}

// ListModels 获取生成服务上的模型
func (h *AdminHandler) ListModels(c *gin.Context) {
	list, err := h.settingsService.Models(c.Request.Context())
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"models": list})
}

// ListStuck 卡在 regenerating 的数据
func (h *AdminHandler) ListStuck(c *gin.Context) {
	items, err := h.queue.ListStuck(c.Request.Context())
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessResponse(c, items)
}
