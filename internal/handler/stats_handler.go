package handler

import (
	"review-go/internal/middleware"
	"review-go/internal/service"
	"review-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// StatsHandler 统计处理器
type StatsHandler struct {
	statsService *service.StatsService
	authService  *service.AuthService
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(statsService *service.StatsService, authService *service.AuthService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		authService:  authService,
	}
}

// Dashboard 统计面板，内容按当前用户角色决定
func (h *StatsHandler) Dashboard(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}

	dashboard, err := h.statsService.Dashboard(c.Request.Context(), user)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessResponse(c, dashboard)
}

// ModelStats 按模型统计
func (h *StatsHandler) ModelStats(c *gin.Context) {
	result, err := h.statsService.ModelStats(c.Request.Context())
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessResponse(c, result)
}
