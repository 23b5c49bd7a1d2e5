package handler

import (
	"review-go/internal/dto"
	"review-go/internal/middleware"
	"review-go/internal/service"
	"review-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// ReviewHandler 审核处理器
type ReviewHandler struct {
	reviewService *service.ReviewService
}

// NewReviewHandler 创建审核处理器
func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
	}
}

// Submit 提交审核
// @Summary 提交审核
// @Tags 审核
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "数据ID"
// @Param request body dto.SubmitReviewRequest true "审核结论"
// @Success 200 {object} utils.Response{data=dto.ReviewOutcome}
// @Router /api/review/{id} [post]
func (h *ReviewHandler) Submit(c *gin.Context) {
	reviewerID, _ := middleware.GetUserID(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.SubmitReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	outcome, err := h.reviewService.SubmitReview(c.Request.Context(), id, reviewerID, &req)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}

	utils.SuccessWithMessage(c, "审核已提交", outcome)
}

// MyReviews 当前审核员的审核记录
func (h *ReviewHandler) MyReviews(c *gin.Context) {
	reviewerID, _ := middleware.GetUserID(c)
	page, perPage := pagination(c)

	entries, total, err := h.reviewService.MyReviews(c.Request.Context(), reviewerID, page, perPage)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.PaginatedResponse(c, entries, total, page, perPage)
}
