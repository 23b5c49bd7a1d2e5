package handler

import (
	"review-go/internal/dto"
	"review-go/internal/service"
	"review-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// GenerationHandler 根据条文生成数据
type GenerationHandler struct {
	generationService *service.GenerationService
}

// NewGenerationHandler 创建生成处理器
func NewGenerationHandler(generationService *service.GenerationService) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
	}
}

// Generate 生成一条候选数据，不保存
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if !bindJSON(c, &req) {
		return
	}

	candidate, err := h.generationService.Generate(c.Request.Context(), &req)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessResponse(c, candidate)
}

// GenerateBatch 批量生成候选数据，不保存
func (h *GenerationHandler) GenerateBatch(c *gin.Context) {
	var req dto.BatchGenerateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.generationService.GenerateBatch(c.Request.Context(), &req)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessResponse(c, resp)
}

// Confirm 保存确认的候选数据
func (h *GenerationHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmRequest
	if !bindJSON(c, &req) {
		return
	}

	items, err := h.generationService.Confirm(c.Request.Context(), req.Candidates)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.Created(c, items)
}
