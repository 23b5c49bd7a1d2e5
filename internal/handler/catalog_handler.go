package handler

import (
	"review-go/internal/dto"
	"review-go/internal/service"
	"review-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// CatalogHandler 拒绝理由和条文
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler 创建目录处理器
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// ListReasons 拒绝理由列表，include_inactive=true 时包含已停用的理由
func (h *CatalogHandler) ListReasons(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"

	reasons, err := h.catalogService.ListReasons(c.Request.Context(), includeInactive)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessResponse(c, reasons)
}

// CreateReason 新增拒绝理由
func (h *CatalogHandler) CreateReason(c *gin.Context) {
	var req dto.ReasonRequest
	if !bindJSON(c, &req) {
		return
	}

	reason, err := h.catalogService.CreateReason(c.Request.Context(), &req)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.Created(c, reason)
}

// UpdateReason 修改或停用拒绝理由
func (h *CatalogHandler) UpdateReason(c *gin.Context) {
	var req dto.ReasonRequest
	req.ID = c.Param("reason_id")
	if !bindJSON(c, &req) {
		return
	}

	reason, err := h.catalogService.UpdateReason(c.Request.Context(), c.Param("reason_id"), &req)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessWithMessage(c, "更新成功", reason)
}

// ListArticles 条文列表
func (h *CatalogHandler) ListArticles(c *gin.Context) {
	page, perPage := pagination(c)

	articles, total, err := h.catalogService.ListArticles(c.Request.Context(), page, perPage)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.PaginatedResponse(c, articles, total, page, perPage)
}

// SearchArticle 按标题和条号查找
func (h *CatalogHandler) SearchArticle(c *gin.Context) {
	title, number := c.Query("title"), c.Query("number")
	if title == "" || number == "" {
		utils.BadRequest(c, "title 和 number 不能为空")
		return
	}

	article, err := h.catalogService.SearchArticle(c.Request.Context(), title, number)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessResponse(c, article)
}

// CreateArticles 批量新增条文
func (h *CatalogHandler) CreateArticles(c *gin.Context) {
	var req dto.ArticlesRequest
	if !bindJSON(c, &req) {
		return
	}

	articles, err := h.catalogService.CreateArticles(c.Request.Context(), req.Articles)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.Created(c, articles)
}

// UpdateArticle 修改条文
func (h *CatalogHandler) UpdateArticle(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.ArticleInput
	if !bindJSON(c, &req) {
		return
	}

	article, err := h.catalogService.UpdateArticle(c.Request.Context(), id, &req)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessWithMessage(c, "更新成功", article)
}

// DeleteArticle 删除条文
func (h *CatalogHandler) DeleteArticle(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteArticle(c.Request.Context(), id); err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessWithMessage(c, "删除成功", nil)
}
