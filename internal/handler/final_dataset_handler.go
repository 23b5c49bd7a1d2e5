package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"review-go/internal/service"
	"review-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// FinalDatasetHandler 最终数据集处理器
type FinalDatasetHandler struct {
	finalService *service.FinalDatasetService
}

// NewFinalDatasetHandler 创建最终数据集处理器
func NewFinalDatasetHandler(finalService *service.FinalDatasetService) *FinalDatasetHandler {
	return &FinalDatasetHandler{
		finalService: finalService,
	}
}

// List 分页获取最终数据
func (h *FinalDatasetHandler) List(c *gin.Context) {
	page, perPage := pagination(c)

	items, total, err := h.finalService.List(c.Request.Context(), page, perPage)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.PaginatedResponse(c, items, total, page, perPage)
}

// Delete 删除一条最终数据
func (h *FinalDatasetHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.finalService.Delete(c.Request.Context(), id); err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessWithMessage(c, "删除成功", nil)
}

// DeleteAll 清空最终数据集
func (h *FinalDatasetHandler) DeleteAll(c *gin.Context) {
	deleted, err := h.finalService.DeleteAll(c.Request.Context())
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessWithMessage(c, "已清空", gin.H{"deleted": deleted})
}

// Export 导出为 jsonl 或 csv
func (h *FinalDatasetHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", service.ExportJSONL)

	var buf bytes.Buffer
	if err := h.finalService.Export(c.Request.Context(), &buf, format); err != nil {
		utils.ErrorFromApp(c, err)
		return
	}

	contentType := "application/x-ndjson"
	if format == service.ExportCSV {
		contentType = "text/csv; charset=utf-8"
	}

	filename := fmt.Sprintf("final_dataset_%s.%s", time.Now().Format("20060102_150405"), format)
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
