package handler

import (
	"io"

	"review-go/internal/dto"
	"review-go/internal/service"
	"review-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// maxImportSize 导入文件大小上限
const maxImportSize = 32 << 20

// DatasetHandler 待审核数据处理器
type DatasetHandler struct {
	datasetService *service.DatasetService
	queue          *service.RegenerationQueue
}

// NewDatasetHandler 创建数据处理器
func NewDatasetHandler(datasetService *service.DatasetService, queue *service.RegenerationQueue) *DatasetHandler {
	return &DatasetHandler{
		datasetService: datasetService,
		queue:          queue,
	}
}

// List 分页获取未结束审核的数据
func (h *DatasetHandler) List(c *gin.Context) {
	page, perPage := pagination(c)

	items, total, err := h.datasetService.List(c.Request.Context(), page, perPage)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}

	utils.PaginatedResponse(c, items, total, page, perPage)
}

// Get 获取单条数据
func (h *DatasetHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	item, err := h.datasetService.Get(c.Request.Context(), id)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessResponse(c, item)
}

// Create 创建数据
func (h *DatasetHandler) Create(c *gin.Context) {
	var req dto.DatasetInput
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.datasetService.Create(c.Request.Context(), &req)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.Created(c, item)
}

// CreateBatch 批量创建
func (h *DatasetHandler) CreateBatch(c *gin.Context) {
	var req dto.BatchCreateRequest
	if !bindJSON(c, &req) {
		return
	}

	items, err := h.datasetService.CreateBatch(c.Request.Context(), req.Items)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.Created(c, items)
}

// Import 上传JSON或JSONL文件导入
func (h *DatasetHandler) Import(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "文件上传失败: "+err.Error())
		return
	}
	if file.Size > maxImportSize {
		utils.BadRequest(c, "文件过大")
		return
	}

	src, err := file.Open()
	if err != nil {
		utils.BadRequest(c, "打开文件失败: "+err.Error())
		return
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		utils.BadRequest(c, "读取文件失败: "+err.Error())
		return
	}

	items, err := h.datasetService.Import(c.Request.Context(), content)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}

	resp := dto.ImportResponse{Imported: len(items), IDs: make([]uint, 0, len(items))}
	for _, item := range items {
		resp.IDs = append(resp.IDs, item.ID)
	}
	utils.SuccessWithMessage(c, "导入成功", resp)
}

// Update 修改数据
func (h *DatasetHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.DatasetUpdate
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.datasetService.Update(c.Request.Context(), id, &req)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessWithMessage(c, "更新成功", item)
}

// Delete 删除数据
func (h *DatasetHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.datasetService.Delete(c.Request.Context(), id); err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessWithMessage(c, "删除成功", nil)
}

// Rejections 数据的拒绝意见
func (h *DatasetHandler) Rejections(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	feedback, err := h.datasetService.Rejections(c.Request.Context(), id)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessResponse(c, feedback)
}

// Regenerate 手动触发重新生成，任务在后台执行
func (h *DatasetHandler) Regenerate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.RegenerateRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	job, err := h.queue.Trigger(c.Request.Context(), id, req.Model)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}

	utils.Accepted(c, "已开始重新生成", dto.RegenerateResponse{
		DatasetID: id,
		JobID:     job.ID,
		Status:    string(job.Status),
	})
}

// RetryStuck 重新触发卡住的数据
func (h *DatasetHandler) RetryStuck(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.RegenerateRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	job, err := h.queue.Retry(c.Request.Context(), id, req.Model)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}

	utils.Accepted(c, "已重新提交", dto.RegenerateResponse{
		DatasetID: id,
		JobID:     job.ID,
		Status:    string(job.Status),
	})
}

// Jobs 数据的重新生成任务
func (h *DatasetHandler) Jobs(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	jobs, err := h.queue.ListJobs(c.Request.Context(), id)
	if err != nil {
		utils.ErrorFromApp(c, err)
		return
	}
	utils.SuccessResponse(c, jobs)
}
