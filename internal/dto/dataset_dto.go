package dto

import (
	"review-go/internal/models"
)

// DatasetInput 创建数据请求
type DatasetInput struct {
	Instruction string                `json:"instruction"`
	Input       string                `json:"input"`
	Output      string                `json:"output" binding:"required"`
	System      string                `json:"system"`
	History     []models.HistoryEntry `json:"history"`
	Source      []string              `json:"source"`
	ModelName   string                `json:"model_name"`
}

// BatchCreateRequest 批量创建请求
type BatchCreateRequest struct {
	Items []DatasetInput `json:"items" binding:"required,dive"`
}

// DatasetUpdate 更新数据请求，为空的字段不修改
type DatasetUpdate struct {
	Instruction *string   `json:"instruction"`
	Input       *string   `json:"input"`
	Output      *string   `json:"output"`
	System      *string   `json:"system"`
	Source      *[]string `json:"source"`
	ModelName   *string   `json:"model_name"`
}

// RegenerateRequest 手动重新生成请求
type RegenerateRequest struct {
	Model string `json:"model"`
}

// RegenerateResponse 手动重新生成响应
type RegenerateResponse struct {
	DatasetID uint   `json:"dataset_id"`
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
}

// ImportResponse 导入结果
type ImportResponse struct {
	Imported int    `json:"imported"`
	IDs      []uint `json:"ids"`
}

// RejectionFeedback 一条拒绝意见
type RejectionFeedback struct {
	ReviewID       uint                     `json:"review_id"`
	ReviewerID     uint                     `json:"reviewer_id"`
	Reviewer       string                   `json:"reviewer"`
	Comment        string                   `json:"comment"`
	DetailedReason string                   `json:"detailed_reason"`
	ReasonIDs      []string                 `json:"reason_ids"`
	Reasons        []models.RejectionReason `json:"reasons"`
	Timestamp      string                   `json:"timestamp"`
}
