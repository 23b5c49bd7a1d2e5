package dto

import (
	"review-go/internal/models"
)

// SubmitReviewRequest 提交审核请求
type SubmitReviewRequest struct {
	Result         string   `json:"result" binding:"required,review_result"`
	Comment        string   `json:"comment"`
	DetailedReason string   `json:"detailed_reason"`
	ReasonIDs      []string `json:"reason_ids"`
}

// ReviewOutcome 审核提交结果
type ReviewOutcome struct {
	Review            *models.ReviewLogEntry `json:"review"`
	AcceptCount       int64                  `json:"accept_count"`
	RejectCount       int64                  `json:"reject_count"`
	Status            models.ItemStatus      `json:"review_status"`
	Promoted          bool                   `json:"promoted"`
	FinalDatasetID    uint                   `json:"final_dataset_id,omitempty"`
	RegenerationJobID string                 `json:"regeneration_job_id,omitempty"`
}

// ReasonRequest 创建或更新拒绝理由
type ReasonRequest struct {
	ID          string `json:"id" binding:"required,max=64"`
	Label       string `json:"label" binding:"required,max=100"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"max=50"`
	IsActive    *bool  `json:"is_active"`
}
