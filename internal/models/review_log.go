package models

import (
	"time"
)

// ReviewResult 审核结论
type ReviewResult string

const (
	ResultAccept ReviewResult = "ACCEPT"
	ResultReject ReviewResult = "REJECT"
)

// ReviewLogEntry 单条审核记录，同一数据同一审核员只允许一条
type ReviewLogEntry struct {
	ID             uint              `gorm:"primarykey" json:"id"`
	DatasetItemID  uint              `gorm:"not null;uniqueIndex:idx_review_item_reviewer" json:"dataset_id"`
	ReviewerID     uint              `gorm:"not null;uniqueIndex:idx_review_item_reviewer;index" json:"reviewer_id"`
	Result         ReviewResult      `gorm:"size:10;not null;index" json:"result"`
	Comment        string            `gorm:"type:text" json:"comment"`
	DetailedReason string            `gorm:"type:text" json:"detailed_reason"`
	ModelName      string            `gorm:"size:255;index" json:"model_name"`
	Reasons        []RejectionReason `gorm:"many2many:review_log_reasons;joinForeignKey:ReviewLogID;joinReferences:ReasonID" json:"reasons"`
	CreatedAt      time.Time         `gorm:"index" json:"timestamp"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

// TableName 指定表名
func (ReviewLogEntry) TableName() string {
	return "review_logs"
}

// ReasonIDs 返回选择的拒绝理由ID
func (e *ReviewLogEntry) ReasonIDs() []string {
	ids := make([]string, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		ids = append(ids, r.ID)
	}
	return ids
}

// RejectionReason 常见拒绝理由
type RejectionReason struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Label       string    `gorm:"size:100;not null" json:"label"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"size:50;index" json:"category"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (RejectionReason) TableName() string {
	return "rejection_reasons"
}
