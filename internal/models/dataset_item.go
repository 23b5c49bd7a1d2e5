package models

import (
	"time"
)

// ItemStatus 数据审核状态
type ItemStatus string

const (
	StatusPending      ItemStatus = "pending"
	StatusReviewing    ItemStatus = "reviewing"
	StatusRegenerating ItemStatus = "regenerating"
	StatusAccepted     ItemStatus = "accepted"
	StatusRejected     ItemStatus = "rejected"
	StatusDone         ItemStatus = "done"
)

// ActiveStatuses 仍可接受审核的状态
var ActiveStatuses = []ItemStatus{StatusPending, StatusReviewing, StatusRegenerating}

// IsActive 是否处于非终态
func (s ItemStatus) IsActive() bool {
	for _, active := range ActiveStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// DatasetItem 待审核的生成数据
//
// AcceptCount / RejectCount 不落库，每次读取时由审核记录聚合得到。
type DatasetItem struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	Instruction string     `gorm:"type:text" json:"instruction"`
	Input       string     `gorm:"type:text" json:"input"`
	Output      string     `gorm:"type:text;not null" json:"output"`
	System      string     `gorm:"type:text" json:"system"`
	History     History    `gorm:"type:text" json:"history"`
	Source      StringList `gorm:"type:text" json:"source"`
	ModelName   string     `gorm:"size:255;index" json:"model_name"`
	Status      ItemStatus `gorm:"size:20;not null;default:'pending';index" json:"review_status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	AcceptCount int64  `gorm:"-" json:"accept_count"`
	RejectCount int64  `gorm:"-" json:"reject_count"`
	ReviewerIDs []uint `gorm:"-" json:"reviewer_ids"`
}

// TableName 指定表名
func (DatasetItem) TableName() string {
	return "dataset_items"
}

// FinalDatasetItem 通过审核后冻结的数据
type FinalDatasetItem struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	OriginalInput string    `gorm:"type:text;not null" json:"original_input"`
	FinalOutput   string    `gorm:"type:text;not null" json:"final_output"`
	DatasetItemID uint      `gorm:"uniqueIndex;not null" json:"raw_dataset_id"`
	ModelName     string    `gorm:"size:255" json:"model_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName 指定表名
func (FinalDatasetItem) TableName() string {
	return "final_dataset"
}
