package models

import (
	"time"
)

// JobStatus 重新生成任务状态
type JobStatus string

const (
	JobQueued      JobStatus = "queued"
	JobRunning     JobStatus = "running"
	JobSucceeded   JobStatus = "succeeded"
	JobFailed      JobStatus = "failed"
	JobInterrupted JobStatus = "interrupted"
	JobDiscarded   JobStatus = "discarded"
)

// JobTrigger 任务来源
type JobTrigger string

const (
	TriggerAuto   JobTrigger = "auto"
	TriggerManual JobTrigger = "manual"
)

// RegenerationJob 持久化的重新生成任务，进程重启后据此恢复或标记卡住的数据
type RegenerationJob struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	DatasetItemID uint       `gorm:"not null;index" json:"dataset_id"`
	ModelHint     string     `gorm:"size:255" json:"model_hint"`
	ModelName     string     `gorm:"size:255" json:"model_name"`
	Trigger       JobTrigger `gorm:"size:20;not null" json:"trigger"`
	Status        JobStatus  `gorm:"size:20;not null;index" json:"status"`
	Error         string     `gorm:"type:text" json:"error"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
}

// TableName 指定表名
func (RegenerationJob) TableName() string {
	return "regeneration_jobs"
}

// IsOutstanding 是否仍在排队或执行
func (j *RegenerationJob) IsOutstanding() bool {
	return j.Status == JobQueued || j.Status == JobRunning
}
