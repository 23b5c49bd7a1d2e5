package models

import (
	"time"
)

// Setting 系统设置，值以JSON存储
type Setting struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	Key       string    `gorm:"uniqueIndex;size:100;not null" json:"key"`
	Value     JSONValue `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Setting) TableName() string {
	return "system_settings"
}

// SourceArticle 生成数据时引用的条文
type SourceArticle struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Title     string    `gorm:"size:255;not null;index:idx_article_title_number" json:"title"`
	Number    string    `gorm:"size:50;not null;index:idx_article_title_number" json:"number"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (SourceArticle) TableName() string {
	return "source_articles"
}

// Citation 引用名称，例如 "个人信息保护法第13条"
func (a *SourceArticle) Citation() string {
	return a.Title + "第" + a.Number + "条"
}
