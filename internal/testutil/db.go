package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"review-go/internal/models"

	"gorm.io/gorm"
)

var dbSeq int64

// OpenTestDB 打开一个已迁移的内存数据库，测试结束时关闭
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, atomic.AddInt64(&dbSeq, 1))

	db, err := models.InitDB(dsn)
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("迁移测试数据库失败: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateUser 创建测试用户
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "x", Role: role, IsActive: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	return user
}

// CreateItem 创建测试数据
func CreateItem(t *testing.T, db *gorm.DB, item *models.DatasetItem) *models.DatasetItem {
	t.Helper()
	if item.Status == "" {
		item.Status = models.StatusPending
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("创建数据失败: %v", err)
	}
	return item
}
