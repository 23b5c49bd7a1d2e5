package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.seed(ctx); err != nil {
		return err
	}
	a.logger.Info("数据库迁移完成")
	return nil
}

// runRecover 只检查不执行：中断执行中的任务并列出卡住的数据，排队中的任务留给服务启动时处理
func runRecover(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.services.Queue.Recover(ctx)
	if err != nil {
		return err
	}

	for _, item := range report.Stuck {
		a.logger.WithFields(logrus.Fields{
			"item_id":    item.ID,
			"model_name": item.ModelName,
			"updated_at": item.UpdatedAt,
		}).Warn("卡住的数据")
	}
	a.logger.WithFields(logrus.Fields{
		"queued":      len(report.Requeued),
		"interrupted": len(report.Interrupted),
		"stuck":       len(report.Stuck),
	}).Info("检查完成")
	return nil
}
