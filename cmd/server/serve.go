package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"review-go/internal/router"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.seed(ctx); err != nil {
		a.logger.WithError(err).Warn("初始化数据失败")
	}

	queue := a.services.Queue
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	queue.Start(workerCtx)

	if _, err := queue.Recover(ctx); err != nil {
		a.logger.WithError(err).Error("恢复重新生成任务失败")
	}

	srv := &http.Server{
		Addr:    a.cfg.Server.GetAddress(),
		Handler: router.SetupRouter(a.cfg, a.jwtManager, a.logger, a.services),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("服务器启动在 %s", srv.Addr)
		if !a.cfg.Server.ProductionMode {
			a.logger.Infof("管理员账号: %s", a.cfg.Admin.Username)
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("收到退出信号，正在关闭服务")
	case err := <-errCh:
		if err != nil {
			cancelWorkers()
			queue.Wait()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("关闭HTTP服务失败")
	}

	// 执行中的任务会被取消并记录为 interrupted，排队中的任务下次启动时重新投递
	cancelWorkers()
	queue.Wait()
	a.logger.Info("服务已退出")
	return nil
}
