package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"review-go/internal/apperr"
	"review-go/internal/lock"
	"review-go/internal/models"
	"review-go/internal/repository"
	"review-go/internal/settings"
	"review-go/pkg/generator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Generator 文本生成能力
type Generator interface {
	Regenerate(ctx context.Context, target generator.Target, req generator.RegenerateRequest) (*generator.Candidate, error)
	FromArticles(ctx context.Context, target generator.Target, req generator.ArticleRequest) (*generator.Candidate, error)
}

// QueueOptions 队列参数
type QueueOptions struct {
	Workers       int
	QueueSize     int
	FallbackModel string
	Timeout       time.Duration
	SweepInterval time.Duration
}

// RecoveryReport 启动恢复结果
type RecoveryReport struct {
	Requeued    []string             `json:"requeued"`
	Interrupted []string             `json:"interrupted"`
	Stuck       []models.DatasetItem `json:"stuck"`
}

// RegenerationQueue 重新生成任务队列
//
// 任务先写入数据库再投递到内存通道。通道已满时任务保持 queued，由定期巡检重新投递；
// 进程重启后由 Recover 重新投递排队中的任务，执行中的任务标记为 interrupted，
// 对应数据作为卡住的数据报告给管理员。
type RegenerationQueue struct {
	db       *gorm.DB
	itemRepo *repository.DatasetRepository
	logRepo  *repository.ReviewLogRepository
	jobRepo  *repository.RegenerationJobRepository
	settings *settings.Store
	gen      Generator
	locker   *lock.ItemLocker
	opts     QueueOptions
	logger   logrus.FieldLogger

	jobs chan string
	wg   sync.WaitGroup

	// 已进入通道、尚未执行完的任务
	dispatchedMu sync.Mutex
	dispatched   map[string]struct{}

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewRegenerationQueue 创建任务队列
func NewRegenerationQueue(
	db *gorm.DB,
	settingsStore *settings.Store,
	gen Generator,
	locker *lock.ItemLocker,
	opts QueueOptions,
	logger logrus.FieldLogger,
) *RegenerationQueue {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 64
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 30 * time.Second
	}
	return &RegenerationQueue{
		db:         db,
		itemRepo:   repository.NewDatasetRepository(db),
		logRepo:    repository.NewReviewLogRepository(db),
		jobRepo:    repository.NewRegenerationJobRepository(db),
		settings:   settingsStore,
		gen:        gen,
		locker:     locker,
		opts:       opts,
		logger:     logger,
		jobs:       make(chan string, opts.QueueSize),
		dispatched: make(map[string]struct{}),
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start 启动worker，ctx 结束后worker退出
func (q *RegenerationQueue) Start(ctx context.Context) {
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	q.wg.Add(1)
	go q.sweep(ctx)
	q.logger.WithField("workers", q.opts.Workers).Info("重新生成队列已启动")
}

// Wait 等待所有worker退出
func (q *RegenerationQueue) Wait() {
	q.wg.Wait()
}

func (q *RegenerationQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-q.jobs:
			q.Run(ctx, jobID)
		}
	}
}

func (q *RegenerationQueue) sweep(ctx context.Context) {
	defer q.wg.Done()
	ticker := time.NewTicker(q.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := q.Resend(ctx)
			if err != nil {
				if ctx.Err() == nil {
					q.logger.WithError(err).Error("重新投递排队任务失败")
				}
				continue
			}
			if len(sent) > 0 {
				q.logger.WithField("jobs", len(sent)).Info("已重新投递排队任务")
			}
		}
	}
}

// Dispatch 投递已提交的任务，返回是否进入通道。
// 通道已满时任务仍保留在数据库中，由巡检或 Recover 重新投递
func (q *RegenerationQueue) Dispatch(job *models.RegenerationJob) bool {
	q.dispatchedMu.Lock()
	defer q.dispatchedMu.Unlock()
	if _, ok := q.dispatched[job.ID]; ok {
		return true
	}
	select {
	case q.jobs <- job.ID:
		q.dispatched[job.ID] = struct{}{}
		return true
	default:
		q.logger.WithFields(logrus.Fields{"job_id": job.ID, "item_id": job.DatasetItemID}).Warn("重新生成队列已满，任务保持排队状态")
		return false
	}
}

func (q *RegenerationQueue) isDispatched(jobID string) bool {
	q.dispatchedMu.Lock()
	defer q.dispatchedMu.Unlock()
	_, ok := q.dispatched[jobID]
	return ok
}

func (q *RegenerationQueue) release(jobID string) {
	q.dispatchedMu.Lock()
	delete(q.dispatched, jobID)
	q.dispatchedMu.Unlock()
}

// Resend 重新投递仍在排队但不在通道中的任务，通道再次填满时停止
func (q *RegenerationQueue) Resend(ctx context.Context) ([]string, error) {
	queued, err := q.jobRepo.ListByStatus(ctx, models.JobQueued)
	if err != nil {
		return nil, fmt.Errorf("读取排队中的任务失败: %w", err)
	}
	var sent []string
	for i := range queued {
		if q.isDispatched(queued[i].ID) {
			continue
		}
		if !q.Dispatch(&queued[i]) {
			break
		}
		sent = append(sent, queued[i].ID)
	}
	return sent, nil
}

// schedule 在事务中把数据标记为 regenerating 并写入任务，调用方在提交后 Dispatch
func (q *RegenerationQueue) schedule(ctx context.Context, tx *gorm.DB, item *models.DatasetItem, modelHint string, trigger models.JobTrigger) (*models.RegenerationJob, error) {
	from := []models.ItemStatus{models.StatusPending, models.StatusReviewing}
	if trigger == models.TriggerManual {
		from = append(from, models.StatusRejected, models.StatusDone)
	}

	ok, err := q.itemRepo.WithTx(tx).CompareAndSetStatus(ctx, item.ID, from, models.StatusRegenerating)
	if err != nil {
		return nil, fmt.Errorf("更新数据状态失败: %w", err)
	}
	if !ok {
		return nil, apperr.Conflict(fmt.Sprintf("数据 %d 当前状态不能重新生成", item.ID))
	}

	job := &models.RegenerationJob{
		ID:            uuid.NewString(),
		DatasetItemID: item.ID,
		ModelHint:     strings.TrimSpace(modelHint),
		Trigger:       trigger,
		Status:        models.JobQueued,
	}
	if err := q.jobRepo.WithTx(tx).Create(ctx, job); err != nil {
		return nil, fmt.Errorf("创建重新生成任务失败: %w", err)
	}

	q.logger.WithFields(logrus.Fields{
		"item_id": item.ID,
		"job_id":  job.ID,
		"trigger": trigger,
	}).Info("已安排重新生成")
	return job, nil
}

// Trigger 管理员手动触发重新生成
func (q *RegenerationQueue) Trigger(ctx context.Context, itemID uint, modelHint string) (*models.RegenerationJob, error) {
	unlock, err := q.locker.Lock(ctx, itemID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var job *models.RegenerationJob
	err = q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := q.itemRepo.WithTx(tx).GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		switch item.Status {
		case models.StatusRegenerating:
			return apperr.Conflict(fmt.Sprintf("数据 %d 正在重新生成", itemID))
		case models.StatusAccepted:
			return apperr.Conflict(fmt.Sprintf("数据 %d 已通过审核", itemID))
		}

		job, err = q.schedule(ctx, tx, item, modelHint, models.TriggerManual)
		return err
	})
	if err != nil {
		return nil, err
	}

	q.Dispatch(job)
	return job, nil
}

// Run 执行一个任务。生成失败时数据保持 regenerating，任务记录为 failed，不自动重试
func (q *RegenerationQueue) Run(ctx context.Context, jobID string) {
	defer q.release(jobID)
	logger := q.logger.WithField("job_id", jobID)

	job, err := q.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		logger.WithError(err).Error("读取重新生成任务失败")
		return
	}
	if job.Status != models.JobQueued {
		return
	}
	logger = logger.WithField("item_id", job.DatasetItemID)

	item, err := q.itemRepo.GetByID(ctx, job.DatasetItemID)
	if err != nil {
		logger.WithError(err).Warn("数据不存在，放弃重新生成")
		q.finish(ctx, job.ID, models.JobFailed, apperr.Message(err))
		return
	}
	if item.Status != models.StatusRegenerating {
		logger.WithField("status", item.Status).Warn("数据已不在重新生成状态，丢弃任务")
		q.finish(ctx, job.ID, models.JobDiscarded, "数据状态已变化")
		return
	}

	rejections, err := q.logRepo.ListByItem(ctx, item.ID, models.ResultReject)
	if err != nil {
		logger.WithError(err).Error("读取拒绝意见失败")
		q.finish(ctx, job.ID, models.JobFailed, err.Error())
		return
	}
	feedback := collectFeedback(rejections)

	model, err := q.ResolveModel(ctx, job.ModelHint)
	if err != nil {
		logger.WithError(err).Error("解析生成模型失败")
		q.finish(ctx, job.ID, models.JobFailed, err.Error())
		return
	}
	baseURL, err := q.settings.GeneratorBaseURL(ctx)
	if err != nil {
		logger.WithError(err).Error("读取生成服务地址失败")
		q.finish(ctx, job.ID, models.JobFailed, err.Error())
		return
	}

	started, err := q.jobRepo.MarkRunning(ctx, job.ID, model)
	if err != nil {
		logger.WithError(err).Error("标记任务执行中失败")
		return
	}
	if !started {
		logger.Debug("任务已被其他worker领取")
		return
	}
	logger = logger.WithField("model", model)
	logger.Info("开始重新生成")

	genCtx := ctx
	if q.opts.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, q.opts.Timeout)
		defer cancel()
	}

	candidate, err := q.gen.Regenerate(genCtx, generator.Target{BaseURL: baseURL, Model: model}, generator.RegenerateRequest{
		Instruction: item.Instruction,
		Input:       item.Input,
		Output:      item.Output,
		System:      item.System,
		Source:      item.Source,
		Feedback:    feedback,
	})
	if err != nil && ctx.Err() != nil {
		logger.WithError(err).Warn("进程退出，重新生成被中断")
		q.finish(context.Background(), job.ID, models.JobInterrupted, "进程退出")
		return
	}
	if err != nil {
		logger.WithError(err).Error("重新生成失败，数据保持 regenerating 等待人工处理")
		q.finish(context.Background(), job.ID, models.JobFailed, err.Error())
		return
	}

	status, err := q.apply(ctx, job, candidate, model, feedback)
	if err != nil {
		logger.WithError(err).Error("写入重新生成结果失败")
		q.finish(context.Background(), job.ID, models.JobFailed, err.Error())
		return
	}
	logger.WithField("status", status).Info("重新生成结束")
}

// apply 保存历史、覆盖内容、清空审核记录；只有仍处于 regenerating 的数据会被更新
func (q *RegenerationQueue) apply(ctx context.Context, job *models.RegenerationJob, candidate *generator.Candidate, model string, feedback []string) (models.JobStatus, error) {
	unlock, err := q.locker.Lock(ctx, job.DatasetItemID)
	if err != nil {
		return "", err
	}
	defer unlock()

	status := models.JobSucceeded
	err = q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := q.itemRepo.WithTx(tx)
		logs := q.logRepo.WithTx(tx)
		jobs := q.jobRepo.WithTx(tx)

		item, err := items.GetByID(ctx, job.DatasetItemID)
		if err != nil {
			return err
		}
		if item.Status != models.StatusRegenerating {
			status = models.JobDiscarded
			return jobs.Finish(ctx, job.ID, status, "数据状态已变化")
		}

		counts, err := logs.CountsForItem(ctx, item.ID)
		if err != nil {
			return err
		}

		item.History = append(item.History, models.HistoryEntry{
			Instruction:      item.Instruction,
			Input:            item.Input,
			Output:           item.Output,
			ModelName:        item.ModelName,
			AcceptCount:      counts.Accept,
			RejectCount:      counts.Reject,
			RejectionReasons: feedback,
		})
		item.Instruction = candidate.Instruction
		item.Input = candidate.Input
		item.Output = candidate.Output
		item.ModelName = model

		applied, err := items.ApplyRegeneration(ctx, item)
		if err != nil {
			return err
		}
		if !applied {
			status = models.JobDiscarded
			return jobs.Finish(ctx, job.ID, status, "其他任务已先完成")
		}

		if _, err := logs.DeleteByItem(ctx, item.ID); err != nil {
			return err
		}
		return jobs.Finish(ctx, job.ID, status, "")
	})
	return status, err
}

func (q *RegenerationQueue) finish(ctx context.Context, jobID string, status models.JobStatus, msg string) {
	if err := q.jobRepo.Finish(ctx, jobID, status, msg); err != nil {
		q.logger.WithError(err).WithField("job_id", jobID).Error("更新任务状态失败")
	}
}

// ResolveModel 选择生成模型：显式指定 > 模型列表随机 > 默认模型设置 > 内置后备模型
func (q *RegenerationQueue) ResolveModel(ctx context.Context, hint string) (string, error) {
	if hint = strings.TrimSpace(hint); hint != "" {
		return hint, nil
	}

	list, err := q.settings.GeneratorModels(ctx)
	if err != nil {
		return "", err
	}
	if len(list) > 0 {
		q.randMu.Lock()
		defer q.randMu.Unlock()
		return list[q.rand.Intn(len(list))], nil
	}

	model, err := q.settings.GeneratorModel(ctx)
	if err != nil {
		return "", err
	}
	if model != "" {
		return model, nil
	}
	return q.opts.FallbackModel, nil
}

// Recover 进程启动时调用：重新投递排队中的任务，标记中断的任务并报告卡住的数据
func (q *RegenerationQueue) Recover(ctx context.Context) (*RecoveryReport, error) {
	report := &RecoveryReport{}

	running, err := q.jobRepo.ListByStatus(ctx, models.JobRunning)
	if err != nil {
		return nil, fmt.Errorf("读取执行中的任务失败: %w", err)
	}
	for _, job := range running {
		if err := q.jobRepo.Finish(ctx, job.ID, models.JobInterrupted, "进程重启时任务仍在执行"); err != nil {
			return nil, fmt.Errorf("标记中断任务失败: %w", err)
		}
		report.Interrupted = append(report.Interrupted, job.ID)
	}

	report.Requeued, err = q.Resend(ctx)
	if err != nil {
		return nil, err
	}

	report.Stuck, err = q.ListStuck(ctx)
	if err != nil {
		return nil, err
	}

	q.logger.WithFields(logrus.Fields{
		"requeued":    len(report.Requeued),
		"interrupted": len(report.Interrupted),
		"stuck":       len(report.Stuck),
	}).Info("重新生成任务恢复完成")
	for _, item := range report.Stuck {
		q.logger.WithField("item_id", item.ID).Warn("数据卡在 regenerating 状态，需要管理员重新触发")
	}
	return report, nil
}

// ListStuck 处于 regenerating 但没有执行中、也没有已投递任务的数据。
// 因通道已满而未投递的排队任务不算在内
func (q *RegenerationQueue) ListStuck(ctx context.Context) ([]models.DatasetItem, error) {
	items, err := q.itemRepo.ListByStatus(ctx, models.StatusRegenerating)
	if err != nil {
		return nil, fmt.Errorf("读取重新生成中的数据失败: %w", err)
	}

	stuck := make([]models.DatasetItem, 0)
	for _, item := range items {
		active, err := q.hasActiveJob(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if !active {
			stuck = append(stuck, item)
		}
	}
	return stuck, nil
}

// hasActiveJob 数据是否有执行中或已进入通道的任务
func (q *RegenerationQueue) hasActiveJob(ctx context.Context, itemID uint) (bool, error) {
	jobs, err := q.jobRepo.ListOutstanding(ctx, itemID)
	if err != nil {
		return false, fmt.Errorf("读取任务失败: %w", err)
	}
	for _, job := range jobs {
		if job.Status == models.JobRunning || q.isDispatched(job.ID) {
			return true, nil
		}
	}
	return false, nil
}

// ListJobs 数据的全部重新生成任务
func (q *RegenerationQueue) ListJobs(ctx context.Context, itemID uint) ([]models.RegenerationJob, error) {
	if _, err := q.itemRepo.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return q.jobRepo.ListByItem(ctx, itemID)
}

// Retry 重新触发卡住的数据，未能投递的排队任务会被新任务取代
func (q *RegenerationQueue) Retry(ctx context.Context, itemID uint, modelHint string) (*models.RegenerationJob, error) {
	unlock, err := q.locker.Lock(ctx, itemID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	item, err := q.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.StatusRegenerating {
		return nil, apperr.Conflict(fmt.Sprintf("数据 %d 不在重新生成状态", itemID))
	}

	active, err := q.hasActiveJob(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, apperr.Conflict(fmt.Sprintf("数据 %d 已有进行中的任务", itemID))
	}

	pending, err := q.jobRepo.ListOutstanding(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("读取任务失败: %w", err)
	}
	for _, old := range pending {
		discarded, err := q.jobRepo.DiscardQueued(ctx, old.ID, "已被重新触发的任务取代")
		if err != nil {
			return nil, fmt.Errorf("更新任务状态失败: %w", err)
		}
		if !discarded {
			return nil, apperr.Conflict(fmt.Sprintf("数据 %d 已有进行中的任务", itemID))
		}
	}

	job := &models.RegenerationJob{
		ID:            uuid.NewString(),
		DatasetItemID: itemID,
		ModelHint:     strings.TrimSpace(modelHint),
		Trigger:       models.TriggerManual,
		Status:        models.JobQueued,
	}
	if err := q.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("创建重新生成任务失败: %w", err)
	}

	q.Dispatch(job)
	return job, nil
}

// collectFeedback 汇总拒绝意见：评论、详细原因和所选拒绝理由
func collectFeedback(entries []models.ReviewLogEntry) []string {
	var feedback []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		feedback = append(feedback, s)
	}

	for _, entry := range entries {
		add(entry.Comment)
		add(entry.DetailedReason)
		for _, reason := range entry.Reasons {
			add(reason.Label)
		}
	}
	return feedback
}
