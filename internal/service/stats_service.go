package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"review-go/internal/models"
	"review-go/internal/repository"

	"gorm.io/gorm"
)

const (
	activityDays = 30
	topK         = 5
	unknownModel = "unknown"
)

// GlobalStats 全局统计，TotalDatasets 不含已通过的数据，最终数据单独计数
type GlobalStats struct {
	TotalDatasets int64 `json:"total_datasets"`
	TotalFinal    int64 `json:"total_final"`
	TotalReviews  int64 `json:"total_reviews"`
	TotalAccepts  int64 `json:"total_accepts"`
	TotalRejects  int64 `json:"total_rejects"`
}

// PersonalStats 审核员个人统计
type PersonalStats struct {
	TotalReviews  int64 `json:"total_reviews"`
	TotalAccepts  int64 `json:"total_accepts"`
	TotalRejects  int64 `json:"total_rejects"`
	ItemsReviewed int64 `json:"items_reviewed"`
}

// ActivityPoint 某天的审核数量
type ActivityPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// TopReviewer 审核量排行
type TopReviewer struct {
	ReviewerID  uint   `json:"reviewer_id"`
	Username    string `json:"username"`
	ReviewCount int64  `json:"review_count"`
}

// CommonRejection 常见拒绝意见
type CommonRejection struct {
	Reason string `json:"reason"`
	Count  int64  `json:"count"`
}

// ModelStats 按生成模型统计
type ModelStats struct {
	ModelName      string  `json:"model_name"`
	ItemCount      int64   `json:"item_count"`
	FinalCount     int64   `json:"final_count"`
	ReviewCount    int64   `json:"review_count"`
	AcceptCount    int64   `json:"accept_count"`
	RejectCount    int64   `json:"reject_count"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

// Dashboard 统计面板，管理员看到全局数据，审核员只看到自己的数据
type Dashboard struct {
	Role             models.Role       `json:"role"`
	Global           *GlobalStats      `json:"global,omitempty"`
	Personal         *PersonalStats    `json:"personal,omitempty"`
	Activity         []ActivityPoint   `json:"activity"`
	TopReviewers     []TopReviewer     `json:"top_reviewers,omitempty"`
	CommonRejections []CommonRejection `json:"common_rejections"`
	ModelStats       []ModelStats      `json:"model_stats,omitempty"`
}

// StatsService 统计服务，所有结果都从审核记录即时计算
type StatsService struct {
	itemRepo  *repository.DatasetRepository
	logRepo   *repository.ReviewLogRepository
	finalRepo *repository.FinalDatasetRepository
	now       func() time.Time
}

// NewStatsService 创建统计服务
func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{
		itemRepo:  repository.NewDatasetRepository(db),
		logRepo:   repository.NewReviewLogRepository(db),
		finalRepo: repository.NewFinalDatasetRepository(db),
		now:       time.Now,
	}
}

// Global 全局统计
func (s *StatsService) Global(ctx context.Context) (*GlobalStats, error) {
	active, err := s.itemRepo.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("统计数据数量失败: %w", err)
	}
	final, err := s.finalRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("统计最终数据失败: %w", err)
	}
	counts, err := s.logRepo.CountByResult(ctx, repository.ReviewFilter{})
	if err != nil {
		return nil, fmt.Errorf("统计审核记录失败: %w", err)
	}

	return &GlobalStats{
		TotalDatasets: active,
		TotalFinal:    final,
		TotalReviews:  counts.Accept + counts.Reject,
		TotalAccepts:  counts.Accept,
		TotalRejects:  counts.Reject,
	}, nil
}

// Personal 审核员个人统计
func (s *StatsService) Personal(ctx context.Context, reviewerID uint) (*PersonalStats, error) {
	filter := repository.ReviewFilter{ReviewerID: reviewerID}
	counts, err := s.logRepo.CountByResult(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("统计审核记录失败: %w", err)
	}
	items, err := s.logRepo.CountReviewedItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("统计审核数据失败: %w", err)
	}

	return &PersonalStats{
		TotalReviews:  counts.Accept + counts.Reject,
		TotalAccepts:  counts.Accept,
		TotalRejects:  counts.Reject,
		ItemsReviewed: items,
	}, nil
}

// Activity 最近 days 天每天的审核数量（UTC日期），没有审核的日期补0
func (s *StatsService) Activity(ctx context.Context, days int, reviewerID uint) ([]ActivityPoint, error) {
	if days < 1 {
		days = activityDays
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))

	// 时间按字符串比较，多取一天避免时区差异漏掉记录，超出范围的日期不会被使用
	stamps, err := s.logRepo.TimestampsSince(ctx, start.AddDate(0, 0, -1), repository.ReviewFilter{ReviewerID: reviewerID})
	if err != nil {
		return nil, fmt.Errorf("统计审核活动失败: %w", err)
	}

	counts := make(map[string]int64, days)
	for _, ts := range stamps {
		counts[ts.UTC().Format("2006-01-02")]++
	}

	points := make([]ActivityPoint, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		points = append(points, ActivityPoint{Date: date, Count: counts[date]})
	}
	return points, nil
}

// TopReviewers 审核量最多的审核员
func (s *StatsService) TopReviewers(ctx context.Context, limit int) ([]TopReviewer, error) {
	rows, err := s.logRepo.TopReviewers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("统计审核员排行失败: %w", err)
	}

	result := make([]TopReviewer, 0, len(rows))
	for _, row := range rows {
		result = append(result, TopReviewer{ReviewerID: row.ReviewerID, Username: row.Username, ReviewCount: row.ReviewCount})
	}
	return result, nil
}

// CommonRejections 出现最多的拒绝意见，reviewerID 为0时统计全部审核员
func (s *StatsService) CommonRejections(ctx context.Context, limit int, reviewerID uint) ([]CommonRejection, error) {
	rows, err := s.logRepo.CommonRejectionComments(ctx, limit, repository.ReviewFilter{ReviewerID: reviewerID})
	if err != nil {
		return nil, fmt.Errorf("统计拒绝意见失败: %w", err)
	}

	result := make([]CommonRejection, 0, len(rows))
	for _, row := range rows {
		result = append(result, CommonRejection{Reason: row.Comment, Count: row.Count})
	}
	return result, nil
}

// ModelStats 按生成模型统计数据量和通过率
func (s *StatsService) ModelStats(ctx context.Context) ([]ModelStats, error) {
	itemCounts, err := s.itemRepo.CountByModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("按模型统计数据失败: %w", err)
	}
	finalCounts, err := s.finalRepo.CountByModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("按模型统计最终数据失败: %w", err)
	}
	reviewCounts, err := s.logRepo.CountByModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("按模型统计审核记录失败: %w", err)
	}

	byModel := make(map[string]*ModelStats)
	get := func(name string) *ModelStats {
		if name == "" {
			name = unknownModel
		}
		ms, ok := byModel[name]
		if !ok {
			ms = &ModelStats{ModelName: name}
			byModel[name] = ms
		}
		return ms
	}

	for name, n := range itemCounts {
		get(name).ItemCount += n
	}
	for name, n := range finalCounts {
		get(name).FinalCount += n
	}
	for _, row := range reviewCounts {
		ms := get(row.ModelName)
		switch row.Result {
		case models.ResultAccept:
			ms.AcceptCount += row.Count
		case models.ResultReject:
			ms.RejectCount += row.Count
		}
		ms.ReviewCount += row.Count
	}

	result := make([]ModelStats, 0, len(byModel))
	for _, ms := range byModel {
		ms.AcceptanceRate = acceptanceRate(ms.AcceptCount, ms.ReviewCount)
		result = append(result, *ms)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ReviewCount != result[j].ReviewCount {
			return result[i].ReviewCount > result[j].ReviewCount
		}
		return result[i].ModelName < result[j].ModelName
	})
	return result, nil
}

// Dashboard 按角色组装统计面板
func (s *StatsService) Dashboard(ctx context.Context, user *models.User) (*Dashboard, error) {
	d := &Dashboard{Role: user.Role}
	var err error

	if !user.IsAdmin() {
		if d.Personal, err = s.Personal(ctx, user.ID); err != nil {
			return nil, err
		}
		if d.Activity, err = s.Activity(ctx, activityDays, user.ID); err != nil {
			return nil, err
		}
		if d.CommonRejections, err = s.CommonRejections(ctx, topK, user.ID); err != nil {
			return nil, err
		}
		return d, nil
	}

	if d.Global, err = s.Global(ctx); err != nil {
		return nil, err
	}
	if d.Activity, err = s.Activity(ctx, activityDays, 0); err != nil {
		return nil, err
	}
	if d.TopReviewers, err = s.TopReviewers(ctx, topK); err != nil {
		return nil, err
	}
	if d.CommonRejections, err = s.CommonRejections(ctx, topK, 0); err != nil {
		return nil, err
	}
	if d.ModelStats, err = s.ModelStats(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// acceptanceRate 通过数/审核数×100，保留1位小数，没有审核时为0
func acceptanceRate(accepts, reviews int64) float64 {
	if reviews == 0 {
		return 0
	}
	return math.Round(float64(accepts)/float64(reviews)*1000) / 10
}
