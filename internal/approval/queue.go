package approval

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"backend/internal/article"
)

// QueueQuery 审批队列查询参数
type QueueQuery struct {
	Page      int
	PageSize  int
	SortBy    string // created_at | severity | category
	SortOrder string // asc | desc
	Severity  string
	Category  string
}

// QueueItem 队列条目：文章加其审批进度
type QueueItem struct {
	Article  article.Article `json:"article"`
	Status   Status          `json:"status"`
	Progress Progress        `json:"progress"`
}

// 可排序列的白名单，列名固定为 articles 表字段
var queueSortColumns = map[string]string{
	"created_at": "articles.created_at",
	"severity":   "articles.severity",
	"category":   "articles.category",
}

// QueueProjector 审批队列投影。
// 只读副产物，数据始终来自审批记录表的当前状态，不做额外缓存。
type QueueProjector struct {
	db *gorm.DB
}

// NewQueueProjector 创建队列投影
func NewQueueProjector(db *gorm.DB) *QueueProjector {
	return &QueueProjector{db: db}
}

// Pending 返回在指定关卡待审的文章分页
func (p *QueueProjector) Pending(ctx context.Context, gate Gate, q QueueQuery) ([]QueueItem, int64, error) {
	if !gate.IsValid() {
		return nil, 0, fmt.Errorf("非法审批关卡: %s", gate)
	}
	return p.query(ctx, q, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("approval_records.status = ?", PendingStatus(gate).String())
	})
}

// AllPending 返回所有关卡的待审文章分页，供管理视图使用
func (p *QueueProjector) AllPending(ctx context.Context, q QueueQuery) ([]QueueItem, int64, error) {
	pendingStatuses := make([]string, 0, len(GateOrder))
	for _, g := range GateOrder {
		pendingStatuses = append(pendingStatuses, PendingStatus(g).String())
	}
	return p.query(ctx, q, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("approval_records.status IN ?", pendingStatuses)
	})
}

func (p *QueueProjector) query(ctx context.Context, q QueueQuery, scope func(*gorm.DB) *gorm.DB) ([]QueueItem, int64, error) {
	q = normalizeQueueQuery(q)

	base := p.db.WithContext(ctx).
		Model(&Record{}).
		Joins("JOIN articles ON articles.id = approval_records.article_id").
		Where("approval_records.rejected = ?", false)
	base = scope(base)
	if q.Severity != "" {
		base = base.Where("articles.severity = ?", q.Severity)
	}
	if q.Category != "" {
		base = base.Where("articles.category = ?", q.Category)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计审批队列失败: %w", err)
	}

	order := fmt.Sprintf("%s %s", queueSortColumns[q.SortBy], q.SortOrder)
	recs := make([]Record, 0)
	err := base.Select("approval_records.*").
		Order(order).
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询审批队列失败: %w", err)
	}
	if len(recs) == 0 {
		return []QueueItem{}, total, nil
	}

	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ArticleID)
	}
	var arts []article.Article
	if err := p.db.WithContext(ctx).Find(&arts, "id IN ?", ids).Error; err != nil {
		return nil, 0, fmt.Errorf("查询队列文章失败: %w", err)
	}
	byID := make(map[string]article.Article, len(arts))
	for _, a := range arts {
		byID[a.ID] = a
	}

	items := make([]QueueItem, 0, len(recs))
	for i := range recs {
		rec := recs[i]
		items = append(items, QueueItem{
			Article:  byID[rec.ArticleID],
			Status:   rec.Status,
			Progress: BuildProgress(&rec),
		})
	}
	return items, total, nil
}

// StatusCounts 按状态统计审批记录数量，供仪表盘使用
func (p *QueueProjector) StatusCounts(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := p.db.WithContext(ctx).
		Model(&Record{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计审批状态失败: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func normalizeQueueQuery(q QueueQuery) QueueQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if _, ok := queueSortColumns[q.SortBy]; !ok {
		q.SortBy = "created_at"
	}
	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		q.SortOrder = "desc"
	}
	return q
}
