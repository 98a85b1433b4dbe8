package approval

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"backend/internal/article"
)

func seedArticle(t *testing.T, e *Engine, db *gorm.DB, severity article.Severity, category string, createdAt time.Time) string {
	t.Helper()
	art := &article.Article{
		ID:        uuid.NewString(),
		Title:     "测试情报",
		Slug:      uuid.NewString(),
		Severity:  severity,
		Category:  category,
		CreatedBy: uuid.NewString(),
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(art).Error)
	_, err := e.Enter(context.Background(), art.ID)
	require.NoError(t, err)
	return art.ID
}

func TestQueueProjector(t *testing.T) {
	e, db := newTestEngine(t)
	p := NewQueueProjector(db)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	idOld := seedArticle(t, e, db, article.SeverityLow, "malware", base)
	idMid := seedArticle(t, e, db, article.SeverityCritical, "phishing", base.Add(time.Hour))
	idNew := seedArticle(t, e, db, article.SeverityHigh, "malware", base.Add(2*time.Hour))

	t.Run("入口关卡队列包含全部新文章", func(t *testing.T) {
		items, total, err := p.Pending(ctx, GateMarketing, QueueQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, items, 3)
		// 默认按创建时间倒序
		assert.Equal(t, idNew, items[0].Article.ID)
		assert.Equal(t, idOld, items[2].Article.ID)
		for _, item := range items {
			assert.Equal(t, PendingStatus(GateMarketing), item.Status)
			require.NotNil(t, item.Progress.CurrentGate)
			assert.Equal(t, GateMarketing, *item.Progress.CurrentGate)
		}
	})

	t.Run("分页", func(t *testing.T) {
		items, total, err := p.Pending(ctx, GateMarketing, QueueQuery{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, items, 1)
		assert.Equal(t, idOld, items[0].Article.ID)
	})

	t.Run("按严重级别排序与过滤", func(t *testing.T) {
		items, _, err := p.Pending(ctx, GateMarketing, QueueQuery{SortBy: "severity", SortOrder: "asc"})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, article.SeverityCritical, items[0].Article.Severity)

		items, total, err := p.Pending(ctx, GateMarketing, QueueQuery{Category: "malware"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, item := range items {
			assert.Equal(t, "malware", item.Article.Category)
		}
	})

	t.Run("通过后从本关卡消失并进入下一关卡", func(t *testing.T) {
		_, err := e.Approve(ctx, idMid, actorFor(RoleMarketing), "")
		require.NoError(t, err)

		_, total, err := p.Pending(ctx, GateMarketing, QueueQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		items, total, err := p.Pending(ctx, GateBranding, QueueQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, idMid, items[0].Article.ID)
	})

	t.Run("驳回后不再出现在任何队列", func(t *testing.T) {
		_, err := e.Reject(ctx, idOld, actorFor(RoleMarketing), "与既有文章重复，无需发布")
		require.NoError(t, err)

		_, total, err := p.AllPending(ctx, QueueQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("管理视图汇总全部关卡", func(t *testing.T) {
		items, total, err := p.AllPending(ctx, QueueQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		gates := make(map[Gate]bool)
		for _, item := range items {
			g, ok := item.Status.PendingGate()
			require.True(t, ok)
			gates[g] = true
		}
		assert.True(t, gates[GateMarketing])
		assert.True(t, gates[GateBranding])
	})

	t.Run("非法关卡报错", func(t *testing.T) {
		_, _, err := p.Pending(ctx, Gate("voc"), QueueQuery{})
		assert.Error(t, err)
	})

	t.Run("空队列返回空切片", func(t *testing.T) {
		items, total, err := p.Pending(ctx, GateCISO, QueueQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("状态统计", func(t *testing.T) {
		counts, err := p.StatusCounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts["pending_marketing"])
		assert.Equal(t, int64(1), counts["pending_branding"])
		assert.Equal(t, int64(1), counts["rejected"])
	})
}
