package approval

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Recorder 审批历史记录器。历史只追加，写入口仅限引擎事务。
type Recorder struct {
	db *gorm.DB
}

// NewRecorder 创建历史记录器
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Append 在引擎事务内追加一条历史
func (r *Recorder) Append(tx *gorm.DB, entry *HistoryEntry) error {
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("追加审批历史失败: %w", err)
	}
	return nil
}

// Entries 按时间顺序返回文章的全部历史；无记录返回空切片
func (r *Recorder) Entries(ctx context.Context, articleID string) ([]HistoryEntry, error) {
	return r.entriesIn(r.db.WithContext(ctx), articleID)
}

func (r *Recorder) entriesIn(tx *gorm.DB, articleID string) ([]HistoryEntry, error) {
	entries := make([]HistoryEntry, 0)
	err := tx.
		Where("article_id = ?", articleID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("查询审批历史失败: %w", err)
	}
	return entries, nil
}

// ==================== 历史视图 ====================

// Progress 审批进度投影
type Progress struct {
	CompletedGates []Gate `json:"completed_gates"`
	CurrentGate    *Gate  `json:"current_gate,omitempty"`
	PendingGates   []Gate `json:"pending_gates"`
	TotalGates     int    `json:"total_gates"`
	CompletedCount int    `json:"completed_count"`
}

// RejectionDetails 驳回详情，取自最近一次驳回条目
type RejectionDetails struct {
	Reason       string    `json:"reason"`
	RejectedBy   string    `json:"rejected_by"`
	RejectorName string    `json:"rejector_name"`
	RejectedAt   time.Time `json:"rejected_at"`
}

// ReleaseDetails 发布详情
type ReleaseDetails struct {
	ReleasedBy   string    `json:"released_by"`
	ReleaserName string    `json:"releaser_name"`
	ReleasedAt   time.Time `json:"released_at"`
}

// HistoryView 审批历史的完整对外视图
type HistoryView struct {
	ArticleID        string            `json:"article_id"`
	Status           Status            `json:"status"`
	Rejected         bool              `json:"rejected"`
	Entries          []HistoryEntry    `json:"entries"`
	Progress         Progress          `json:"progress"`
	RejectionDetails *RejectionDetails `json:"rejection_details,omitempty"`
	ReleaseDetails   *ReleaseDetails   `json:"release_details,omitempty"`
}

// History 构建文章的审批历史视图；记录不存在返回 ErrNotFound。
// 记录与历史在同一事务内读取，视图对应一个一致的快照。
func (e *Engine) History(ctx context.Context, articleID string) (*HistoryView, error) {
	var rec Record
	var entries []HistoryEntry
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadRecord(tx, articleID, &rec); err != nil {
			return err
		}
		var err error
		entries, err = e.recorder.entriesIn(tx, articleID)
		return err
	})
	if err != nil {
		return nil, err
	}

	view := &HistoryView{
		ArticleID: articleID,
		Status:    rec.Status,
		Rejected:  rec.Rejected,
		Entries:   entries,
		Progress:  BuildProgress(&rec),
	}

	// 详情取最后一条匹配事件，重置后旧驳回条目不再生效
	if rec.Rejected {
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].Event == EventReject {
				view.RejectionDetails = &RejectionDetails{
					Reason:       entries[i].Reason,
					RejectedBy:   entries[i].ActorID,
					RejectorName: entries[i].ActorName,
					RejectedAt:   entries[i].CreatedAt,
				}
				break
			}
		}
	}
	if rec.Status.IsTerminalReleased() {
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].Event == EventRelease {
				view.ReleaseDetails = &ReleaseDetails{
					ReleasedBy:   entries[i].ActorID,
					ReleaserName: entries[i].ActorName,
					ReleasedAt:   entries[i].CreatedAt,
				}
				break
			}
		}
	}
	return view, nil
}

// BuildProgress 从审批记录推导进度。切片恒为非 nil，序列化为 [] 而非 null。
func BuildProgress(rec *Record) Progress {
	p := Progress{
		CompletedGates: make([]Gate, 0, len(rec.CompletedGates)),
		PendingGates:   make([]Gate, 0),
		TotalGates:     len(GateOrder),
	}
	completed := make(map[Gate]bool, len(rec.CompletedGates))
	for _, g := range rec.CompletedGates {
		completed[g] = true
	}
	for _, g := range GateOrder {
		if completed[g] {
			p.CompletedGates = append(p.CompletedGates, g)
		} else {
			p.PendingGates = append(p.PendingGates, g)
		}
	}
	p.CompletedCount = len(p.CompletedGates)

	if cur, ok := rec.Status.PendingGate(); ok {
		g := cur
		p.CurrentGate = &g
	}
	return p
}
