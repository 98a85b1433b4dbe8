package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backend/internal/logger"
	"backend/internal/metrics"
)

// Actor 执行审批操作的调用方身份
type Actor struct {
	ID   string
	Name string
	Role Role
}

// Notifier 裁决事件外推接口（如 WebSocket 推送）
type Notifier interface {
	NotifyDecision(evt DecisionEvent)
}

// AuditSink 审计落库接口。审计失败只记日志，不阻断转移。
type AuditSink interface {
	RecordTransition(ctx context.Context, actorID, actorName, action, articleID, fromStatus, toStatus string) error
}

// Engine 审批工作流引擎。
// 同一文章的转移按文章 ID 串行执行，状态更新与历史追加在同一事务内提交。
type Engine struct {
	db       *gorm.DB
	locks    *keyedLock
	recorder *Recorder
	bus      *DecisionBus
	notifier Notifier
	audit    AuditSink
	now      func() time.Time
}

// EngineOption 引擎可选配置
type EngineOption func(*Engine)

// WithNotifier 设置裁决事件通知器
func WithNotifier(n Notifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

// WithAuditSink 设置审计接收器
func WithAuditSink(s AuditSink) EngineOption {
	return func(e *Engine) { e.audit = s }
}

// WithEventBuffer 设置事件总线每订阅者的缓冲大小
func WithEventBuffer(n int) EngineOption {
	return func(e *Engine) { e.bus = NewDecisionBus(n) }
}

// NewEngine 创建审批引擎
func NewEngine(db *gorm.DB, opts ...EngineOption) *Engine {
	e := &Engine{
		db:       db,
		locks:    newKeyedLock(),
		recorder: NewRecorder(db),
		bus:      NewDecisionBus(16),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bus 返回裁决事件总线
func (e *Engine) Bus() *DecisionBus {
	return e.bus
}

// Enter 将文章送入审批流，建立入口关卡待审记录。不产生历史条目。
func (e *Engine) Enter(ctx context.Context, articleID string) (*Record, error) {
	return e.EnterTx(ctx, e.db, articleID)
}

// EnterTx 在调用方事务内建立入口关卡待审记录，
// 供需要和文章写入同事务提交的场景使用。
func (e *Engine) EnterTx(ctx context.Context, tx *gorm.DB, articleID string) (*Record, error) {
	e.locks.Lock(articleID)
	defer e.locks.Unlock(articleID)

	rec := &Record{
		ArticleID:      articleID,
		Status:         PendingStatus(FirstGate()),
		Rejected:       false,
		CompletedGates: GateList{},
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("创建审批记录失败: %w", err)
	}

	metrics.ApprovalPendingGauge.WithLabelValues(string(FirstGate())).Inc()
	logger.Info("文章进入审批流",
		zap.String("article_id", articleID),
		zap.String("status", rec.Status.String()))
	return rec, nil
}

// Approve 通过当前关卡。
// 已驳回返回 ErrAlreadyRejected，非待审状态返回 ErrInvalidState，
// 角色无当前关卡授权返回 ErrForbidden。
func (e *Engine) Approve(ctx context.Context, articleID string, actor Actor, notes string) (*Record, error) {
	e.locks.Lock(articleID)
	defer e.locks.Unlock(articleID)

	var rec Record
	var gate Gate
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadRecord(tx, articleID, &rec); err != nil {
			return err
		}
		if rec.Rejected {
			return ErrAlreadyRejected
		}
		cur, ok := rec.Status.PendingGate()
		if !ok {
			return ErrInvalidState
		}
		if !actor.Role.CanActOn(cur) {
			return ErrForbidden
		}
		gate = cur

		if next, ok := cur.Next(); ok {
			rec.Status = PendingStatus(next)
		} else {
			rec.Status = StatusApproved
		}
		// 同一关卡重复出现时不追加，保持完成序列为严格前缀
		if !rec.HasCompleted(cur) {
			rec.CompletedGates = append(rec.CompletedGates, cur)
		}
		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("更新审批记录失败: %w", err)
		}
		return e.recorder.Append(tx, &HistoryEntry{
			ID:        uuid.NewString(),
			ArticleID: articleID,
			Event:     EventApprove,
			Gate:      &gate,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Notes:     notes,
			CreatedAt: e.now(),
		})
	})
	if err != nil {
		e.logFailure("approve", articleID, actor, err)
		return nil, err
	}

	metrics.ApprovalPendingGauge.WithLabelValues(string(gate)).Dec()
	if next, ok := rec.Status.PendingGate(); ok {
		metrics.ApprovalPendingGauge.WithLabelValues(string(next)).Inc()
	}
	e.finishTransition(ctx, &rec, actor, EventApprove, &gate, PendingStatus(gate))

	logger.Info("关卡审批通过",
		zap.String("article_id", articleID),
		zap.String("gate", string(gate)),
		zap.String("new_status", rec.Status.String()),
		zap.String("actor", actor.ID))
	return &rec, nil
}

// Reject 驳回文章。理由为空返回 ErrMissingReason。
func (e *Engine) Reject(ctx context.Context, articleID string, actor Actor, reason string) (*Record, error) {
	e.locks.Lock(articleID)
	defer e.locks.Unlock(articleID)

	var rec Record
	var gate Gate
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadRecord(tx, articleID, &rec); err != nil {
			return err
		}
		if strings.TrimSpace(reason) == "" {
			return ErrMissingReason
		}
		if rec.Rejected {
			return ErrAlreadyRejected
		}
		cur, ok := rec.Status.PendingGate()
		if !ok {
			return ErrInvalidState
		}
		if !actor.Role.CanActOn(cur) {
			return ErrForbidden
		}
		gate = cur

		rec.Status = StatusRejected
		rec.Rejected = true
		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("更新审批记录失败: %w", err)
		}
		// 驳回作用于整篇文章而非某一关卡，历史条目不记录关卡
		return e.recorder.Append(tx, &HistoryEntry{
			ID:        uuid.NewString(),
			ArticleID: articleID,
			Event:     EventReject,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Reason:    reason,
			CreatedAt: e.now(),
		})
	})
	if err != nil {
		e.logFailure("reject", articleID, actor, err)
		return nil, err
	}

	metrics.ApprovalPendingGauge.WithLabelValues(string(gate)).Dec()
	e.finishTransition(ctx, &rec, actor, EventReject, &gate, PendingStatus(gate))

	logger.Info("文章被驳回",
		zap.String("article_id", articleID),
		zap.String("gate", string(gate)),
		zap.String("actor", actor.ID))
	return &rec, nil
}

// Release 发布已通过全部关卡的文章，仅管理角色可执行
func (e *Engine) Release(ctx context.Context, articleID string, actor Actor) (*Record, error) {
	e.locks.Lock(articleID)
	defer e.locks.Unlock(articleID)

	var rec Record
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadRecord(tx, articleID, &rec); err != nil {
			return err
		}
		if !actor.Role.IsAdmin() {
			return ErrForbidden
		}
		if !rec.Status.IsApproved() {
			return ErrNotApproved
		}

		rec.Status = StatusReleased
		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("更新审批记录失败: %w", err)
		}
		return e.recorder.Append(tx, &HistoryEntry{
			ID:        uuid.NewString(),
			ArticleID: articleID,
			Event:     EventRelease,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			CreatedAt: e.now(),
		})
	})
	if err != nil {
		e.logFailure("release", articleID, actor, err)
		return nil, err
	}

	e.finishTransition(ctx, &rec, actor, EventRelease, nil, StatusApproved)

	logger.Info("文章已发布",
		zap.String("article_id", articleID),
		zap.String("actor", actor.ID))
	return &rec, nil
}

// Reset 将驳回的文章重置回入口关卡，仅管理角色可执行。
// 完成序列清空，历史保留并追加重置条目。
func (e *Engine) Reset(ctx context.Context, articleID string, actor Actor) (*Record, error) {
	e.locks.Lock(articleID)
	defer e.locks.Unlock(articleID)

	var rec Record
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadRecord(tx, articleID, &rec); err != nil {
			return err
		}
		if !actor.Role.IsAdmin() {
			return ErrForbidden
		}
		if !rec.Rejected {
			return ErrNotRejected
		}

		rec.Status = PendingStatus(FirstGate())
		rec.Rejected = false
		rec.CompletedGates = GateList{}
		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("更新审批记录失败: %w", err)
		}
		return e.recorder.Append(tx, &HistoryEntry{
			ID:        uuid.NewString(),
			ArticleID: articleID,
			Event:     EventReset,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			CreatedAt: e.now(),
		})
	})
	if err != nil {
		e.logFailure("reset", articleID, actor, err)
		return nil, err
	}

	metrics.ApprovalPendingGauge.WithLabelValues(string(FirstGate())).Inc()
	e.finishTransition(ctx, &rec, actor, EventReset, nil, StatusRejected)

	logger.Info("文章审批已重置",
		zap.String("article_id", articleID),
		zap.String("actor", actor.ID))
	return &rec, nil
}

// Get 读取审批记录
func (e *Engine) Get(ctx context.Context, articleID string) (*Record, error) {
	var rec Record
	if err := loadRecord(e.db.WithContext(ctx), articleID, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ==================== 内部 ====================

func loadRecord(tx *gorm.DB, articleID string, rec *Record) error {
	if err := tx.First(rec, "article_id = ?", articleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("查询审批记录失败: %w", err)
	}
	return nil
}

// finishTransition 事务提交后的统一收尾：指标、事件、审计
func (e *Engine) finishTransition(ctx context.Context, rec *Record, actor Actor, event EventType, gate *Gate, fromStatus Status) {
	gateLabel := ""
	if gate != nil {
		gateLabel = string(*gate)
	}
	metrics.ApprovalDecisionsTotal.WithLabelValues(string(event), gateLabel).Inc()

	evt := DecisionEvent{
		ArticleID:  rec.ArticleID,
		Event:      event,
		Gate:       gate,
		Status:     rec.Status,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		OccurredAt: e.now(),
	}
	e.bus.Publish(evt)
	if e.notifier != nil {
		e.notifier.NotifyDecision(evt)
	}

	if e.audit != nil {
		if err := e.audit.RecordTransition(ctx, actor.ID, actor.Name, string(event), rec.ArticleID, fromStatus.String(), rec.Status.String()); err != nil {
			logger.Error("审计记录写入失败",
				zap.String("article_id", rec.ArticleID),
				zap.Error(err))
		}
	}
}

// logFailure 业务规则失败记 Info，基础设施错误记 Error
func (e *Engine) logFailure(action, articleID string, actor Actor, err error) {
	var wErr *WorkflowError
	if errors.As(err, &wErr) {
		logger.Info("审批操作被拒绝",
			zap.String("action", action),
			zap.String("article_id", articleID),
			zap.String("actor", actor.ID),
			zap.String("role", string(actor.Role)),
			zap.String("code", wErr.Code))
		return
	}
	logger.Error("审批操作执行失败",
		zap.String("action", action),
		zap.String("article_id", articleID),
		zap.Error(err))
}
