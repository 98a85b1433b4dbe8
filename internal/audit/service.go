package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service 审计服务。写入独立于业务事务，失败由调用方决定是否容忍。
type Service struct {
	db *gorm.DB
}

// NewService 创建审计服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RecordTransition 记录一次审批状态转移
func (s *Service) RecordTransition(ctx context.Context, actorID, actorName, action, articleID, fromStatus, toStatus string) error {
	log := &Log{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		ActorName:  actorName,
		Action:     action,
		TargetType: "article",
		TargetID:   articleID,
		OldValue:   fromStatus,
		NewValue:   toStatus,
	}
	if err := s.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("写入审计日志失败: %w", err)
	}
	return nil
}

// ListByTarget 按目标查询审计日志，时间倒序
func (s *Service) ListByTarget(ctx context.Context, targetID string, limit int) ([]Log, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	logs := make([]Log, 0)
	err := s.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("查询审计日志失败: %w", err)
	}
	return logs, nil
}
