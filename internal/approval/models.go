package approval

import (
	"time"
)

// ==================== 数据模型 ====================

// GateList 已完成关卡序列，落库为 JSON 数组
type GateList []Gate

// Record 文章审批记录，每篇文章一条
type Record struct {
	ArticleID      string    `gorm:"primaryKey;type:uuid" json:"article_id"`
	Status         Status    `gorm:"type:varchar(32);not null;index" json:"status"`
	Rejected       bool      `gorm:"not null;default:false;index" json:"rejected"`
	CompletedGates GateList  `gorm:"type:text;serializer:json" json:"completed_gates"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Record) TableName() string {
	return "approval_records"
}

// HasCompleted 关卡是否已在完成序列中
func (r *Record) HasCompleted(g Gate) bool {
	for _, c := range r.CompletedGates {
		if c == g {
			return true
		}
	}
	return false
}

// EventType 历史事件类型
type EventType string

const (
	EventApprove EventType = "approve"
	EventReject  EventType = "reject"
	EventRelease EventType = "release"
	EventReset   EventType = "reset"
)

// HistoryEntry 审批历史条目，只追加，仅由引擎写入
type HistoryEntry struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	ArticleID string    `gorm:"type:uuid;not null;index" json:"article_id"`
	Event     EventType `gorm:"type:varchar(16);not null" json:"event"`
	Gate      *Gate     `gorm:"type:varchar(16)" json:"gate,omitempty"`
	ActorID   string    `gorm:"type:uuid;not null" json:"actor_id"`
	ActorName string    `gorm:"type:varchar(100)" json:"actor_name"`
	Notes     string    `gorm:"type:varchar(1000)" json:"notes,omitempty"`
	Reason    string    `gorm:"type:varchar(2000)" json:"reason,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (HistoryEntry) TableName() string {
	return "approval_history"
}
