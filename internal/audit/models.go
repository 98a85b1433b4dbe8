package audit

import "time"

// Log 审计日志行，每次成功的审批转移写一条
type Log struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	ActorID    string    `gorm:"type:uuid;not null;index" json:"actor_id"`
	ActorName  string    `gorm:"type:varchar(100)" json:"actor_name"`
	Action     string    `gorm:"type:varchar(32);not null;index" json:"action"`
	TargetType string    `gorm:"type:varchar(32);not null" json:"target_type"`
	TargetID   string    `gorm:"type:uuid;not null;index" json:"target_id"`
	OldValue   string    `gorm:"type:varchar(64)" json:"old_value"`
	NewValue   string    `gorm:"type:varchar(64)" json:"new_value"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (Log) TableName() string {
	return "audit_logs"
}
