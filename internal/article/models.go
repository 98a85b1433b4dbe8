package article

import (
	"time"
)

// Severity 威胁情报严重级别
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid 判断是否为合法级别
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// StringList 字符串列表字段，落库为 JSON 数组
type StringList []string

// Article 威胁情报文章
type Article struct {
	ID        string     `gorm:"primaryKey;type:uuid" json:"id"`
	Title     string     `gorm:"type:varchar(300);not null" json:"title"`
	Slug      string     `gorm:"type:varchar(300);uniqueIndex" json:"slug"`
	Summary   string     `gorm:"type:varchar(2000)" json:"summary"`
	Content   string     `gorm:"type:text" json:"content"`
	Severity  Severity   `gorm:"type:varchar(16);not null;index" json:"severity"`
	Category  string     `gorm:"type:varchar(100);index" json:"category"`
	Tags      StringList `gorm:"type:text;serializer:json" json:"tags"`
	CVEs      StringList `gorm:"type:text;serializer:json" json:"cves"`
	Vendors   StringList `gorm:"type:text;serializer:json" json:"vendors"`
	CreatedBy string     `gorm:"type:uuid;not null;index" json:"created_by"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Article) TableName() string {
	return "articles"
}
