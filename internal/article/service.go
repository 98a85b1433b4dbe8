package article

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backend/internal/logger"
)

// ErrArticleNotFound 文章不存在
var ErrArticleNotFound = errors.New("文章不存在")

// EnterWorkflow 新文章送审回调，由审批引擎实现。
// 在文章创建事务内调用，tx 为该事务句柄。
type EnterWorkflow func(ctx context.Context, tx *gorm.DB, articleID string) error

// Service 文章服务。创建即送入审批流。
type Service struct {
	db    *gorm.DB
	enter EnterWorkflow
}

// NewService 创建文章服务
func NewService(db *gorm.DB, enter EnterWorkflow) *Service {
	return &Service{db: db, enter: enter}
}

// CreateInput 创建文章入参
type CreateInput struct {
	Title    string
	Summary  string
	Content  string
	Severity Severity
	Category string
	Tags     []string
	CVEs     []string
	Vendors  []string
}

// Create 创建文章并进入审批流入口关卡
func (s *Service) Create(ctx context.Context, authorID string, in CreateInput) (*Article, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("文章标题不能为空")
	}
	if !in.Severity.IsValid() {
		return nil, fmt.Errorf("非法严重级别: %s", in.Severity)
	}

	art := &Article{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Slug:      makeSlug(in.Title),
		Summary:   in.Summary,
		Content:   in.Content,
		Severity:  in.Severity,
		Category:  in.Category,
		Tags:      in.Tags,
		CVEs:      in.CVEs,
		Vendors:   in.Vendors,
		CreatedBy: authorID,
	}
	// 文章与审批记录同事务落库，不存在无审批记录的孤儿文章
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(art).Error; err != nil {
			return fmt.Errorf("创建文章失败: %w", err)
		}
		if s.enter != nil {
			if err := s.enter(ctx, tx, art.ID); err != nil {
				return fmt.Errorf("文章送审失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("文章已创建",
		zap.String("article_id", art.ID),
		zap.String("title", art.Title),
		zap.String("author", authorID))
	return art, nil
}

// Get 按 ID 读取文章
func (s *Service) Get(ctx context.Context, id string) (*Article, error) {
	var art Article
	if err := s.db.WithContext(ctx).First(&art, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, fmt.Errorf("查询文章失败: %w", err)
	}
	return &art, nil
}

// ListQuery 文章列表过滤参数
type ListQuery struct {
	Category string
	Severity Severity
	Page     int
	PageSize int
}

// List 分页查询文章，按创建时间倒序
func (s *Service) List(ctx context.Context, q ListQuery) ([]Article, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}

	base := s.db.WithContext(ctx).Model(&Article{})
	if q.Category != "" {
		base = base.Where("category = ?", q.Category)
	}
	if q.Severity != "" {
		base = base.Where("severity = ?", q.Severity)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计文章数量失败: %w", err)
	}

	arts := make([]Article, 0)
	err := base.Order("created_at DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&arts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询文章列表失败: %w", err)
	}
	return arts, total, nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// makeSlug 由标题生成 URL 友好的 slug，加短随机后缀防冲突
func makeSlug(title string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > 80 {
		s = s[:80]
	}
	suffix := uuid.NewString()[:8]
	if s == "" {
		return suffix
	}
	return s + "-" + suffix
}
