package approval

import (
	appr "backend/internal/approval"
	"backend/internal/common"
)

// ApproveRequest 关卡通过请求体，备注可选
type ApproveRequest struct {
	Notes string `json:"notes"`
}

// RejectRequest 驳回请求体
type RejectRequest struct {
	Reason string `json:"reason"`
}

// QueueRequest 审批队列查询参数
type QueueRequest struct {
	common.PaginationRequest
	Gate      string `form:"gate"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
	Severity  string `form:"severity"`
	Category  string `form:"category"`
}

// QueueMeta 队列响应附加信息
type QueueMeta struct {
	UserRole   string `json:"user_role"`
	TargetGate string `json:"target_gate,omitempty"`
	QueueCount int64  `json:"queue_count"`
}

// ActionResponse 审批操作结果
type ActionResponse struct {
	ArticleID string        `json:"article_id"`
	Status    appr.Status   `json:"status"`
	Rejected  bool          `json:"rejected"`
	Progress  appr.Progress `json:"progress"`
}

func newActionResponse(rec *appr.Record) ActionResponse {
	return ActionResponse{
		ArticleID: rec.ArticleID,
		Status:    rec.Status,
		Rejected:  rec.Rejected,
		Progress:  appr.BuildProgress(rec),
	}
}
