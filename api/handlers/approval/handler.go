package approval

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/api/handlers/common"
	appr "backend/internal/approval"
	"backend/internal/auth"
)

const (
	minReasonLen = 10
	maxReasonLen = 2000
	maxNotesLen  = 1000
)

// Handler 审批接口
type Handler struct {
	engine    *appr.Engine
	projector *appr.QueueProjector
}

// NewHandler 创建审批接口
func NewHandler(engine *appr.Engine, projector *appr.QueueProjector) *Handler {
	return &Handler{engine: engine, projector: projector}
}

// GetQueue 获取当前角色的审批队列
// @Summary 审批队列
// @Description 返回调用方所在关卡的待审文章；管理员可指定 gate 或查看全部
// @Tags approval
// @Produce json
// @Param gate query string false "审批关卡（仅管理员可指定）"
// @Param page query int false "页码"
// @Param page_size query int false "页大小"
// @Param sort_by query string false "排序字段: created_at, severity, category"
// @Param sort_order query string false "排序方向: asc, desc"
// @Success 200 {object} common.APIResponse
// @Router /approvals/queue [get]
func (h *Handler) GetQueue(c *gin.Context) {
	u, ok := auth.GetUserContext(c)
	if !ok {
		common.Error(c, http.StatusUnauthorized, "未认证")
		return
	}

	var req QueueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "查询参数不合法: "+err.Error())
		return
	}

	q := appr.QueueQuery{
		Page:      req.GetPage(),
		PageSize:  req.GetPageSize(),
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Severity:  req.Severity,
		Category:  req.Category,
	}

	var (
		items []appr.QueueItem
		total int64
		err   error
		meta  = QueueMeta{UserRole: string(u.Role)}
	)
	switch {
	case u.Role.IsAdmin() && req.Gate == "":
		items, total, err = h.projector.AllPending(c.Request.Context(), q)
	case u.Role.IsAdmin():
		gate := appr.Gate(req.Gate)
		meta.TargetGate = string(gate)
		items, total, err = h.projector.Pending(c.Request.Context(), gate, q)
	default:
		gate, hasGate := u.Role.TargetGate()
		if !hasGate {
			common.ErrorWithCode(c, http.StatusForbidden, appr.ErrForbidden.Code, "当前角色没有审批队列")
			return
		}
		meta.TargetGate = string(gate)
		items, total, err = h.projector.Pending(c.Request.Context(), gate, q)
	}
	if err != nil {
		common.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	meta.QueueCount = total
	common.List(c, items, common.NewPaginationMeta(q.Page, q.PageSize, total), meta)
}

// GetStatusCounts 按状态统计审批记录
// @Summary 审批状态统计
// @Tags approval
// @Produce json
// @Success 200 {object} common.APIResponse
// @Router /approvals/stats [get]
func (h *Handler) GetStatusCounts(c *gin.Context) {
	counts, err := h.projector.StatusCounts(c.Request.Context())
	if err != nil {
		common.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.Success(c, counts)
}

// Approve 通过当前关卡
// @Summary 关卡审批通过
// @Tags approval
// @Accept json
// @Produce json
// @Param id path string true "文章 ID"
// @Param request body ApproveRequest false "审批备注"
// @Success 200 {object} common.APIResponse
// @Router /articles/{id}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	u, ok := auth.GetUserContext(c)
	if !ok {
		common.Error(c, http.StatusUnauthorized, "未认证")
		return
	}

	var req ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Error(c, http.StatusBadRequest, "请求体不合法: "+err.Error())
			return
		}
	}
	if len(req.Notes) > maxNotesLen {
		common.Error(c, http.StatusBadRequest, "审批备注不能超过 1000 字符")
		return
	}

	rec, err := h.engine.Approve(c.Request.Context(), c.Param("id"), u.Actor(), req.Notes)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	common.SuccessWithMessage(c, "审批通过", newActionResponse(rec))
}

// Reject 驳回文章
// @Summary 驳回文章
// @Tags approval
// @Accept json
// @Produce json
// @Param id path string true "文章 ID"
// @Param request body RejectRequest true "驳回理由"
// @Success 200 {object} common.APIResponse
// @Router /articles/{id}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	u, ok := auth.GetUserContext(c)
	if !ok {
		common.Error(c, http.StatusUnauthorized, "未认证")
		return
	}

	var req RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Error(c, http.StatusBadRequest, "请求体不合法: "+err.Error())
			return
		}
	}
	// 引擎只要求非空，长度下限是接口层的产品约束
	if req.Reason != "" && len(req.Reason) < minReasonLen {
		common.Error(c, http.StatusBadRequest, "驳回理由不能少于 10 字符")
		return
	}
	if len(req.Reason) > maxReasonLen {
		common.Error(c, http.StatusBadRequest, "驳回理由不能超过 2000 字符")
		return
	}

	rec, err := h.engine.Reject(c.Request.Context(), c.Param("id"), u.Actor(), req.Reason)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	common.SuccessWithMessage(c, "文章已驳回", newActionResponse(rec))
}

// Release 发布文章
// @Summary 发布文章
// @Tags approval
// @Produce json
// @Param id path string true "文章 ID"
// @Success 200 {object} common.APIResponse
// @Router /articles/{id}/release [post]
func (h *Handler) Release(c *gin.Context) {
	u, ok := auth.GetUserContext(c)
	if !ok {
		common.Error(c, http.StatusUnauthorized, "未认证")
		return
	}
	rec, err := h.engine.Release(c.Request.Context(), c.Param("id"), u.Actor())
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	common.SuccessWithMessage(c, "文章已发布", newActionResponse(rec))
}

// Reset 重置驳回的文章
// @Summary 重置审批流
// @Tags approval
// @Produce json
// @Param id path string true "文章 ID"
// @Success 200 {object} common.APIResponse
// @Router /articles/{id}/reset [post]
func (h *Handler) Reset(c *gin.Context) {
	u, ok := auth.GetUserContext(c)
	if !ok {
		common.Error(c, http.StatusUnauthorized, "未认证")
		return
	}
	rec, err := h.engine.Reset(c.Request.Context(), c.Param("id"), u.Actor())
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	common.SuccessWithMessage(c, "审批流已重置", newActionResponse(rec))
}

// GetHistory 查询审批历史
// @Summary 审批历史
// @Tags approval
// @Produce json
// @Param id path string true "文章 ID"
// @Success 200 {object} common.APIResponse
// @Router /articles/{id}/approval-history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	view, err := h.engine.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	common.Success(c, view)
}

// respondWorkflowError 将引擎错误映射为 HTTP 状态码与机器码
func respondWorkflowError(c *gin.Context, err error) {
	var wErr *appr.WorkflowError
	if !errors.As(err, &wErr) {
		common.Error(c, http.StatusInternalServerError, "服务内部错误")
		return
	}
	status := http.StatusConflict
	switch wErr.Code {
	case appr.ErrNotFound.Code:
		status = http.StatusNotFound
	case appr.ErrForbidden.Code:
		status = http.StatusForbidden
	case appr.ErrMissingReason.Code:
		status = http.StatusBadRequest
	}
	common.ErrorWithCode(c, status, wErr.Code, wErr.Message)
}
