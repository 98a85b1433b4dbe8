package audit

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/api/handlers/common"
	"backend/internal/audit"
)

// Handler 审计日志查询接口
type Handler struct {
	audits *audit.Service
}

// NewHandler 创建审计接口
func NewHandler(audits *audit.Service) *Handler {
	return &Handler{audits: audits}
}

// ListRequest 审计日志查询参数
type ListRequest struct {
	TargetID string `form:"target_id" binding:"required"`
	Limit    int    `form:"limit"`
}

// ListByTarget 查询指定文章的审批转移轨迹，仅管理员可用
// @Summary 审计日志
// @Tags audit
// @Produce json
// @Param target_id query string true "目标文章 ID"
// @Param limit query int false "返回条数上限"
// @Success 200 {object} common.APIResponse
// @Router /audit/logs [get]
func (h *Handler) ListByTarget(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "查询参数不合法: "+err.Error())
		return
	}

	logs, err := h.audits.ListByTarget(c.Request.Context(), req.TargetID, req.Limit)
	if err != nil {
		common.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.Success(c, logs)
}
