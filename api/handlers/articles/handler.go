package articles

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/api/handlers/common"
	appr "backend/internal/approval"
	"backend/internal/article"
	"backend/internal/auth"
	internalCommon "backend/internal/common"
)

// Handler 文章接口
type Handler struct {
	articles *article.Service
	engine   *appr.Engine
}

// NewHandler 创建文章接口
func NewHandler(articles *article.Service, engine *appr.Engine) *Handler {
	return &Handler{articles: articles, engine: engine}
}

// CreateRequest 创建文章请求体
type CreateRequest struct {
	Title    string   `json:"title" binding:"required"`
	Summary  string   `json:"summary"`
	Content  string   `json:"content"`
	Severity string   `json:"severity" binding:"required"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	CVEs     []string `json:"cves"`
	Vendors  []string `json:"vendors"`
}

// ListRequest 文章列表查询参数
type ListRequest struct {
	internalCommon.PaginationRequest
	Category string `form:"category"`
	Severity string `form:"severity"`
}

// ArticleResponse 文章及其审批状态
type ArticleResponse struct {
	Article  *article.Article `json:"article"`
	Approval *ApprovalState   `json:"approval,omitempty"`
}

// ApprovalState 文章当前审批状态摘要
type ApprovalState struct {
	Status   appr.Status   `json:"status"`
	Rejected bool          `json:"rejected"`
	Progress appr.Progress `json:"progress"`
}

// Create 创建威胁情报文章并送审
// @Summary 创建文章
// @Description 创建文章并进入审批流入口关卡
// @Tags articles
// @Accept json
// @Produce json
// @Param request body CreateRequest true "文章内容"
// @Success 200 {object} common.APIResponse
// @Router /articles [post]
func (h *Handler) Create(c *gin.Context) {
	u, ok := auth.GetUserContext(c)
	if !ok {
		common.Error(c, http.StatusUnauthorized, "未认证")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "请求体不合法: "+err.Error())
		return
	}

	art, err := h.articles.Create(c.Request.Context(), u.UserID, article.CreateInput{
		Title:    req.Title,
		Summary:  req.Summary,
		Content:  req.Content,
		Severity: article.Severity(req.Severity),
		Category: req.Category,
		Tags:     req.Tags,
		CVEs:     req.CVEs,
		Vendors:  req.Vendors,
	})
	if err != nil {
		common.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	common.SuccessWithMessage(c, "文章已创建并送审", h.withApproval(c, art))
}

// Get 按 ID 查询文章
// @Summary 文章详情
// @Tags articles
// @Produce json
// @Param id path string true "文章 ID"
// @Success 200 {object} common.APIResponse
// @Router /articles/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	art, err := h.articles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, article.ErrArticleNotFound) {
			common.ErrorWithCode(c, http.StatusNotFound, appr.ErrNotFound.Code, err.Error())
			return
		}
		common.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.Success(c, h.withApproval(c, art))
}

// List 分页查询文章
// @Summary 文章列表
// @Tags articles
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "页大小"
// @Param category query string false "分类过滤"
// @Param severity query string false "严重级别过滤"
// @Success 200 {object} common.APIResponse
// @Router /articles [get]
func (h *Handler) List(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "查询参数不合法: "+err.Error())
		return
	}

	arts, total, err := h.articles.List(c.Request.Context(), article.ListQuery{
		Category: req.Category,
		Severity: article.Severity(req.Severity),
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
	})
	if err != nil {
		common.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.List(c, arts, common.NewPaginationMeta(req.GetPage(), req.GetPageSize(), total), nil)
}

// withApproval 附带审批状态摘要；记录缺失时仅返回文章
func (h *Handler) withApproval(c *gin.Context, art *article.Article) ArticleResponse {
	resp := ArticleResponse{Article: art}
	rec, err := h.engine.Get(c.Request.Context(), art.ID)
	if err == nil {
		resp.Approval = &ApprovalState{
			Status:   rec.Status,
			Rejected: rec.Rejected,
			Progress: appr.BuildProgress(rec),
		}
	}
	return resp
}
