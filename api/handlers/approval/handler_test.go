package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	appr "backend/internal/approval"
	"backend/internal/article"
	"backend/internal/auth"
	"backend/internal/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "console", "stderr"); err != nil {
		fmt.Println("初始化测试日志失败:", err)
		os.Exit(1)
	}
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	router *gin.Engine
	engine *appr.Engine
	db     *gorm.DB
}

// fakeAuth 用请求头注入身份，替代 JWT 中间件
func fakeAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetHeader("X-Test-Role")
		if role == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set("user", &auth.UserContext{
			UserID: c.GetHeader("X-Test-User"),
			Name:   "测试审批人",
			Role:   appr.Role(role),
		})
		c.Next()
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&article.Article{}, &appr.Record{}, &appr.HistoryEntry{}))

	engine := appr.NewEngine(db)
	h := NewHandler(engine, appr.NewQueueProjector(db))

	router := gin.New()
	g := router.Group("/api", fakeAuth())
	{
		g.GET("/approvals/queue", h.GetQueue)
		g.GET("/approvals/stats", h.GetStatusCounts)
		g.POST("/articles/:id/approve", h.Approve)
		g.POST("/articles/:id/reject", h.Reject)
		g.POST("/articles/:id/release", h.Release)
		g.POST("/articles/:id/reset", h.Reset)
		g.GET("/articles/:id/approval-history", h.GetHistory)
	}
	return &testEnv{router: router, engine: engine, db: db}
}

func (env *testEnv) seedArticle(t *testing.T) string {
	t.Helper()
	art := &article.Article{
		ID:        uuid.NewString(),
		Title:     "测试情报",
		Slug:      uuid.NewString(),
		Severity:  article.SeverityHigh,
		Category:  "malware",
		CreatedBy: uuid.NewString(),
	}
	require.NoError(t, env.db.Create(art).Error)
	_, err := env.engine.Enter(context.Background(), art.ID)
	require.NoError(t, err)
	return art.ID
}

func (env *testEnv) do(t *testing.T, method, path string, role appr.Role, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(role))
	req.Header.Set("X-Test-User", uuid.NewString())

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestApproveEndpoint(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedArticle(t)

	t.Run("当前关卡角色通过", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/articles/"+id+"/approve", appr.RoleMarketing,
			map[string]string{"notes": "没问题"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		data := body["data"].(map[string]interface{})
		assert.Equal(t, "pending_branding", data["status"])
	})

	t.Run("越关卡返回 403 与机器码", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/articles/"+id+"/approve", appr.RoleCISO, nil)
		require.Equal(t, http.StatusForbidden, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "INSUFFICIENT_ROLE", body["code"])
	})

	t.Run("未知文章返回 404", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/articles/"+uuid.NewString()+"/approve", appr.RoleMarketing, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "NOT_FOUND", body["code"])
	})

	t.Run("备注超长返回 400", func(t *testing.T) {
		long := make([]byte, maxNotesLen+1)
		for i := range long {
			long[i] = 'a'
		}
		w := env.do(t, http.MethodPost, "/api/articles/"+id+"/approve", appr.RoleBranding,
			map[string]string{"notes": string(long)})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRejectEndpoint(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedArticle(t)

	t.Run("缺少理由返回 MISSING_REASON", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/articles/"+id+"/reject", appr.RoleMarketing,
			map[string]string{"reason": ""})
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "MISSING_REASON", body["code"])
	})

	t.Run("理由过短返回 400", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/articles/"+id+"/reject", appr.RoleMarketing,
			map[string]string{"reason": "太短"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("合法驳回", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/articles/"+id+"/reject", appr.RoleMarketing,
			map[string]string{"reason": "内容与近期已发布文章高度重复"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "rejected", data["status"])
		assert.Equal(t, true, data["rejected"])
	})

	t.Run("重复驳回返回 409", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/articles/"+id+"/reject", appr.RoleMarketing,
			map[string]string{"reason": "再次驳回同一篇文章"})
		require.Equal(t, http.StatusConflict, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "ALREADY_REJECTED", body["code"])
	})
}

func TestReleaseAndResetEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("发布未批准文章返回 NOT_APPROVED", func(t *testing.T) {
		id := env.seedArticle(t)
		w := env.do(t, http.MethodPost, "/api/articles/"+id+"/release", appr.RoleAdmin, nil)
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "NOT_APPROVED", decodeBody(t, w)["code"])
	})

	t.Run("完整发布流程", func(t *testing.T) {
		id := env.seedArticle(t)
		for range appr.GateOrder {
			_, err := env.engine.Approve(ctx, id, appr.Actor{ID: uuid.NewString(), Role: appr.RoleAdmin}, "")
			require.NoError(t, err)
		}
		w := env.do(t, http.MethodPost, "/api/articles/"+id+"/release", appr.RoleAdmin, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "released", data["status"])
	})

	t.Run("重置未驳回文章返回 NOT_REJECTED", func(t *testing.T) {
		id := env.seedArticle(t)
		w := env.do(t, http.MethodPost, "/api/articles/"+id+"/reset", appr.RoleAdmin, nil)
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "NOT_REJECTED", decodeBody(t, w)["code"])
	})

	t.Run("非管理员重置返回 403", func(t *testing.T) {
		id := env.seedArticle(t)
		_, err := env.engine.Reject(ctx, id, appr.Actor{ID: uuid.NewString(), Role: appr.RoleMarketing}, "需要更多证据支撑结论")
		require.NoError(t, err)

		w := env.do(t, http.MethodPost, "/api/articles/"+id+"/reset", appr.RoleMarketing, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = env.do(t, http.MethodPost, "/api/articles/"+id+"/reset", appr.RoleAdmin, nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "pending_marketing", data["status"])
	})
}

func TestQueueEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedArticle(t)

	t.Run("关卡角色看到本关卡队列", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/approvals/queue", appr.RoleMarketing, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		data := decodeBody(t, w)["data"].(map[string]interface{})
		items := data["items"].([]interface{})
		require.Len(t, items, 1)
		meta := data["meta"].(map[string]interface{})
		assert.Equal(t, "marketing", meta["user_role"])
		assert.Equal(t, "marketing", meta["target_gate"])
		assert.Equal(t, float64(1), meta["queue_count"])
	})

	t.Run("其他关卡队列为空", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/approvals/queue", appr.RoleCISO, nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Empty(t, data["items"])
	})

	t.Run("只读角色无队列", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/approvals/queue", appr.RoleViewer, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("管理员汇总全部关卡", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/approvals/queue", appr.RoleAdmin, nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]interface{})
		meta := data["meta"].(map[string]interface{})
		assert.Equal(t, float64(1), meta["queue_count"])
	})
}

func TestHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedArticle(t)
	_, err := env.engine.Approve(context.Background(), id, appr.Actor{ID: uuid.NewString(), Role: appr.RoleMarketing}, "")
	require.NoError(t, err)

	t.Run("返回进度与条目", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/articles/"+id+"/approval-history", appr.RoleViewer, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "pending_branding", data["status"])
		progress := data["progress"].(map[string]interface{})
		assert.Equal(t, float64(1), progress["completed_count"])
		assert.Equal(t, "branding", progress["current_gate"])
		entries := data["entries"].([]interface{})
		assert.Len(t, entries, 1)
	})

	t.Run("未知文章返回 404", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/articles/"+uuid.NewString()+"/approval-history", appr.RoleViewer, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
