package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateCatalog(t *testing.T) {
	t.Run("关卡顺序固定", func(t *testing.T) {
		assert.Equal(t, []Gate{GateMarketing, GateBranding, GateSocL1, GateSocL3, GateCISO}, GateOrder)
		assert.Equal(t, GateMarketing, FirstGate())
	})

	t.Run("下一关卡", func(t *testing.T) {
		next, ok := GateMarketing.Next()
		require.True(t, ok)
		assert.Equal(t, GateBranding, next)

		next, ok = GateSocL3.Next()
		require.True(t, ok)
		assert.Equal(t, GateCISO, next)
	})

	t.Run("最后一关无后继", func(t *testing.T) {
		_, ok := GateCISO.Next()
		assert.False(t, ok)
	})

	t.Run("非法关卡", func(t *testing.T) {
		assert.False(t, Gate("voc").IsValid())
		assert.Equal(t, -1, Gate("voc").Index())
		_, ok := Gate("voc").Next()
		assert.False(t, ok)
	})
}

func TestRoleAuthority(t *testing.T) {
	t.Run("关卡角色一一对应", func(t *testing.T) {
		cases := map[Role]Gate{
			RoleMarketing: GateMarketing,
			RoleBranding:  GateBranding,
			RoleSocL1:     GateSocL1,
			RoleSocL3:     GateSocL3,
			RoleCISO:      GateCISO,
		}
		for role, gate := range cases {
			got, ok := role.TargetGate()
			require.True(t, ok, "角色 %s 应有授权关卡", role)
			assert.Equal(t, gate, got)
			assert.True(t, role.CanActOn(gate))
		}
	})

	t.Run("角色不能越关卡", func(t *testing.T) {
		assert.False(t, RoleMarketing.CanActOn(GateBranding))
		assert.False(t, RoleSocL3.CanActOn(GateMarketing))
	})

	t.Run("管理角色通行全部关卡", func(t *testing.T) {
		assert.True(t, RoleAdmin.IsAdmin())
		for _, g := range GateOrder {
			assert.True(t, RoleAdmin.CanActOn(g))
		}
		_, ok := RoleAdmin.TargetGate()
		assert.False(t, ok)
	})

	t.Run("未知角色与只读角色无授权", func(t *testing.T) {
		for _, role := range []Role{RoleViewer, Role("intern"), Role("")} {
			assert.False(t, role.IsAdmin())
			_, ok := role.TargetGate()
			assert.False(t, ok)
			for _, g := range GateOrder {
				assert.False(t, role.CanActOn(g))
			}
		}
	})
}

func TestStatus(t *testing.T) {
	t.Run("待审状态携带关卡", func(t *testing.T) {
		s := PendingStatus(GateSocL1)
		assert.Equal(t, "pending_soc_l1", s.String())
		assert.True(t, s.IsPending())

		g, ok := s.PendingGate()
		require.True(t, ok)
		assert.Equal(t, GateSocL1, g)
	})

	t.Run("终态不携带关卡", func(t *testing.T) {
		for _, s := range []Status{StatusApproved, StatusRejected, StatusReleased} {
			_, ok := s.PendingGate()
			assert.False(t, ok)
			assert.False(t, s.IsPending())
		}
		assert.True(t, StatusReleased.IsTerminalReleased())
		assert.False(t, StatusApproved.IsTerminalReleased())
	})

	t.Run("解析合法状态", func(t *testing.T) {
		for _, raw := range []string{
			"pending_marketing", "pending_branding", "pending_soc_l1",
			"pending_soc_l3", "pending_ciso", "approved", "rejected", "released",
		} {
			s, err := ParseStatus(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, raw, s.String())
		}
	})

	t.Run("拒绝非法状态", func(t *testing.T) {
		for _, raw := range []string{"", "pending_", "pending_voc", "pending_unknown", "draft", "PENDING_MARKETING"} {
			_, err := ParseStatus(raw)
			assert.Error(t, err, raw)
		}
	})

	t.Run("数据库扫描校验", func(t *testing.T) {
		var s Status
		require.NoError(t, s.Scan("pending_ciso"))
		assert.Equal(t, PendingStatus(GateCISO), s)

		assert.Error(t, s.Scan("pending_compliance"))
		assert.Error(t, s.Scan(42))
	})

	t.Run("未初始化状态拒绝落库", func(t *testing.T) {
		var s Status
		_, err := s.Value()
		assert.Error(t, err)
	})

	t.Run("JSON 编解码", func(t *testing.T) {
		data, err := PendingStatus(GateBranding).MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `"pending_branding"`, string(data))

		var s Status
		require.NoError(t, s.UnmarshalJSON([]byte(`"approved"`)))
		assert.True(t, s.IsApproved())
		assert.Error(t, s.UnmarshalJSON([]byte(`"pending_voc"`)))
	})
}
