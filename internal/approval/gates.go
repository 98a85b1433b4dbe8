package approval

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ==================== 审批关卡 ====================

// Gate 审批关卡（固定顺序链中的一环）
type Gate string

const (
	GateMarketing Gate = "marketing"
	GateBranding  Gate = "branding"
	GateSocL1     Gate = "soc_l1"
	GateSocL3     Gate = "soc_l3"
	GateCISO      Gate = "ciso"
)

// GateOrder 关卡目录，按审批顺序排列
var GateOrder = []Gate{
	GateMarketing,
	GateBranding,
	GateSocL1,
	GateSocL3,
	GateCISO,
}

var gateIndex = func() map[Gate]int {
	m := make(map[Gate]int, len(GateOrder))
	for i, g := range GateOrder {
		m[g] = i
	}
	return m
}()

// IsValid 判断是否为目录内的合法关卡
func (g Gate) IsValid() bool {
	_, ok := gateIndex[g]
	return ok
}

// Index 返回关卡在目录中的位置，非法关卡返回 -1
func (g Gate) Index() int {
	if i, ok := gateIndex[g]; ok {
		return i
	}
	return -1
}

// Next 返回下一关卡；最后一关返回 false
func (g Gate) Next() (Gate, bool) {
	i, ok := gateIndex[g]
	if !ok || i+1 >= len(GateOrder) {
		return "", false
	}
	return GateOrder[i+1], true
}

// FirstGate 工作流入口关卡
func FirstGate() Gate {
	return GateOrder[0]
}

// ==================== 角色与授权 ====================

// Role 调用方角色
type Role string

const (
	RoleMarketing Role = "marketing"
	RoleBranding  Role = "branding"
	RoleSocL1     Role = "soc_l1"
	RoleSocL3     Role = "soc_l3"
	RoleCISO      Role = "ciso"
	RoleAdmin     Role = "admin"
	RoleViewer    Role = "viewer"
)

// roleGates 封闭的角色到关卡授权表；表外角色一律无授权
var roleGates = map[Role]Gate{
	RoleMarketing: GateMarketing,
	RoleBranding:  GateBranding,
	RoleSocL1:     GateSocL1,
	RoleSocL3:     GateSocL3,
	RoleCISO:      GateCISO,
}

// IsAdmin 管理角色可越过所有关卡授权
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// TargetGate 返回角色被授权的关卡；管理角色与未知角色返回 false
func (r Role) TargetGate() (Gate, bool) {
	g, ok := roleGates[r]
	return g, ok
}

// CanActOn 判断角色能否对指定关卡做出裁决
func (r Role) CanActOn(g Gate) bool {
	if r.IsAdmin() {
		return true
	}
	target, ok := roleGates[r]
	return ok && target == g
}

// ==================== 审批状态 ====================

const (
	pendingPrefix = "pending_"

	statusApproved = "approved"
	statusRejected = "rejected"
	statusReleased = "released"
)

// Status 文章审批状态。零值非法；只能通过 PendingStatus
// 或终态常量构造，非法字符串在 ParseStatus 与 Scan 处拒绝。
type Status struct {
	raw string
}

// 终态
var (
	StatusApproved = Status{raw: statusApproved}
	StatusRejected = Status{raw: statusRejected}
	StatusReleased = Status{raw: statusReleased}
)

// PendingStatus 构造关卡待审状态
func PendingStatus(g Gate) Status {
	return Status{raw: pendingPrefix + string(g)}
}

// ParseStatus 解析线上格式的状态字符串
func ParseStatus(s string) (Status, error) {
	switch s {
	case statusApproved:
		return StatusApproved, nil
	case statusRejected:
		return StatusRejected, nil
	case statusReleased:
		return StatusReleased, nil
	}
	if g, ok := strings.CutPrefix(s, pendingPrefix); ok && Gate(g).IsValid() {
		return PendingStatus(Gate(g)), nil
	}
	return Status{}, fmt.Errorf("非法审批状态: %q", s)
}

// PendingGate 解码待审状态对应的关卡；终态与零值返回 false
func (s Status) PendingGate() (Gate, bool) {
	if g, ok := strings.CutPrefix(s.raw, pendingPrefix); ok {
		return Gate(g), true
	}
	return "", false
}

// IsPending 是否处于某一关卡待审
func (s Status) IsPending() bool {
	_, ok := s.PendingGate()
	return ok
}

// IsTerminalReleased 发布为终态，之后拒绝任何转移
func (s Status) IsTerminalReleased() bool {
	return s.raw == statusReleased
}

func (s Status) IsApproved() bool { return s.raw == statusApproved }
func (s Status) IsRejected() bool { return s.raw == statusRejected }

func (s Status) String() string {
	return s.raw
}

// Value 实现 driver.Valuer，按线上格式落库
func (s Status) Value() (driver.Value, error) {
	if s.raw == "" {
		return nil, fmt.Errorf("审批状态未初始化")
	}
	return s.raw, nil
}

// Scan 实现 sql.Scanner，非法存量值在读取边界即报错
func (s *Status) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("审批状态列类型不支持: %T", value)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON 按线上格式输出
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.raw)
}

// UnmarshalJSON 解析并校验
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
