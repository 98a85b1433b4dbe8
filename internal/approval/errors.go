package approval

// WorkflowError 工作流业务错误，Code 为对外稳定的机器码
type WorkflowError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *WorkflowError) Error() string {
	return e.Message
}

// 失败分类。哨兵值直接用 errors.Is 匹配，HTTP 边界用 errors.As
// 取出机器码。
var (
	ErrNotFound        = &WorkflowError{Code: "NOT_FOUND", Message: "文章审批记录不存在"}
	ErrForbidden       = &WorkflowError{Code: "INSUFFICIENT_ROLE", Message: "当前角色无权执行该审批操作"}
	ErrInvalidState    = &WorkflowError{Code: "INVALID_STATE", Message: "文章当前状态不允许该操作"}
	ErrMissingReason   = &WorkflowError{Code: "MISSING_REASON", Message: "驳回必须填写理由"}
	ErrAlreadyRejected = &WorkflowError{Code: "ALREADY_REJECTED", Message: "文章已被驳回"}
	ErrNotApproved     = &WorkflowError{Code: "NOT_APPROVED", Message: "文章尚未通过全部审批"}
	ErrNotRejected     = &WorkflowError{Code: "NOT_REJECTED", Message: "文章未处于驳回状态"}
)
