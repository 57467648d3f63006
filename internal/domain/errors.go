package domain

import "fmt"

// ErrorKind 是错误在第一次被观测到时打上的分类标签，
// 后续各层只按标签匹配，不再翻找嵌套字段重新解释
type ErrorKind string

const (
	ErrKindInput      ErrorKind = "input"      // 调用方的输入错误，重试无意义
	ErrKindStructural ErrorKind = "structural" // 数据结构性问题（如循环班次缺少单次标识），重试无意义
	ErrKindTransient  ErrorKind = "transient"  // 限流、超时、5xx 一类的瞬时错误
	ErrKindConflict   ErrorKind = "conflict"   // 上游拒绝写入（409/417），可走重试与回退路径
)

// UpdateError 是贯穿整个更新流程的错误类型
type UpdateError struct {
	Kind       ErrorKind
	Code       string
	StatusCode int
	Message    string
	Conflicts  []Conflict
	Detail     any
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("%s (code=%s, status=%d)", e.Message, e.Code, e.StatusCode)
}

// Retriable 判断该错误是否值得进入第二层重试与第三层回退
func (e *UpdateError) Retriable() bool {
	return e.Kind == ErrKindTransient || e.Kind == ErrKindConflict
}

// Item 把错误转成响应中的线格式
func (e *UpdateError) Item() *ItemError {
	conflicts := e.Conflicts
	if conflicts == nil {
		conflicts = []Conflict{}
	}
	return &ItemError{
		Code:      e.Code,
		Message:   e.Message,
		Details:   e.Detail,
		Conflicts: conflicts,
	}
}

// NewInputError 构造一个输入错误
func NewInputError(code, message string) *UpdateError {
	return &UpdateError{
		Kind:       ErrKindInput,
		Code:       code,
		StatusCode: 400,
		Message:    message,
	}
}

// NewStructuralError 构造一个结构性错误
func NewStructuralError(code, message string, detail any) *UpdateError {
	return &UpdateError{
		Kind:       ErrKindStructural,
		Code:       code,
		StatusCode: 422,
		Message:    message,
		Detail:     detail,
	}
}

// AsUpdateError 把任意错误规范成 UpdateError，
// 未知错误一律视为结构性错误（不自动重试，交由人工判断）
func AsUpdateError(err error) *UpdateError {
	if err == nil {
		return nil
	}
	if ue, ok := err.(*UpdateError); ok {
		return ue
	}
	return &UpdateError{
		Kind:       ErrKindStructural,
		Code:       "UPDATE_FAILED",
		StatusCode: 500,
		Message:    err.Error(),
	}
}
