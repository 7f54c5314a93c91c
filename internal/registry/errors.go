package registry

import (
	"fmt"
)

// 状态机错误码，HTTP 层通过 response 包映射为状态码
const (
	CodeJobNotFound       = "JOB_NOT_FOUND"
	CodeInvalidTransition = "INVALID_JOB_TRANSITION"
	CodeJobTerminal       = "JOB_TERMINAL"
)

// TransitionError 状态转移被拒绝。
// 预期内的冲突（重复取消、任务已终结等）一律走该类型，不 panic。
type TransitionError struct {
	Code    string
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errJobNotFound(id string) *TransitionError {
	return &TransitionError{
		Code:    CodeJobNotFound,
		Message: fmt.Sprintf("任务 %s 不存在", id),
	}
}

func errInvalidTransition(id, op string, from string) *TransitionError {
	return &TransitionError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("任务 %s 当前状态为 %s，不允许 %s", id, from, op),
	}
}

func errJobTerminal(id string, from string) *TransitionError {
	return &TransitionError{
		Code:    CodeJobTerminal,
		Message: fmt.Sprintf("任务 %s 已终结（%s），状态不可再变更", id, from),
	}
}
