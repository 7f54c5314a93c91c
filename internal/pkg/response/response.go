package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/z4qs/repohealth_go_server/internal/pkg/redact"
)

// 错误码定义（注册表的转移错误码 + 路由层错误码）
const (
	CodeInvalidRepoInput  = "INVALID_REPOSITORY_INPUT"
	CodeInvalidTransition = "INVALID_JOB_TRANSITION"
	CodeJobTerminal       = "JOB_TERMINAL"
	CodeJobNotFound       = "JOB_NOT_FOUND"
	CodeJobNotCompleted   = "JOB_NOT_COMPLETED"
	CodeServerError       = "INTERNAL_ERROR"
)

// 错误码到 HTTP 状态码的固定映射，未知错误码一律 500
var codeStatus = map[string]int{
	CodeInvalidRepoInput:  http.StatusBadRequest,
	CodeInvalidTransition: http.StatusConflict,
	CodeJobTerminal:       http.StatusConflict,
	CodeJobNotFound:       http.StatusNotFound,
	CodeJobNotCompleted:   http.StatusConflict,
}

// 错误码对应的默认消息
var codeMessages = map[string]string{
	CodeInvalidRepoInput:  "仓库地址格式错误",
	CodeInvalidTransition: "任务状态不允许该操作",
	CodeJobTerminal:       "任务已终结",
	CodeJobNotFound:       "任务不存在",
	CodeJobNotCompleted:   "分析尚未完成",
	CodeServerError:       "服务器内部错误",
}

// 出程序边界的消息长度上限
const maxMessageLen = 500

// ErrorBody 统一错误响应结构
type ErrorBody struct {
	ErrorCode  string `json:"error_code"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

// StatusFor 查询错误码对应的 HTTP 状态码
func StatusFor(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error 错误响应。消息在出边界前统一脱敏并限长。
func Error(c *gin.Context, code, message string) {
	if message == "" {
		message = codeMessages[code]
	}
	status := StatusFor(code)
	c.JSON(status, ErrorBody{
		ErrorCode:  code,
		StatusCode: status,
		Message:    redact.Truncate(redact.String(message), maxMessageLen),
	})
}

// ParamError 请求参数错误
func ParamError(c *gin.Context, message string) {
	Error(c, CodeInvalidRepoInput, message)
}

// NotFoundError 任务不存在
func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeJobNotFound, message)
}

// ServerError 服务器错误
func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}
