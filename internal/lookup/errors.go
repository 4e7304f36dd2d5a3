package lookup

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind：对外错误分类
type Kind string

const (
	KindValidation Kind = "validation"
	KindUpstream   Kind = "upstream"
	KindTimeout    Kind = "timeout"
	KindInternal   Kind = "internal"
)

const (
	MsgQueryRequired = "Query is required"
	MsgInvalidLength = "Invalid length. Must be at least 10 digits for mobile or 13 for CNIC"
	MsgInvalidJSON   = "Invalid JSON body"
	MsgQueryType     = "Query must be a string"
	MsgTimeout       = "Request timeout. Service is taking too long to respond."
)

// Status：分类对应的 HTTP 状态码
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// 文档注释：统一查询错误
// 背景：四类失败都直接返回调用方，不做本地重试；响应层按字段拼装 JSON。
// 约束：Query 为空表示尚未得到清洗结果（如内部错误），响应中不输出 your_query。
type Error struct {
	Kind           Kind
	Message        string
	Query          string
	Length         int
	UpstreamStatus int
	Err            error

	withLength bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lookup %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("lookup %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HasLength：长度校验失败时响应需要带上 length 字段（可能为 0）
func (e *Error) HasLength() bool { return e.withLength }

// NewValidationError：请求体解析类的校验错误
func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func newUpstreamError(query string, status int) *Error {
	return &Error{
		Kind:           KindUpstream,
		Message:        fmt.Sprintf("External API error: %d", status),
		Query:          query,
		UpstreamStatus: status,
	}
}

func newTimeoutError(query string, cause error) *Error {
	return &Error{Kind: KindTimeout, Message: MsgTimeout, Query: query, Err: cause}
}

// NewInternalError：兜底错误，消息带上原因
func NewInternalError(cause error) *Error {
	msg := "Internal server error"
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}

// KindOf：提取错误分类；非本包错误视为内部错误
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
