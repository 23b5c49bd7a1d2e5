package apperr

import (
	"errors"
	"fmt"
)

// 预定义的错误类别
var (
	// ErrNotFound 资源不存在
	ErrNotFound = errors.New("not found")
	// ErrDuplicateReview 审核员已审核过该版本
	ErrDuplicateReview = errors.New("duplicate review")
	// ErrValidation 输入不合法
	ErrValidation = errors.New("validation failed")
	// ErrUpstreamGeneration 文本生成服务失败
	ErrUpstreamGeneration = errors.New("upstream generation failed")
	// ErrConflict 状态冲突
	ErrConflict = errors.New("conflict")
	// ErrForbidden 权限不足
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized 未认证
	ErrUnauthorized = errors.New("unauthorized")
)

// Error 业务错误
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error 实现error接口
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UserMessage 返回给调用方的错误描述
func (e *Error) UserMessage() string {
	return e.Message
}

// Unwrap 返回错误类别
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound 资源不存在
func NotFound(resource string, id interface{}) error {
	return &Error{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %v 不存在", resource, id),
		Err:     ErrNotFound,
	}
}

// DuplicateReview 同一审核员重复审核
func DuplicateReview(itemID, reviewerID uint) error {
	return &Error{
		Code:    "DUPLICATE_REVIEW",
		Message: fmt.Sprintf("审核员 %d 已经审核过数据 %d", reviewerID, itemID),
		Err:     ErrDuplicateReview,
	}
}

// Validation 输入校验失败
func Validation(message string) error {
	return &Error{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Err:     ErrValidation,
	}
}

// UpstreamGeneration 文本生成失败，cause 为底层原因
func UpstreamGeneration(message string, cause error) error {
	return &Error{
		Code:    "UPSTREAM_GENERATION_ERROR",
		Message: message,
		Err:     errors.Join(ErrUpstreamGeneration, cause),
	}
}

// Conflict 状态冲突
func Conflict(message string) error {
	return &Error{
		Code:    "CONFLICT",
		Message: message,
		Err:     ErrConflict,
	}
}

// Forbidden 权限不足
func Forbidden(message string) error {
	return &Error{
		Code:    "FORBIDDEN",
		Message: message,
		Err:     ErrForbidden,
	}
}

// Unauthorized 未认证或凭证错误
func Unauthorized(message string) error {
	return &Error{
		Code:    "UNAUTHORIZED",
		Message: message,
		Err:     ErrUnauthorized,
	}
}

func IsNotFound(err error) bool           { return errors.Is(err, ErrNotFound) }
func IsDuplicateReview(err error) bool    { return errors.Is(err, ErrDuplicateReview) }
func IsValidation(err error) bool         { return errors.Is(err, ErrValidation) }
func IsUpstreamGeneration(err error) bool { return errors.Is(err, ErrUpstreamGeneration) }
func IsConflict(err error) bool           { return errors.Is(err, ErrConflict) }
func IsForbidden(err error) bool          { return errors.Is(err, ErrForbidden) }
func IsUnauthorized(err error) bool       { return errors.Is(err, ErrUnauthorized) }

// Message 提取可展示的错误信息
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.UserMessage()
	}
	return err.Error()
}
