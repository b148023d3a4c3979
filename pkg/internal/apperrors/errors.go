// Package apperrors 定义业务错误分类，供 service 层返回、handle 层映射为 HTTP 响应.
//
// 分类原则：配额与去重冲突是调用方可恢复的预期情况，不作为系统错误记录；
// I/O 失败（FileOperationError）才是系统级错误.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// 错误码，稳定对外暴露，勿随意更名.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeConflict      = "CONFLICT"
	CodeNotFound      = "NOT_FOUND"
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeFileOperation = "FILE_OPERATION_ERROR"
)

// LimitKind 标识被触发的配额维度.
type LimitKind string

const (
	LimitFileSize  LimitKind = "max_file_size"  // 单文件大小上限
	LimitStorage   LimitKind = "storage_limit"  // 总存储容量上限
	LimitFileCount LimitKind = "max_file_count" // 文件数量上限
)

// ValidationError 输入不合法，调用方不修改输入重试无意义.
type ValidationError struct {
	Message string
	Field   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}

	return e.Message
}

// NewValidation 创建 ValidationError.
func NewValidation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NewFieldValidation 创建携带字段名的 ValidationError.
func NewFieldValidation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError 资源冲突（内容摘要重复、并发重复写入）.
// 消息保持泛化，不暴露既有副本的属主.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflict 创建 ConflictError.
func NewConflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError 资源不存在. 越权访问他人资源时也返回该错误，不泄露资源是否存在.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	if e.Resource == "" {
		return "resource not found"
	}

	return e.Resource + " not found"
}

// NewNotFound 创建 NotFoundError.
func NewNotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// QuotaExceededError 配额超限，携带触发的维度与具体数值，便于调用方渲染可操作的提示.
type QuotaExceededError struct {
	Limit     LimitKind
	Attempted int64 // 本次操作后的目标值（申请的文件大小/总用量/文件数）
	Allowed   int64 // 允许的上限
	Message   string
}

func (e *QuotaExceededError) Error() string {
	return e.Message
}

// NewQuotaExceeded 创建 QuotaExceededError.
func NewQuotaExceeded(limit LimitKind, attempted, allowed int64, format string, args ...any) error {
	return &QuotaExceededError{
		Limit:     limit,
		Attempted: attempted,
		Allowed:   allowed,
		Message:   fmt.Sprintf(format, args...),
	}
}

// FileOperationError 物理字节读写/移动失败.
type FileOperationError struct {
	Op  string
	Err error
}

func (e *FileOperationError) Error() string {
	return fmt.Sprintf("file operation %s failed: %v", e.Op, e.Err)
}

func (e *FileOperationError) Unwrap() error {
	return e.Err
}

// NewFileOperation 包装底层 I/O 错误.
func NewFileOperation(op string, err error) error {
	return &FileOperationError{Op: op, Err: err}
}

// IsValidation 判断是否为 ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConflict 判断是否为 ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsNotFound 判断是否为 NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsQuotaExceeded 判断是否为 QuotaExceededError.
func IsQuotaExceeded(err error) bool {
	var target *QuotaExceededError
	return errors.As(err, &target)
}

// Code 返回错误对应的稳定错误码，未知错误返回空串.
func Code(err error) string {
	switch {
	case IsValidation(err):
		return CodeValidation
	case IsConflict(err):
		return CodeConflict
	case IsNotFound(err):
		return CodeNotFound
	case IsQuotaExceeded(err):
		return CodeQuotaExceeded
	default:
		var fileOp *FileOperationError
		if errors.As(err, &fileOp) {
			return CodeFileOperation
		}

		return ""
	}
}

// HTTPStatus 返回错误对应的 HTTP 状态码，未知错误按 500 处理.
func HTTPStatus(err error) int {
	switch Code(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeQuotaExceeded:
		return http.StatusInsufficientStorage
	case CodeFileOperation:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
