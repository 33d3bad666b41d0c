package model

import (
	"errors"
	"fmt"
)

// 领域错误分类：处理器据此映射HTTP状态码。
var (
	// ErrNotFound 表示请求的资源不存在（可能已被其他会话删除）
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateAssignment 表示 (piece, instrument, voice) 三元组已被占用
	ErrDuplicateAssignment = errors.New("duplicate assignment for piece/instrument/voice")
)

// ValidationError 表示字段级校验失败，表单保持打开并高亮对应字段
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError 创建字段级校验错误
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
