package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 客户端输入不合法
	ErrValidation = errors.New("validation failed")
	// ErrInvalidSortDirection 排序方向不是 asc/desc
	ErrInvalidSortDirection = errors.New("invalid order_by")
)

// ValidationError 带字段信息的校验错误，errors.Is(err, ErrValidation) 为真
type ValidationError struct {
	Field  string
	Reason string
	// 可选的底层哨兵错误
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
