package service

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrLookupUnavailable 层级/比例/账本存储不可达，调用方应重试
	ErrLookupUnavailable = errors.New("lookup unavailable")
	// ErrDuplicateSkipped 幂等键命中，视为成功
	ErrDuplicateSkipped = errors.New("duplicate commission skipped")
	// ErrPartialFailure 批处理中存在失败条目
	ErrPartialFailure = errors.New("batch finished with failed items")

	ErrPaymentNotFound         = errors.New("unified payment not found")
	ErrUnifiedUserNotFound     = errors.New("unified user not found")
	ErrCommissionConfigInvalid = errors.New("commission config invalid")
)

// ValidationError 请求字段缺失或格式错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError 判断是否为校验错误
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func lookupUnavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLookupUnavailable, op, err)
}

// timeoutAsLookup 存储调用超时同样按不可达处理
func timeoutAsLookup(op string, err error) error {
	if err == nil || errors.Is(err, ErrLookupUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return lookupUnavailable(op, err)
	}
	return err
}
