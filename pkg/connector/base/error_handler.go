package base

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/idbridge/pkg/errors"
	"github.com/ajitpratap0/idbridge/pkg/logger"
)

// ErrorHandler logs operation failures at a level matching their category
// and keeps per-type counts
type ErrorHandler struct {
	logger      *zap.Logger
	errorMutex  sync.RWMutex
	errorCounts map[errors.ErrorType]int64
	totalErrors int64
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger:      logger,
		errorCounts: make(map[errors.ErrorType]int64),
	}
}

// HandleError records err for operation and returns it unchanged. Foreign
// errors are wrapped as internal so callers can always branch on a type.
func (eh *ErrorHandler) HandleError(ctx context.Context, operation string, err error) error {
	if err == nil {
		return nil
	}

	var typed *errors.Error
	if !errors.As(err, &typed) {
		err = errors.Wrap(err, errors.ErrorTypeInternal, operation+" failed")
	}
	errType := errors.TypeOf(err)

	eh.errorMutex.Lock()
	eh.totalErrors++
	eh.errorCounts[errType]++
	eh.errorMutex.Unlock()

	l := eh.logger
	if logger.OperationID(ctx) != "" {
		l = l.With(zap.String("operation_id", logger.OperationID(ctx)))
	}
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("error_type", string(errType)),
		zap.Error(err),
	}

	if IsProvisioningOutcome(err) {
		l.Info("operation rejected", fields...)
	} else {
		l.Error("operation failed", fields...)
	}
	return err
}

// IsProvisioningOutcome reports whether err is a definite answer from the
// backend about the request rather than a failure to reach it
func IsProvisioningOutcome(err error) bool {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeAlreadyExists, errors.ErrorTypeUnknownUid,
		errors.ErrorTypeInvalidAttribute, errors.ErrorTypeInvalidCredential,
		errors.ErrorTypeUnsupported, errors.ErrorTypeValidation:
		return true
	}
	return false
}

// ShouldRetry determines if an error should be retried
func (eh *ErrorHandler) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.IsRetryable(err) {
		return true
	}
	var typed *errors.Error
	if errors.As(err, &typed) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"bad connection",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// GetErrorStats returns error statistics
func (eh *ErrorHandler) GetErrorStats() map[string]interface{} {
	eh.errorMutex.RLock()
	defer eh.errorMutex.RUnlock()

	byType := make(map[string]int64, len(eh.errorCounts))
	for k, v := range eh.errorCounts {
		byType[string(k)] = v
	}
	return map[string]interface{}{
		"total_errors":   eh.totalErrors,
		"errors_by_type": byType,
	}
}
