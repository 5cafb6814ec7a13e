package httpapi

import (
	"context"

	"github.com/elagi/loyalty/pkg/loyalty"
	"go.uber.org/zap"
)

// ZapOperationLogger reports loyalty service operations through zap.
type ZapOperationLogger struct {
	logger *zap.Logger
}

// NewZapOperationLogger wraps a zap logger for use as an OperationLogger.
func NewZapOperationLogger(logger *zap.Logger) *ZapOperationLogger {
	return &ZapOperationLogger{logger: logger}
}

// LogOperation implements loyalty.OperationLogger.
func (operationLogger *ZapOperationLogger) LogOperation(_ context.Context, entry loyalty.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("customer_id", entry.CustomerID.String()),
		zap.String("status", entry.Status),
	}
	if entry.ChangeType != "" {
		fields = append(fields, zap.String("change_type", entry.ChangeType.String()))
	}
	if entry.PointChange != 0 {
		fields = append(fields, zap.Int64("point_change", entry.PointChange))
	}
	if entry.TransactionID != "" {
		fields = append(fields, zap.String("transaction_id", entry.TransactionID))
	}
	if entry.Error != nil {
		operationLogger.logger.Warn("loyalty operation failed", append(fields, zap.Error(entry.Error))...)
		return
	}
	operationLogger.logger.Info("loyalty operation", fields...)
}
