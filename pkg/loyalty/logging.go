package loyalty

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing loyalty operation.
type OperationLog struct {
	Operation     string
	CustomerID    CustomerID
	ChangeType    ChangeType
	PointChange   int64
	TransactionID string
	Status        string
	Error         error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithTransactionIDGenerator overrides how fresh transaction ids are minted.
func WithTransactionIDGenerator(generate func() string) ServiceOption {
	return func(service *Service) {
		if generate != nil {
			service.newTransactionID = generate
		}
	}
}
