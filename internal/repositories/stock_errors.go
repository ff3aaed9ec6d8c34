package repositories

import "fmt"

// StockErrorCode enumerates repository error causes for material stock operations.
type StockErrorCode string

const (
	// StockErrorUnknown represents an unspecified failure.
	StockErrorUnknown StockErrorCode = "stock_unknown"
	// StockErrorInsufficient indicates a dose would drive stock negative.
	StockErrorInsufficient StockErrorCode = "stock_insufficient"
	// StockErrorMaterialNotFound indicates the material has no stock record.
	StockErrorMaterialNotFound StockErrorCode = "stock_material_not_found"
)

// StockError wraps stock-specific failures with machine readable codes.
type StockError struct {
	Op      string
	Code    StockErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *StockError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *StockError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether the material had no stock record.
func (e *StockError) IsNotFound() bool {
	return e != nil && e.Code == StockErrorMaterialNotFound
}

// IsConflict reports whether the dose would drive stock negative.
func (e *StockError) IsConflict() bool {
	return e != nil && e.Code == StockErrorInsufficient
}

// IsUnavailable reports whether the failure was an unspecified store error.
func (e *StockError) IsUnavailable() bool {
	return e != nil && e.Code == StockErrorUnknown
}

var _ RepositoryError = (*StockError)(nil)

// NewStockError constructs a typed stock error.
func NewStockError(code StockErrorCode, message string, err error) *StockError {
	if message == "" {
		message = string(code)
	}
	return &StockError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
