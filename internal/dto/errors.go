package dto

// BaseError универсальный корневой формат ошибки
// Code: машинно-ориентированный код (snake_case)
// Message: краткое человеко-читаемое описание
// Details: дополнительная строка (пояснение)
// Fields: для валидационных ошибок (имя поля + текст)
type BaseError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
}

const (
	CodeValidation          = "validation_error"
	CodeUnauthorized        = "unauthorized"
	CodeForbidden           = "forbidden"
	CodeNotFound            = "not_found"
	CodeAllowanceExceeded   = "allowance_exceeded"
	CodeInsufficientStock   = "insufficient_stock"
	CodeInvalidState        = "invalid_state"
	CodeConcurrencyConflict = "concurrency_conflict"
	CodeInternal            = "internal_error"
)

func NewValidationError(msg string, fields []FieldError) BaseError {
	return BaseError{Code: CodeValidation, Message: msg, Fields: fields}
}
func NewUnauthorizedError(msg string) BaseError {
	return BaseError{Code: CodeUnauthorized, Message: msg}
}
func NewInternalError(details string) BaseError {
	return BaseError{Code: CodeInternal, Message: "internal server error", Details: details}
}
func NewError(code, msg string) BaseError {
	return BaseError{Code: code, Message: msg}
}
