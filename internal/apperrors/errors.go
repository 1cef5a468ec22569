package apperrors

// =============================================================================
// Error Codes
// =============================================================================

type ErrorCode string

const (
	ErrorCodeInternalError       ErrorCode = "INTERNAL_ERROR"
	ErrorCodeMissingParameter    ErrorCode = "MISSING_PARAMETER"
	ErrorCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrorCodeUnknownVerb         ErrorCode = "UNKNOWN_VERB"
	ErrorCodeNotImplemented      ErrorCode = "NOT_IMPLEMENTED"
	ErrorCodeUpstreamUnreachable ErrorCode = "UPSTREAM_UNREACHABLE"
	ErrorCodeUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrorCodeMalformedResponse   ErrorCode = "MALFORMED_RESPONSE"
	ErrorCodeDeviceUnreachable   ErrorCode = "DEVICE_UNREACHABLE"
)

// AppError is the base error type for HTTP responses.
type AppError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
}

func (err *AppError) Error() string {
	return err.Message
}

func NewAppError(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewMissingParameterError reports an absent or unparsable required query
// parameter.
func NewMissingParameterError(name string) *AppError {
	return NewAppError(ErrorCodeMissingParameter, "missing required parameter: "+name, 400)
}

// NewUnknownVerbError reports a navigation/playback verb absent from its
// translation table. Surfaced to clients as Not Implemented, never a crash.
func NewUnknownVerbError(verb string) *AppError {
	return NewAppError(ErrorCodeUnknownVerb, "unknown command: "+verb, 501)
}

func NewNotImplementedError(path string) *AppError {
	return NewAppError(ErrorCodeNotImplemented, "no handler for "+path, 501)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrorCodeNotFound, message, 404)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrorCodeInternalError, message, 500)
}

// EnsureAppError converts an arbitrary error into an AppError.
func EnsureAppError(err error) *AppError {
	if err == nil {
		return NewInternalError("unknown error")
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewAppError(ErrorCodeInternalError, err.Error(), 500)
}
