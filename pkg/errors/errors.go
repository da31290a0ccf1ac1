package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Authentication errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeInvalidCreds ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeBanned       ErrorCode = "ACCOUNT_BANNED"
	ErrCodeNotVerified  ErrorCode = "EMAIL_NOT_VERIFIED"

	// Authorization errors
	ErrCodeForbidden ErrorCode = "FORBIDDEN"

	// Not found errors
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUserNotFound ErrorCode = "USER_NOT_FOUND"
	ErrCodeCallNotFound ErrorCode = "CALL_NOT_FOUND"

	// Conflict errors
	ErrCodeConflict    ErrorCode = "CONFLICT"
	ErrCodeEmailExists ErrorCode = "EMAIL_EXISTS"
	ErrCodeTutorBusy   ErrorCode = "TUTOR_BUSY"

	// Call lifecycle errors
	ErrCodeNotAStudent          ErrorCode = "NOT_A_STUDENT"
	ErrCodeNotATeacher          ErrorCode = "NOT_A_TEACHER"
	ErrCodeNoActiveSubscription ErrorCode = "NO_ACTIVE_SUBSCRIPTION"
	ErrCodeTeacherUnavailable   ErrorCode = "TEACHER_UNAVAILABLE"
	ErrCodeStudentAlreadyInCall ErrorCode = "STUDENT_ALREADY_IN_CALL"
	ErrCodeTeacherAlreadyInCall ErrorCode = "TEACHER_ALREADY_IN_CALL"
	ErrCodeCallNotActive        ErrorCode = "CALL_NOT_ACTIVE"
	ErrCodeNotAParticipant      ErrorCode = "NOT_A_PARTICIPANT"
	ErrCodeSubscriptionExpired  ErrorCode = "SUBSCRIPTION_EXPIRED"

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	ErrCodeStorage  ErrorCode = "STORAGE_ERROR"
)

// AppError represents a structured application error with code, message, and HTTP status
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Err        error     `json:"-"`
}

// Error implements the error interface, returning a formatted error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is makes AppErrors comparable by code with errors.Is
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewWithStatus creates a new AppError with a specific HTTP status code
func NewWithStatus(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WrapWithStatus wraps an existing error with an AppError and specific status code
func WrapWithStatus(code ErrorCode, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Validation errors
func ValidationError(message string) *AppError {
	return NewWithStatus(ErrCodeValidation, message, http.StatusBadRequest)
}

func InvalidInputError(message string) *AppError {
	return NewWithStatus(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

// Authentication errors
func UnauthorizedError(message string) *AppError {
	return NewWithStatus(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func InvalidTokenError(message string) *AppError {
	return NewWithStatus(ErrCodeInvalidToken, message, http.StatusUnauthorized)
}

func InvalidCredentialsError() *AppError {
	return NewWithStatus(ErrCodeInvalidCreds, "Invalid email or password", http.StatusUnauthorized)
}

func BannedError() *AppError {
	return NewWithStatus(ErrCodeBanned, "This account has been banned", http.StatusForbidden)
}

func NotVerifiedError() *AppError {
	return NewWithStatus(ErrCodeNotVerified, "Please verify your email address first", http.StatusForbidden)
}

// Authorization errors
func ForbiddenError(message string) *AppError {
	return NewWithStatus(ErrCodeForbidden, message, http.StatusForbidden)
}

// Not found errors
func NotFoundError(resource string) *AppError {
	return NewWithStatus(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func UserNotFoundError() *AppError {
	return NewWithStatus(ErrCodeUserNotFound, "User not found", http.StatusNotFound)
}

func CallNotFoundError() *AppError {
	return NewWithStatus(ErrCodeCallNotFound, "No active call found", http.StatusNotFound)
}

// Conflict errors
func ConflictError(message string) *AppError {
	return NewWithStatus(ErrCodeConflict, message, http.StatusConflict)
}

func EmailExistsError() *AppError {
	return NewWithStatus(ErrCodeEmailExists, "Email already registered", http.StatusConflict)
}

func TutorBusyError() *AppError {
	return NewWithStatus(ErrCodeTutorBusy, "You are currently in a call. End the call first.", http.StatusConflict)
}

// Call lifecycle errors. The whole family is reported as 422 so clients
// can treat every rejected call transition uniformly.
func NotAStudentError() *AppError {
	return NewWithStatus(ErrCodeNotAStudent, "Only students can initiate calls", http.StatusUnprocessableEntity)
}

func NotATeacherError() *AppError {
	return NewWithStatus(ErrCodeNotATeacher, "You can only call a teacher", http.StatusUnprocessableEntity)
}

func NoActiveSubscriptionError() *AppError {
	return NewWithStatus(ErrCodeNoActiveSubscription, "You need an active subscription to make calls", http.StatusUnprocessableEntity)
}

func TeacherUnavailableError() *AppError {
	return NewWithStatus(ErrCodeTeacherUnavailable, "This tutor is not available right now", http.StatusUnprocessableEntity)
}

func StudentAlreadyInCallError() *AppError {
	return NewWithStatus(ErrCodeStudentAlreadyInCall, "You already have an active call", http.StatusUnprocessableEntity)
}

func TeacherAlreadyInCallError() *AppError {
	return NewWithStatus(ErrCodeTeacherAlreadyInCall, "This teacher is already in a call", http.StatusUnprocessableEntity)
}

func CallNotActiveError() *AppError {
	return NewWithStatus(ErrCodeCallNotActive, "This call is not active", http.StatusUnprocessableEntity)
}

func NotAParticipantError() *AppError {
	return NewWithStatus(ErrCodeNotAParticipant, "You are not a participant in this call", http.StatusUnprocessableEntity)
}

func SubscriptionExpiredError() *AppError {
	return NewWithStatus(ErrCodeSubscriptionExpired, "Your subscription has expired. Call ended.", http.StatusUnprocessableEntity)
}

// Internal errors
func InternalError(message string) *AppError {
	return NewWithStatus(ErrCodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(err error) *AppError {
	return WrapWithStatus(ErrCodeDatabase, "Database error", http.StatusInternalServerError, err)
}

func StorageError(err error) *AppError {
	return WrapWithStatus(ErrCodeStorage, "Storage error", http.StatusInternalServerError, err)
}

// GetAppError extracts AppError from an error, wrapping non-AppErrors as InternalError
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return InternalError(err.Error())
}
