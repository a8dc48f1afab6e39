package domain

import (
	"errors"
	"fmt"
)

// AppError is the error type surfaced to the operator. Retryable errors end the
// current cycle with a message; the session keeps running.
type AppError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Err       error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so copies made by WithError
// still satisfy errors.Is against the sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
		Err:       err,
	}
}

// IsRetryable reports whether err is an AppError the operator can retry.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Retryable
}

// Pre-defined errors
var (
	ErrInvalidImage = &AppError{
		Code:      "INVALID_IMAGE",
		Message:   "Invalid image format or corrupted file",
		Retryable: true,
	}

	ErrNoFaceDetected = &AppError{
		Code:      "NO_FACE_DETECTED",
		Message:   "No face detected in the image",
		Retryable: true,
	}

	ErrInvalidLabel = &AppError{
		Code:      "INVALID_LABEL",
		Message:   "Member name is empty or contains invalid characters",
		Retryable: true,
	}

	ErrDuplicateLabel = &AppError{
		Code:      "DUPLICATE_LABEL",
		Message:   "A member with this name is already registered",
		Retryable: true,
	}

	ErrInvalidThreshold = &AppError{
		Code:    "INVALID_THRESHOLD",
		Message: "Match threshold must be a positive distance",
	}

	ErrMemberNotFound = &AppError{
		Code:    "MEMBER_NOT_FOUND",
		Message: "Member not found in gallery",
	}

	ErrGalleryUnavailable = &AppError{
		Code:    "GALLERY_UNAVAILABLE",
		Message: "Member photo directory is not accessible",
	}

	ErrLedgerUnavailable = &AppError{
		Code:    "LEDGER_UNAVAILABLE",
		Message: "Attendance ledger is not accessible",
	}

	ErrCameraUnavailable = &AppError{
		Code:    "CAMERA_UNAVAILABLE",
		Message: "Camera could not be opened",
	}

	ErrCaptureFailed = &AppError{
		Code:      "CAPTURE_FAILED",
		Message:   "Could not capture a frame from the camera",
		Retryable: true,
	}
)
