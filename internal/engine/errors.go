package engine

import "errors"

// ErrorKind classifies admission failures.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindNotFound
	KindRoomFull
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindRoomFull:
		return "room_full"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is against an *AdmissionError.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("room not found")
	ErrRoomFull   = errors.New("room is full")
	ErrInternal   = errors.New("internal error")
)

// AdmissionError is returned by CreateRoom and JoinRoom. Message is safe to
// show to the player.
type AdmissionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AdmissionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AdmissionError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *AdmissionError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrRoomFull:
		return e.Kind == KindRoomFull
	case ErrInternal:
		return e.Kind == KindInternal
	}
	return false
}

func validationError(msg string) *AdmissionError {
	return &AdmissionError{Kind: KindValidation, Message: msg}
}

func internalError(err error) *AdmissionError {
	return &AdmissionError{Kind: KindInternal, Message: "Internal server error", Err: err}
}

func notFoundError() *AdmissionError {
	return &AdmissionError{Kind: KindNotFound, Message: "Room not found"}
}

func roomFullError() *AdmissionError {
	return &AdmissionError{Kind: KindRoomFull, Message: "Room is full"}
}
