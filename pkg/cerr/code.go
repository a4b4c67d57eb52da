package cerr

import "net/http"

// Code classifies an error for transport. Codes map onto HTTP statuses; the
// wire representation is the snake_case name unless the error carries a more
// specific domain reason.
type Code int

const (
	OK Code = iota
	Canceled
	Unknown
	InvalidArgument
	NotFound
	AlreadyExists
	PermissionDenied
	FailedPrecondition
	Unprocessable
	Internal
	Unavailable
	Unauthenticated
)

var codeStrings = map[Code]string{
	OK:                 "ok",
	Canceled:           "canceled",
	Unknown:            "unknown",
	InvalidArgument:    "invalid_argument",
	NotFound:           "not_found",
	AlreadyExists:      "already_exists",
	PermissionDenied:   "permission_denied",
	FailedPrecondition: "failed_precondition",
	Unprocessable:      "unprocessable",
	Internal:           "internal",
	Unavailable:        "unavailable",
	Unauthenticated:    "unauthenticated",
}

func (c Code) String() string {
	if s, ok := codeStrings[c]; ok {
		return s
	}
	return "unknown"
}

func (c Code) HTTPCode() int {
	switch c {
	case OK:
		return http.StatusOK
	case Canceled:
		return 499
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists:
		return http.StatusConflict
	case PermissionDenied:
		return http.StatusForbidden
	case FailedPrecondition:
		return http.StatusPreconditionFailed
	case Unprocessable:
		return http.StatusUnprocessableEntity
	case Unavailable:
		return http.StatusBadGateway
	case Unauthenticated:
		return http.StatusUnauthorized
	case Unknown, Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
