package handler

import "net/http"

// Error represents an error with the intent to be sent in the HTTP
// response to the client. Therefore, it also contains the suitable status
// code and an error code that clients can switch on.
type Error struct {
	ErrorCode  string
	Message    string
	StatusCode int
}

func (e Error) Error() string {
	return e.ErrorCode + ": " + e.Message
}

func (e1 Error) Is(target error) bool {
	e2, ok := target.(Error)
	return ok && e1.ErrorCode == e2.ErrorCode
}

// NewError constructs a new Error object with the given error code, message
// and status code for the corresponding HTTP response.
func NewError(errCode string, message string, statusCode int) Error {
	return Error{
		ErrorCode:  errCode,
		Message:    message,
		StatusCode: statusCode,
	}
}

var (
	ErrNotLoggedIn       = NewError("ERR_NOT_LOGGED_IN", "not logged in", http.StatusUnauthorized)
	ErrInvalidChannel    = NewError("ERR_INVALID_CHANNEL", "invalid channel", http.StatusForbidden)
	ErrInvalidKeyFormat  = NewError("ERR_INVALID_KEY_FORMAT", "invalid key format", http.StatusBadRequest)
	ErrInvalidJSONBody   = NewError("ERR_INVALID_JSON_BODY", "invalid JSON body", http.StatusBadRequest)
	ErrInvalidPartNumber = NewError("ERR_INVALID_PART_NUMBER", "partNumber must be an integer between 1 and 10000", http.StatusBadRequest)
	ErrInvalidPartList   = NewError("ERR_INVALID_PART_LIST", "every part must carry a partNumber between 1 and 10000 and a non-empty eTag", http.StatusBadRequest)
)

// newMissingFieldsError reports absent required request fields.
func newMissingFieldsError(message string) Error {
	return NewError("ERR_MISSING_FIELDS", message, http.StatusBadRequest)
}

// newUpstreamError surfaces an object store failure. The upstream message
// is passed through verbatim so that clients can report it.
func newUpstreamError(err error) Error {
	return NewError("ERR_UPSTREAM", err.Error(), http.StatusInternalServerError)
}
