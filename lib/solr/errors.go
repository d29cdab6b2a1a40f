package solr

import (
	"errors"
	"fmt"
	"net/http"
)

// Messages used when no better message is available
const (
	MsgInvalidRequest  = "Invalid request parameters."
	MsgConnectionError = "Connection error while handling Solr request."
	MsgRequestError    = "Error handling Solr request."
)

// ErrorKind classifies why a request failed
type ErrorKind uint8

const (
	// KindPrecondition is a malformed call, nothing was sent
	KindPrecondition ErrorKind = iota
	// KindConnection means the node could not be reached
	KindConnection
	// KindTransient is an overload status that was still returned after all retries
	KindTransient
	// KindFailure is any other non-200 status
	KindFailure
	// KindUnexpected covers timeouts, unreadable bodies and similar problems
	KindUnexpected
)

// String returns the string representation of an ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindConnection:
		return "connection"
	case KindTransient:
		return "transient"
	case KindFailure:
		return "failure"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// SolrError is the only error type returned by the client.
// StatusCode is the status the caller should answer with.
type SolrError struct {
	Message    string
	StatusCode int
	Kind       ErrorKind
	err        error
}

// NewSolrError creates a new SolrError. cause may be nil
func NewSolrError(kind ErrorKind, status int, message string, cause error) *SolrError {
	return &SolrError{
		Message:    message,
		StatusCode: status,
		Kind:       kind,
		err:        cause,
	}
}

func (e *SolrError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("solr %s error (status %d): %s: %v", e.Kind, e.StatusCode, e.Message, e.err)
	}
	return fmt.Sprintf("solr %s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause
func (e *SolrError) Unwrap() error {
	return e.err
}

// AsSolrError returns the SolrError in err's chain. Errors of other types are
// wrapped as unexpected errors so callers always get a status and a message.
func AsSolrError(err error) *SolrError {
	if err == nil {
		return nil
	}
	var solrErr *SolrError
	if errors.As(err, &solrErr) {
		return solrErr
	}
	return NewSolrError(KindUnexpected, http.StatusInternalServerError, MsgRequestError, err)
}

// errInvalidRequest creates the precondition error for an unsupported method/body combination
func errInvalidRequest(format string, args ...interface{}) *SolrError {
	return NewSolrError(KindPrecondition, http.StatusInternalServerError, MsgInvalidRequest, fmt.Errorf(format, args...))
}
