package solr

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
)

// --------------------------------------------------------------------------
// Attempt classification
// --------------------------------------------------------------------------

// class is the classification of a single attempt
type class uint8

const (
	classSuccess class = iota
	classConnection
	classTransient
	classFailure
	classUnexpected
)

// outcome is the raw result of a single attempt
type outcome struct {
	class      class
	status     int // 0 if no response was received
	header     http.Header
	body       []byte
	err        error
	dialFailed bool
}

// classify assigns a class to the raw result of an attempt.
//
//	transport error that is a connection problem  -> classConnection
//	any other transport error                     -> classUnexpected
//	200                                           -> classSuccess
//	413, 429, 502, 503, 504                       -> classTransient
//	any other status                              -> classFailure
func classify(status int, err error) (c class, dialFailed bool) {
	if err != nil {
		if connErr, dial := isConnectionError(err); connErr {
			return classConnection, dial
		}
		return classUnexpected, false
	}
	switch {
	case status == http.StatusOK:
		return classSuccess, false
	case retryStatuses[status]:
		return classTransient, false
	default:
		return classFailure, false
	}
}

// isConnectionError reports whether err means the node could not be reached or
// dropped the connection. dial is true if the connection was never established.
func isConnectionError(err error) (connErr bool, dial bool) {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true, true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true, true
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true, true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true, false
	}
	return false, false
}

// --------------------------------------------------------------------------
// Error construction
// --------------------------------------------------------------------------

// toError converts the outcome of the last attempt into a SolrError
func (o outcome) toError() *SolrError {
	switch o.class {
	case classConnection:
		return NewSolrError(KindConnection, http.StatusGatewayTimeout, MsgConnectionError, o.err)
	case classTransient:
		return NewSolrError(KindTransient, o.statusOr(http.StatusInternalServerError), errorMessage(o.body), o.err)
	case classFailure:
		return NewSolrError(KindFailure, o.statusOr(http.StatusInternalServerError), errorMessage(o.body), o.err)
	default:
		// best effort: use the real status if a non-200 response was received
		status := http.StatusInternalServerError
		if o.status != 0 && o.status != http.StatusOK {
			status = o.status
		}
		return NewSolrError(KindUnexpected, status, errorMessage(o.body), o.err)
	}
}

// statusOr returns the received status or def if no status was received
func (o outcome) statusOr(def int) int {
	if o.status <= 0 {
		return def
	}
	return o.status
}

// solrErrorBody is the error format of solr responses
type solrErrorBody struct {
	Error struct {
		Msg  string `json:"msg"`
		Code int    `json:"code"`
	} `json:"error"`
}

// errorMessage extracts error.msg from a solr error body, falling back to MsgRequestError
func errorMessage(body []byte) string {
	if len(body) == 0 {
		return MsgRequestError
	}
	var parsed solrErrorBody
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error.Msg == "" {
		return MsgRequestError
	}
	return parsed.Error.Msg
}
