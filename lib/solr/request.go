package solr

import (
	"encoding/json"
	"net/http"
	"net/url"
	"reflect"
	"time"
)

// Content types sent to solr
const (
	ContentTypeJSON = "application/json"
	ContentTypeXML  = "application/xml"
)

// Request describes a single logical call to solr.
// At most one of JSON and XML may be set. Which one is set together with the
// method decides how the request is encoded:
//
//	GET              -> query parameters only
//	POST/PUT + JSON  -> json encoded body
//	POST + XML       -> raw xml body
//
// Every other combination is rejected before anything is sent.
type Request struct {
	Method string
	// Template is one of the URL templates (optionally with a path suffix)
	Template string
	Params   url.Values
	JSON     any
	XML      string
	Role     Role
	// Timeout of a single attempt, zero means the configured default
	Timeout time.Duration
}

// encodedRequest is the wire form of a Request. It is built once per call
// and reused for every attempt.
type encodedRequest struct {
	method      string
	url         string
	body        []byte
	contentType string
	timeout     time.Duration
}

// encode checks the method/body combination and builds the wire form
func (r Request) encode(config ClientConfig) (*encodedRequest, error) {
	hasJSON := !isNil(r.JSON)
	hasXML := r.XML != ""

	enc := &encodedRequest{
		method:  r.Method,
		timeout: r.Timeout,
	}
	if enc.timeout <= 0 {
		enc.timeout = config.timeout()
	}

	switch {
	case hasJSON && hasXML:
		return nil, errInvalidRequest("json and xml body given for %s %s", r.Method, r.Template)

	case r.Method == http.MethodGet && !hasJSON && !hasXML:
		// no body

	case (r.Method == http.MethodPost || r.Method == http.MethodPut) && hasJSON:
		body, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, errInvalidRequest("failed to encode json body: %v", err)
		}
		enc.body = body
		enc.contentType = ContentTypeJSON

	case r.Method == http.MethodPost && hasXML:
		enc.body = []byte(r.XML)
		enc.contentType = ContentTypeXML

	default:
		return nil, errInvalidRequest("unsupported combination: method=%q json=%t xml=%t", r.Method, hasJSON, hasXML)
	}

	// Build the url from the template and attach the query parameters
	u, err := url.Parse(config.expand(r.Template, r.Role))
	if err != nil {
		return nil, errInvalidRequest("invalid url: %v", err)
	}
	if len(r.Params) > 0 {
		query := u.Query()
		for key, values := range r.Params {
			for _, v := range values {
				query.Add(key, v)
			}
		}
		u.RawQuery = query.Encode()
	}
	enc.url = u.String()

	return enc, nil
}

// isNil reports whether v is nil or a nil map, slice or pointer
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
