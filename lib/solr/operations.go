package solr

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Timeouts of the write operations
const (
	DeleteTimeout   = 60 * time.Second
	UpdateTimeout   = 60 * time.Second
	SynonymsTimeout = 180 * time.Second
	PingTimeout     = 10 * time.Second
)

// deleteAllPayload deletes every document of a core
const deleteAllPayload = "<delete><query>*:*</query></delete>"

// --------------------------------------------------------------------------
// Synonym types
// --------------------------------------------------------------------------

// SynonymType is the name of a managed synonym dictionary
type SynonymType string

const (
	SynonymTypeAll   SynonymType = "all"
	SynonymTypeExact SynonymType = "exact"
	SynonymTypeStem  SynonymType = "stem"
)

// SynonymTypes lists all supported synonym dictionaries
var SynonymTypes = []SynonymType{SynonymTypeAll, SynonymTypeExact, SynonymTypeStem}

// ParseSynonymType returns the SynonymType for s or an error if s is not supported
func ParseSynonymType(s string) (SynonymType, error) {
	for _, t := range SynonymTypes {
		if string(t) == strings.ToLower(s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid synonym type %q (expected one of %v)", s, SynonymTypes)
}

// --------------------------------------------------------------------------
// Replication commands
// --------------------------------------------------------------------------

// ReplicationCommand is a command understood by the solr replication handler
type ReplicationCommand string

const (
	ReplicationFetchIndex   ReplicationCommand = "fetchindex"
	ReplicationEnable       ReplicationCommand = "enablereplication"
	ReplicationDisable      ReplicationCommand = "disablereplication"
	ReplicationEnablePoll   ReplicationCommand = "enablepoll"
	ReplicationDisablePoll  ReplicationCommand = "disablepoll"
	ReplicationAbortFetch   ReplicationCommand = "abortfetch"
	ReplicationDetails      ReplicationCommand = "details"
	ReplicationIndexVersion ReplicationCommand = "indexversion"
)

// ReplicationCommands lists all supported replication commands
var ReplicationCommands = []ReplicationCommand{
	ReplicationFetchIndex,
	ReplicationEnable,
	ReplicationDisable,
	ReplicationEnablePoll,
	ReplicationDisablePoll,
	ReplicationAbortFetch,
	ReplicationDetails,
	ReplicationIndexVersion,
}

// ParseReplicationCommand returns the ReplicationCommand for s or an error if s is not supported
func ParseReplicationCommand(s string) (ReplicationCommand, error) {
	for _, c := range ReplicationCommands {
		if string(c) == strings.ToLower(s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid replication command %q (expected one of %v)", s, ReplicationCommands)
}

// --------------------------------------------------------------------------
// Query
// --------------------------------------------------------------------------

// QueryOption sets the pagination of a query
type QueryOption func(*queryPage)

type queryPage struct {
	offset int
	limit  int
}

// WithOffset sets the offset of the first returned document
func WithOffset(offset int) QueryOption {
	return func(p *queryPage) {
		p.offset = offset
	}
}

// WithLimit sets the number of returned documents
func WithLimit(limit int) QueryOption {
	return func(p *queryPage) {
		p.limit = limit
	}
}

// Query sends a json query to the follower and returns the decoded response.
// offset and limit are injected into a copy of the payload, the configured
// defaults are used if no option overrides them.
func (c *Client) Query(ctx context.Context, payload map[string]any, opts ...QueryOption) (map[string]any, error) {
	page := queryPage{offset: c.config.DefaultOffset, limit: c.config.DefaultLimit}
	for _, opt := range opts {
		opt(&page)
	}

	body := maps.Clone(payload)
	if body == nil {
		body = make(map[string]any, 2)
	}
	body["offset"] = page.offset
	body["limit"] = page.limit

	resp, err := c.Dispatch(ctx, Request{
		Method:   http.MethodPost,
		Template: SearchURL,
		JSON:     body,
		Role:     Follower,
	})
	if err != nil {
		return nil, err
	}
	return resp.Map()
}

// --------------------------------------------------------------------------
// Documents
// --------------------------------------------------------------------------

// CreateOrReplaceDocs adds the documents to the leader core, replacing documents
// with the same id. With commit=false the bulk update endpoint is used and the
// documents become visible with the next (auto) commit.
func (c *Client) CreateOrReplaceDocs(ctx context.Context, docs []any, commit bool) (*Response, error) {
	template := BulkUpdateURL
	if commit {
		template = UpdateURL
	}
	if docs == nil {
		docs = []any{}
	}
	return c.Dispatch(ctx, Request{
		Method:   http.MethodPost,
		Template: template,
		JSON:     docs,
		Role:     Leader,
		Timeout:  UpdateTimeout,
	})
}

// DeleteAllDocs deletes every document of the leader core
func (c *Client) DeleteAllDocs(ctx context.Context) (*Response, error) {
	return c.Dispatch(ctx, Request{
		Method:   http.MethodPost,
		Template: UpdateURL,
		XML:      deleteAllPayload,
		Role:     Leader,
		Timeout:  DeleteTimeout,
	})
}

// DeleteDocs deletes the documents with the given ids (upper-cased) from the leader core.
// An empty list results in a delete query that matches nothing.
func (c *Client) DeleteDocs(ctx context.Context, keys []string) (*Response, error) {
	return c.Dispatch(ctx, Request{
		Method:   http.MethodPost,
		Template: UpdateURL,
		XML:      deleteDocsPayload(keys),
		Role:     Leader,
		Timeout:  DeleteTimeout,
	})
}

// deleteDocsPayload builds <delete><query>id:A OR id:B</query></delete>
func deleteDocsPayload(keys []string) string {
	clauses := make([]string, len(keys))
	for i, key := range keys {
		clauses[i] = "id:" + strings.ToUpper(key)
	}
	return "<delete><query>" + strings.Join(clauses, " OR ") + "</query></delete>"
}

// --------------------------------------------------------------------------
// Administration
// --------------------------------------------------------------------------

// CreateOrUpdateSynonyms stores the synonyms in the managed dictionary of the leader core
func (c *Client) CreateOrUpdateSynonyms(ctx context.Context, synonymType SynonymType, synonyms map[string][]string) (*Response, error) {
	if _, err := ParseSynonymType(string(synonymType)); err != nil {
		return nil, errInvalidRequest("%v", err)
	}
	if synonyms == nil {
		synonyms = map[string][]string{}
	}
	return c.Dispatch(ctx, Request{
		Method:   http.MethodPut,
		Template: SynonymsURL + "/" + string(synonymType),
		JSON:     synonyms,
		Role:     Leader,
		Timeout:  SynonymsTimeout,
	})
}

// ReloadCore reloads the core of the given role
func (c *Client) ReloadCore(ctx context.Context, role Role) (*Response, error) {
	Logger.Infof("Reloading %s core...", role)
	resp, err := c.Dispatch(ctx, Request{
		Method:   http.MethodGet,
		Template: ReloadURL,
		Role:     role,
	})
	if err != nil {
		return nil, err
	}
	Logger.Infof("%s core reloaded.", role)
	return resp, nil
}

// Replication sends a replication command to the node of the given role
func (c *Client) Replication(ctx context.Context, command ReplicationCommand, role Role) (*Response, error) {
	Logger.Infof("Sending %s command to %s", command, role)
	resp, err := c.Dispatch(ctx, Request{
		Method:   http.MethodGet,
		Template: ReplicationURL,
		Params:   url.Values{"command": {string(command)}},
		Role:     role,
	})
	if err != nil {
		return nil, err
	}
	Logger.Infof("%s command executed.", command)
	return resp, nil
}

// Ping sends a lightweight GET to the search handler of the given role
func (c *Client) Ping(ctx context.Context, role Role) error {
	_, err := c.Dispatch(ctx, Request{
		Method:   http.MethodGet,
		Template: SearchURL,
		Role:     role,
		Timeout:  PingTimeout,
	})
	return err
}
