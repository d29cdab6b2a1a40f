package server

import (
	"context"

	"github.com/ValentinKolb/dSolr/lib/solr"
)

// ISolrClient defines the operations the API needs from the solr transport client.
// *solr.Client implements this interface.
type ISolrClient interface {
	// Query sends a json query to the follower and returns the decoded response
	Query(ctx context.Context, payload map[string]any, opts ...solr.QueryOption) (map[string]any, error)

	// CreateOrReplaceDocs adds documents to the leader, with commit=false the bulk endpoint is used
	CreateOrReplaceDocs(ctx context.Context, docs []any, commit bool) (*solr.Response, error)

	// DeleteDocs deletes the documents with the given ids from the leader
	DeleteDocs(ctx context.Context, keys []string) (*solr.Response, error)

	// DeleteAllDocs deletes every document of the leader core
	DeleteAllDocs(ctx context.Context) (*solr.Response, error)

	// CreateOrUpdateSynonyms stores a managed synonym dictionary on the leader
	CreateOrUpdateSynonyms(ctx context.Context, synonymType solr.SynonymType, synonyms map[string][]string) (*solr.Response, error)

	// ReloadCore reloads the core of the given role
	ReloadCore(ctx context.Context, role solr.Role) (*solr.Response, error)

	// Replication sends a replication command to the node of the given role
	Replication(ctx context.Context, command solr.ReplicationCommand, role solr.Role) (*solr.Response, error)

	// Ping checks that the node of the given role answers
	Ping(ctx context.Context, role solr.Role) error
}

var _ ISolrClient = (*solr.Client)(nil)
