// Package server implements the HTTP API of dSolr. It exposes the named
// operations of the solr transport client as JSON endpoints and translates
// every SolrError into the status and message the caller receives.
//
// Routes:
//
//	GET  /ops/healthz                         pings leader and follower
//	GET  /ops/readyz                          readiness probe
//	GET  /metrics                             prometheus metrics
//	POST /api/v1/search/query?start=&rows=    query the follower
//	POST /internal/solr/update?commit=        add or replace documents
//	POST /internal/solr/delete                delete documents by id ({"keys": [...]})
//	POST /internal/solr/delete-all            delete every document
//	PUT  /internal/solr/synonyms/{type}       store a synonym dictionary
//	POST /internal/solr/reload?role=          reload a core
//	POST /internal/solr/replication/{command}?role=
//
// Every route except the operations endpoints requires the x-apikey header if
// api keys are configured. Errors are returned as {"message": "..."}.
package server
