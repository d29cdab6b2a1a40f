// Package solr implements the "dsolr solr" command group. The commands call
// the named operations of the transport client directly, without going
// through the API server, and print the solr response as json.
//
// Destructive commands need an explicit confirmation (delete-all --yes).
package solr
