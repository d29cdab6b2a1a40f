// Package cmd implements the command-line interface of dSolr. It provides a
// hierarchical command structure for running the API server and for calling
// the solr operations directly.
//
// The package is organized into several subpackages:
//
//   - serve: Command for starting and configuring the dSolr API server
//   - solr: Commands for solr operations (query, update, delete, synonyms, reload, replication, ping, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dsolr -help for a list of all commands.
package cmd
