// Package solr implements the transport client dSolr uses to talk to a Solr
// deployment with a leader and a follower node. It turns logical operations
// into HTTP calls against the right node and maps every failure onto a single
// error type.
//
// The package focuses on:
//   - Routing requests to the leader or the follower (URL templating)
//   - Selecting the wire encoding (query parameters, JSON or XML body)
//   - Retrying overload responses and connection failures with exponential backoff
//   - Classifying every failure into a SolrError with a status and a message
//
// Key Components:
//
//   - ClientConfig: URLs and cores for both roles, the retry policy and the
//     pagination defaults. The client keeps its own copy, the configuration
//     cannot be changed after NewClient.
//
//   - Request: Describes a single call (method, URL template, parameters, body,
//     role and timeout). Exactly one of the JSON and XML bodies may be set.
//
//   - Client.Dispatch: Executes a Request. The statuses 413, 429, 502, 503 and 504
//     are retried for GET and POST, up to RetryTotal times. The first retry is
//     immediate, the n-th retry waits RetryBackoffFactor * 2^(n-1) seconds
//     (a Retry-After header takes precedence). A new HTTP session is used per call.
//
//   - Named operations: Query, CreateOrReplaceDocs, DeleteDocs, DeleteAllDocs,
//     CreateOrUpdateSynonyms, ReloadCore, Replication and Ping. All of them are
//     built on Dispatch.
//
//   - SolrError: The only error returned by the client. The Kind tells why the
//     call failed:
//
//     KindPrecondition  invalid method/body combination, nothing was sent (500)
//     KindConnection    node unreachable or connection dropped (504)
//     KindTransient     overload status still returned after all retries
//     KindFailure       any other non-200 status, message taken from error.msg
//     KindUnexpected    timeouts, unreadable bodies (500)
//
// Usage:
//
//	client, err := solr.NewClient(config)
//	if err != nil {
//		return err
//	}
//
//	docs, err := client.Query(ctx, map[string]any{"query": "name:acme"}, solr.WithLimit(20))
//	if err != nil {
//		solrErr := solr.AsSolrError(err)
//		http.Error(w, solrErr.Message, solrErr.StatusCode)
//	}
//
// Thread Safety:
//
//	A Client can be shared between goroutines. It holds no per-call state; calls
//	are independent and block until the exchange (including retries) finishes.
package solr
