package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ValentinKolb/dSolr/lib/solr"
	"github.com/VictoriaMetrics/metrics"
	"golang.org/x/sync/errgroup"
)

// maxBodyBytes limits the size of request bodies
const maxBodyBytes = 32 << 20

// Messages of the operations endpoints
const (
	msgHealthy = "api is healthy"
	msgDown    = "api is down"
	msgReady   = "api is ready"
)

// messageBody is the body of every error and status response
type messageBody struct {
	Message string `json:"message"`
}

// deleteBody is the body of the delete endpoint
type deleteBody struct {
	Keys []string `json:"keys"`
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// handleHealth pings leader and follower concurrently
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	g, ctx := errgroup.WithContext(r.Context())
	for _, role := range []solr.Role{solr.Leader, solr.Follower} {
		g.Go(func() error {
			if err := s.client.Ping(ctx, role); err != nil {
				return fmt.Errorf("%s unavailable: %w", role, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		Logger.Warningf("Health check failed: %v", err)
		writeMessage(w, http.StatusInternalServerError, msgDown)
		return
	}
	writeMessage(w, http.StatusOK, msgHealthy)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, msgReady)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	metrics.WritePrometheus(w, true)
}

// --------------------------------------------------------------------------
// Search
// --------------------------------------------------------------------------

// handleQuery forwards the json query to the follower. start and rows override the
// configured pagination defaults.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var opts []solr.QueryOption
	if start, ok, err := intParam(r, "start"); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	} else if ok {
		opts = append(opts, solr.WithOffset(start))
	}
	if rows, ok, err := intParam(r, "rows"); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	} else if ok {
		opts = append(opts, solr.WithLimit(rows))
	}

	var payload map[string]any
	if err := decodeBody(r, &payload); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.client.Query(r.Context(), payload, opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --------------------------------------------------------------------------
// Documents
// --------------------------------------------------------------------------

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	commit := true
	if v := r.URL.Query().Get("commit"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid commit parameter %q", v))
			return
		}
		commit = parsed
	}

	var docs []any
	if err := decodeBody(r, &docs); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.client.CreateOrReplaceDocs(r.Context(), docs, commit)
	writeSolrResponse(w, resp, err)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var body deleteBody
	if err := decodeBody(r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Keys == nil {
		writeMessage(w, http.StatusBadRequest, "missing keys")
		return
	}

	resp, err := s.client.DeleteDocs(r.Context(), body.Keys)
	writeSolrResponse(w, resp, err)
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	Logger.Warningf("Deleting all documents (request %s)", requestID(r.Context()))
	resp, err := s.client.DeleteAllDocs(r.Context())
	writeSolrResponse(w, resp, err)
}

// --------------------------------------------------------------------------
// Administration
// --------------------------------------------------------------------------

func (s *Server) handleSynonyms(w http.ResponseWriter, r *http.Request) {
	synonymType, err := solr.ParseSynonymType(r.PathValue("type"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var synonyms map[string][]string
	if err := decodeBody(r, &synonyms); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.client.CreateOrUpdateSynonyms(r.Context(), synonymType, synonyms)
	writeSolrResponse(w, resp, err)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	role, err := solr.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.client.ReloadCore(r.Context(), role)
	writeSolrResponse(w, resp, err)
}

func (s *Server) handleReplication(w http.ResponseWriter, r *http.Request) {
	command, err := solr.ParseReplicationCommand(r.PathValue("command"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	role, err := solr.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.client.Replication(r.Context(), command, role)
	writeSolrResponse(w, resp, err)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// intParam parses a non-negative integer query parameter
func intParam(r *http.Request, name string) (value int, ok bool, err error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	value, err = strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, false, fmt.Errorf("invalid %s parameter %q", name, raw)
	}
	return value, true, nil
}

// decodeBody decodes the json request body into v
func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid json body: %v", err)
	}
	return nil
}

// writeJSON writes v as json with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger.Errorf("Failed to write response: %v", err)
	}
}

// writeMessage writes {"message": msg} with the given status
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageBody{Message: msg})
}

// writeError translates err into the status and message of its SolrError
func writeError(w http.ResponseWriter, err error) {
	solrErr := solr.AsSolrError(err)
	if errors.Is(err, context.Canceled) {
		Logger.Debugf("Request canceled: %v", err)
	} else {
		Logger.Warningf("Solr request failed: %v", err)
	}
	writeMessage(w, solrErr.StatusCode, solrErr.Message)
}

// writeSolrResponse passes the json body of a successful solr response through
func writeSolrResponse(w http.ResponseWriter, resp *solr.Response, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	if len(resp.Body) == 0 || !json.Valid(resp.Body) {
		writeMessage(w, http.StatusOK, "ok")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.Body); err != nil {
		Logger.Errorf("Failed to write response: %v", err)
	}
}
