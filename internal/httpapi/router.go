package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/rs/zerolog"

	"github.com/freeeve/diskmap/internal/store"
)

// DefaultMaxBodySize caps PUT bodies when the caller sets no limit.
const DefaultMaxBodySize = 64 << 20

// Handler serves a byte-valued store over HTTP.
type Handler struct {
	store   store.Map[[]byte]
	maxBody int64
	log     zerolog.Logger
}

// NewRouter creates a new HTTP router for st. maxBody limits PUT bodies;
// zero selects DefaultMaxBodySize.
func NewRouter(log zerolog.Logger, st store.Map[[]byte], maxBody int64) http.Handler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	h := &Handler{
		store:   st,
		maxBody: maxBody,
		log:     log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.health)
	mux.HandleFunc("/readyz", h.health)
	mux.HandleFunc("GET /v1/keys", h.keys)
	mux.HandleFunc("GET /v1/keys/{key...}", h.get)
	mux.HandleFunc("PUT /v1/keys/{key...}", h.put)
	mux.HandleFunc("DELETE /v1/keys/{key...}", h.remove)
	mux.HandleFunc("GET /v1/size", h.size)
	mux.HandleFunc("GET /v1/stats", h.stats)
	mux.HandleFunc("POST /v1/erase", h.erase)
	mux.HandleFunc("POST /v1/clear", h.clear)

	// pprof endpoints
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	handler := CORS(RequestID(AccessLog(log, mux)))
	return handler
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	key, ok := pathKey(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodHead {
		if !h.store.ContainsKey(key) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	value, err := h.store.Get(key)
	if err != nil {
		h.storeError(w, r, "get", err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(value)
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	key, ok := pathKey(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "value too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body == nil {
		body = []byte{}
	}

	if err := h.store.Put(key, body); err != nil {
		h.storeError(w, r, "put", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	key, ok := pathKey(w, r)
	if !ok {
		return
	}
	// Deleting an absent key succeeds.
	if _, err := h.store.Remove(key); err != nil {
		h.storeError(w, r, "remove", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) keys(w http.ResponseWriter, r *http.Request) {
	keys := h.store.Keys()
	if prefix := r.URL.Query().Get("prefix"); prefix != "" {
		prefix = store.Sanitize(prefix)
		filtered := keys[:0]
		for _, k := range keys {
			if strings.HasPrefix(k, prefix) {
				filtered = append(filtered, k)
			}
		}
		keys = filtered
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, KeysResponse{Keys: keys, Count: len(keys)})
}

func (h *Handler) size(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, SizeResponse{Size: h.store.Size()})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, ToStatsResponse(h.store.Stats(), h.store.Size()))
}

func (h *Handler) erase(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Erase(); err != nil {
		h.storeError(w, r, "erase", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	h.store.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// storeError maps a store error onto a status code; unexpected failures
// are logged with the request ID and hidden from the client.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "key not found", http.StatusNotFound)
		return
	}
	h.log.Error().Err(err).Str("rid", GetRequestID(r.Context())).Str("op", op).Msg("store operation failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func pathKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.PathValue("key")
	if key == "" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return "", false
	}
	return key, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
	// Don't call http.Error after setting headers - it causes "superfluous WriteHeader"
}
