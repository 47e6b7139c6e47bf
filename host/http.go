package host

import (
	"context"
	"encoding/json"
	"net/http"

	goahttp "goa.design/goa/v3/http"
	goa "goa.design/goa/v3/pkg"

	"goa.design/bridge/engine"
	"goa.design/bridge/ir"
)

// QueryRequest is the JSON body a caller posts to Handler: a bridge
// coordinate plus the selection set to resolve against it, and whatever
// the bridge's own input fields are.
type QueryRequest struct {
	Type  string         `json:"type"`
	Field string         `json:"field"`
	Query string         `json:"query"`
	Input map[string]any `json:"input"`
}

// Handler serves POST requests carrying a QueryRequest body, resolving the
// requested selection set against e and writing the assembled result back
// as JSON. It plays the role a generated goa HTTP transport would play for
// a fixed method signature, except the field set is whatever the caller's
// query names instead of one generated per service method.
type Handler struct {
	Engine *engine.Engine
	// NewEncoder builds the response encoder for a request, following goa's
	// content-negotiated encoder factory convention so a caller on this
	// adapter gets the same Accept-header behavior as a generated goa
	// service would.
	NewEncoder func(context.Context, http.ResponseWriter) goahttp.Encoder
}

func NewHandler(e *engine.Engine) *Handler {
	return &Handler{Engine: e, NewEncoder: goahttp.ResponseEncoder}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(r.Context(), w, http.StatusMethodNotAllowed,
			goa.NewServiceError(nil, "method_not_allowed", false, false, false))
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest,
			goa.NewServiceError(err, "invalid_request_body", false, false, false))
		return
	}

	paths, err := ParseSelection(req.Query)
	if err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest,
			goa.NewServiceError(err, "invalid_query", false, false, false))
		return
	}

	input := ir.FromJSON(req.Input)
	tree := h.Engine.NewTree(r.Context(), req.Type, req.Field, input)
	result, err := Resolve(r.Context(), tree, paths)
	if err != nil {
		h.writeError(r.Context(), w, http.StatusInternalServerError,
			goa.NewServiceError(err, "resolve_failed", false, true, false))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := h.encoder(r.Context(), w).Encode(result.ToJSON()); err != nil {
		h.writeError(r.Context(), w, http.StatusInternalServerError,
			goa.NewServiceError(err, "encode_failed", false, true, false))
	}
}

func (h *Handler) encoder(ctx context.Context, w http.ResponseWriter) goahttp.Encoder {
	if h.NewEncoder != nil {
		return h.NewEncoder(ctx, w)
	}
	return goahttp.ResponseEncoder(ctx, w)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, status int, svcErr *goa.ServiceError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = h.encoder(ctx, w).Encode(svcErr)
}
