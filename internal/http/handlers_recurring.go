package http

import (
	"net/http"
	"sync/atomic"
)

// handleGenerate runs one generation pass. An omitted as_of means today (UTC).
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	asOf, err := bodyDate("as_of", req.AsOf)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	result, err := s.deps.Engine.Generate(r.Context(), asOf)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.generated, int64(result.Created))
	writeJSON(w, http.StatusOK, result)
}
