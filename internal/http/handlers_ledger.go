package http

import (
	"context"
	"net/http"
	"sync/atomic"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	status, err := parseStatus(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	items, err := s.deps.Ledger.List(r.Context(), status)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(items, newPendingResponse))
}

func (s *Server) handleGetPending(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	p, err := s.deps.Ledger.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPendingResponse(p))
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	committed, err := s.deps.Ledger.Confirm(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.confirmed, 1)
	s.invalidateCommitted()
	writeJSON(w, http.StatusOK, newCommittedResponse(committed))
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	p, err := s.deps.Ledger.Reject(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.rejected, 1)
	writeJSON(w, http.StatusOK, newPendingResponse(p))
}

func (s *Server) handleBatchConfirm(w http.ResponseWriter, r *http.Request) {
	s.handleBatch(w, r, s.deps.Ledger.BatchConfirm, &s.appMetrics.confirmed)
}

func (s *Server) handleBatchReject(w http.ResponseWriter, r *http.Request) {
	s.handleBatch(w, r, s.deps.Ledger.BatchReject, &s.appMetrics.rejected)
}

// handleBatch always answers 200 once the body is valid; failures are reported per id.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request, run func(context.Context, []int64) services.BatchResult, counter *int64) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	result := run(r.Context(), req.IDs)
	if result.Succeeded > 0 {
		atomic.AddInt64(counter, int64(result.Succeeded))
		s.invalidateCommitted()
	}
	writeJSON(w, http.StatusOK, result)
}

// committed returns the listing for [from, to], served from cache when possible.
func (s *Server) committed(ctx context.Context, from, to core.Date) ([]core.CommittedTransaction, error) {
	key := from.String() + "|" + to.String()
	if txs, ok := s.committedCache.Get(key); ok {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		return txs, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)
	txs, err := s.deps.Ledger.Committed(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.committedCache.Set(key, txs)
	return txs, nil
}

func (s *Server) handleListCommitted(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	txs, err := s.committed(r.Context(), from, to)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(txs, newCommittedResponse))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	txs, err := s.committed(r.Context(), from, to)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(core.Summarize(from, to, txs)))
}

func (s *Server) handleGetCommitted(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	c, err := s.deps.Ledger.GetCommitted(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCommittedResponse(c))
}
