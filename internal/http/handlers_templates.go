package http

import (
	"net/http"
	"strconv"
)

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.deps.Templates.List(r.Context())
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(templates, newTemplateResponse))
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	t, err := req.toTemplate()
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	created, err := s.deps.Templates.Create(r.Context(), t)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/templates/"+strconv.FormatInt(created.ID, 10)).
		Body(newTemplateResponse(created)).
		Write(w)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	t, err := s.deps.Templates.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTemplateResponse(t))
}

// handleUpdateTemplate replaces the template. Existing pending rows are not touched.
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	var req templateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	t, err := req.toTemplate()
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	t.ID = id
	updated, err := s.deps.Templates.Update(r.Context(), t)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTemplateResponse(updated))
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	if err := s.deps.Templates.Delete(r.Context(), id); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleSetTemplateActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			ErrorResponse(w, r, err)
			return
		}
		t, err := s.deps.Templates.SetActive(r.Context(), id, active)
		if err != nil {
			ErrorResponse(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newTemplateResponse(t))
	}
}
