package web

import (
	"encoding/json"
	"net/http"

	"github.com/conorfennell/notetaker/internal/app"
	"github.com/conorfennell/notetaker/internal/domain"
	"github.com/conorfennell/notetaker/internal/logger"
	"github.com/conorfennell/notetaker/internal/notes"
)

type noteRequest struct {
	Title string `json:"noteTitle"`
	Body  string `json:"noteBody"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) handleAPIList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := []domain.Note{}
		err := s.app.Do(r.Context(), func(repo *notes.Repository) error {
			for n, err := range repo.ListAll(r.Context()) {
				if err != nil {
					return err
				}
				list = append(list, n)
			}
			return nil
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, list)
	}
}

func (s *Server) handleAPIGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := noteID(w, r)
		if !ok {
			return
		}
		var note domain.Note
		err := s.app.Do(r.Context(), func(repo *notes.Repository) (err error) {
			note, err = repo.Read(r.Context(), id)
			return err
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, note)
	}
}

func (s *Server) handleAPICreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeNote(w, r)
		if !ok {
			return
		}
		var note domain.Note
		err := s.app.Do(r.Context(), func(repo *notes.Repository) (err error) {
			note, err = repo.Create(r.Context(), req.Title, req.Body)
			return err
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusCreated, note)
	}
}

func (s *Server) handleAPIUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := noteID(w, r)
		if !ok {
			return
		}
		req, ok := decodeNote(w, r)
		if !ok {
			return
		}
		var note domain.Note
		err := s.app.Do(r.Context(), func(repo *notes.Repository) (err error) {
			note, err = repo.Update(r.Context(), id, req.Title, req.Body)
			return err
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, note)
	}
}

func (s *Server) handleAPIDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := noteID(w, r)
		if !ok {
			return
		}
		err := s.app.Do(r.Context(), func(repo *notes.Repository) error {
			return repo.Delete(r.Context(), id)
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodeNote(w http.ResponseWriter, r *http.Request) (noteRequest, bool) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context(), s.log).WithError(err).Warn("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context(), s.log).WithError(err).Error("api request failed")
	}
	s.writeJSON(w, r, status, errorResponse{Error: err.Error(), Kind: app.Kind(err)})
}
