package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/assetlife/server/internal/assetlife/types"
)

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req types.TransitionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}
	if req.AssetID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "assetId is required")
		return
	}
	to, err := types.ParseStage(req.Stage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_stage", err.Error())
		return
	}

	ev, err := s.engine.Transition(r.Context(), req.AssetID, to, req.Notes)
	if err != nil {
		s.writeServiceError(w, r, "transition", err)
		return
	}
	respond(w, r, http.StatusCreated, eventToDTO(ev))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	seq, err := s.engine.HistoryOf(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, "history", err)
		return
	}

	out := make([]eventDTO, 0)
	for ev, err := range seq {
		if err != nil {
			s.writeServiceError(w, r, "history", err)
			return
		}
		out = append(out, eventToDTO(ev))
	}
	respond(w, r, http.StatusOK, out)
}

func (s *Server) handleAllowed(w http.ResponseWriter, r *http.Request) {
	targets, err := s.engine.AllowedTargets(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, "allowed targets", err)
		return
	}
	respond(w, r, http.StatusOK, targets)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, s.engine.Validator().Rules().Rules())
}
