package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/assetlife/server/internal/assetlife/types"
)

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req types.CreateAssetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	a, err := s.assets.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, "create asset", err)
		return
	}
	respond(w, r, http.StatusCreated, a)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := types.AssetFilter{
		OwnerID:  q.Get("ownerId"),
		Category: q.Get("category"),
	}
	if f.OwnerID == "" {
		f.OwnerID = q.Get("assignedTo")
	}
	if v := q.Get("status"); v != "" {
		st, err := types.ParseStage(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_stage", err.Error())
			return
		}
		f.Status = st
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}

	out, err := s.assets.List(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, "list assets", err)
		return
	}
	respond(w, r, http.StatusOK, out)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	a, err := s.assets.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, "get asset", err)
		return
	}
	respond(w, r, http.StatusOK, a)
}

// handlePatchAsset updates attributes only. Status changes must go through
// POST /lifecycle.
func (s *Server) handlePatchAsset(w http.ResponseWriter, r *http.Request) {
	var body assetPatchBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}
	if len(body.Status) > 0 {
		writeError(w, http.StatusBadRequest, "status_not_patchable", "status can only be changed through POST /lifecycle")
		return
	}
	p, err := body.toPatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	a, err := s.assets.Patch(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		s.writeServiceError(w, r, "patch asset", err)
		return
	}
	respond(w, r, http.StatusOK, a)
}
