package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/assetlife/server/internal/assetlife/types"
)

// ── Maintenance ──────────────────────────────────────────────────────────────

func (s *Server) handleOpenTicket(w http.ResponseWriter, r *http.Request) {
	var req types.OpenTicketRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	t, err := s.maintenance.Open(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, "open ticket", err)
		return
	}
	respond(w, r, http.StatusCreated, t)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	out, err := s.maintenance.List(r.Context(), r.URL.Query().Get("assetId"))
	if err != nil {
		s.writeServiceError(w, r, "list tickets", err)
		return
	}
	respond(w, r, http.StatusOK, out)
}

func (s *Server) handleTicketStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	t, err := s.maintenance.SetStatus(r.Context(), mux.Vars(r)["id"], body.Status)
	if err != nil {
		s.writeServiceError(w, r, "ticket status", err)
		return
	}
	respond(w, r, http.StatusOK, t)
}

// ── Disposal ─────────────────────────────────────────────────────────────────

func (s *Server) handleRequestDisposal(w http.ResponseWriter, r *http.Request) {
	var body types.DisposalRequestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	d, err := s.disposals.Request(r.Context(), body)
	if err != nil {
		s.writeServiceError(w, r, "request disposal", err)
		return
	}
	respond(w, r, http.StatusCreated, d)
}

func (s *Server) handleListDisposals(w http.ResponseWriter, r *http.Request) {
	out, err := s.disposals.List(r.Context(), r.URL.Query().Get("assetId"))
	if err != nil {
		s.writeServiceError(w, r, "list disposals", err)
		return
	}
	respond(w, r, http.StatusOK, out)
}

func (s *Server) handleDecideDisposal(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	d, err := s.disposals.Decide(r.Context(), mux.Vars(r)["id"], body.Status)
	if err != nil {
		s.writeServiceError(w, r, "decide disposal", err)
		return
	}
	respond(w, r, http.StatusOK, d)
}

// ── Allocations ──────────────────────────────────────────────────────────────

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req types.AllocationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	al, err := s.allocations.Allocate(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, "allocate", err)
		return
	}
	respond(w, r, http.StatusCreated, al)
}

func (s *Server) handleListAllocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := s.allocations.List(r.Context(), q.Get("assetId"), q.Get("assignedTo"), q.Get("status"))
	if err != nil {
		s.writeServiceError(w, r, "list allocations", err)
		return
	}
	respond(w, r, http.StatusOK, out)
}

func (s *Server) handleGetAllocation(w http.ResponseWriter, r *http.Request) {
	al, err := s.allocations.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, "get allocation", err)
		return
	}
	respond(w, r, http.StatusOK, al)
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	al, err := s.allocations.CheckIn(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, "check in", err)
		return
	}
	respond(w, r, http.StatusOK, al)
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	al, err := s.allocations.CheckOut(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, "check out", err)
		return
	}
	respond(w, r, http.StatusOK, al)
}

// ── Procurement ──────────────────────────────────────────────────────────────

func (s *Server) handleSubmitProcurement(w http.ResponseWriter, r *http.Request) {
	var body types.ProcurementRequestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	p, err := s.procurement.Submit(r.Context(), body)
	if err != nil {
		s.writeServiceError(w, r, "submit procurement", err)
		return
	}
	respond(w, r, http.StatusCreated, p)
}

func (s *Server) handleListProcurements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := s.procurement.List(r.Context(), q.Get("assetId"), q.Get("status"))
	if err != nil {
		s.writeServiceError(w, r, "list procurement", err)
		return
	}
	respond(w, r, http.StatusOK, out)
}

func (s *Server) handleGetProcurement(w http.ResponseWriter, r *http.Request) {
	p, err := s.procurement.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, "get procurement", err)
		return
	}
	respond(w, r, http.StatusOK, p)
}

// handleDecideProcurement serves PATCH /procurement/requests/{id} and its
// /approve and /reject shorthands. fixed, when set, overrides the body's
// status.
func (s *Server) handleDecideProcurement(fixed types.ProcurementStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body decisionBody
		if r.ContentLength != 0 {
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "bad_json", "invalid request body")
				return
			}
		}
		if fixed != "" {
			body.Status = string(fixed)
		}

		p, err := s.procurement.Decide(r.Context(), mux.Vars(r)["id"], body.Status, body.Reason)
		if err != nil {
			s.writeServiceError(w, r, "decide procurement", err)
			return
		}
		respond(w, r, http.StatusOK, p)
	}
}
