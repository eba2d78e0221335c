package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/assetlife/server/internal/assetlife/lifecycle"
	"github.com/assetlife/server/internal/assetlife/service"
	"github.com/assetlife/server/internal/assetlife/types"
)

const DefaultActorHeader = "X-Actor-ID"

type Dependencies struct {
	Logger             zerolog.Logger
	Addr               string
	ActorHeader        string
	Engine             *lifecycle.Engine
	AssetService       *service.AssetService
	MaintenanceService *service.MaintenanceService
	DisposalService    *service.DisposalService
	AllocationService  *service.AllocationService
	ProcurementService *service.ProcurementService
	// Ready, if set, is consulted by /healthz.
	Ready func(ctx context.Context) error
}

type Server struct {
	httpServer  *http.Server
	log         zerolog.Logger
	router      *mux.Router
	engine      *lifecycle.Engine
	assets      *service.AssetService
	maintenance *service.MaintenanceService
	disposals   *service.DisposalService
	allocations *service.AllocationService
	procurement *service.ProcurementService
	ready       func(ctx context.Context) error
}

func NewServer(d Dependencies) *Server {
	if d.ActorHeader == "" {
		d.ActorHeader = DefaultActorHeader
	}

	r := mux.NewRouter()

	s := &Server{
		log:         d.Logger.With().Str("component", "httpapi").Logger(),
		router:      r,
		engine:      d.Engine,
		assets:      d.AssetService,
		maintenance: d.MaintenanceService,
		disposals:   d.DisposalService,
		allocations: d.AllocationService,
		procurement: d.ProcurementService,
		ready:       d.Ready,
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/lifecycle", s.handleTransition).Methods(http.MethodPost)
	r.HandleFunc("/lifecycle/rules", s.handleRules).Methods(http.MethodGet)
	r.HandleFunc("/lifecycle/asset/{id}", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/lifecycle/asset/{id}/allowed", s.handleAllowed).Methods(http.MethodGet)

	r.HandleFunc("/assets", s.handleCreateAsset).Methods(http.MethodPost)
	r.HandleFunc("/assets", s.handleListAssets).Methods(http.MethodGet)
	r.HandleFunc("/assets/{id}", s.handleGetAsset).Methods(http.MethodGet)
	r.HandleFunc("/assets/{id}", s.handlePatchAsset).Methods(http.MethodPatch)

	r.HandleFunc("/maintenance", s.handleOpenTicket).Methods(http.MethodPost)
	r.HandleFunc("/maintenance", s.handleListTickets).Methods(http.MethodGet)
	r.HandleFunc("/maintenance/{id}", s.handleTicketStatus).Methods(http.MethodPatch)

	r.HandleFunc("/disposals", s.handleRequestDisposal).Methods(http.MethodPost)
	r.HandleFunc("/disposals", s.handleListDisposals).Methods(http.MethodGet)
	r.HandleFunc("/disposals/{id}", s.handleDecideDisposal).Methods(http.MethodPatch)

	r.HandleFunc("/allocations", s.handleAllocate).Methods(http.MethodPost)
	r.HandleFunc("/allocations", s.handleListAllocations).Methods(http.MethodGet)
	r.HandleFunc("/allocations/{id}", s.handleGetAllocation).Methods(http.MethodGet)
	r.HandleFunc("/allocations/{id}/check-in", s.handleCheckIn).Methods(http.MethodPost)
	r.HandleFunc("/allocations/{id}/check-out", s.handleCheckOut).Methods(http.MethodPost)

	r.HandleFunc("/procurement/requests", s.handleSubmitProcurement).Methods(http.MethodPost)
	r.HandleFunc("/procurement/requests", s.handleListProcurements).Methods(http.MethodGet)
	r.HandleFunc("/procurement/requests/{id}", s.handleGetProcurement).Methods(http.MethodGet)
	r.HandleFunc("/procurement/requests/{id}", s.handleDecideProcurement("")).Methods(http.MethodPatch)
	r.HandleFunc("/procurement/requests/{id}/approve", s.handleDecideProcurement(types.ProcurementApproved)).Methods(http.MethodPatch)
	r.HandleFunc("/procurement/requests/{id}/reject", s.handleDecideProcurement(types.ProcurementRejected)).Methods(http.MethodPatch)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	handler := loggingMiddleware(s.log, d.ActorHeader, actorMiddleware(d.ActorHeader, limitBody(r)))

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
