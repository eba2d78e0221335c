package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/assetlife/server/internal/assetlife/actor"
	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

// MaintenanceService manages maintenance tickets. Open tickets block the
// lifecycle guards that require an asset to be free of maintenance work.
type MaintenanceService struct {
	tickets store.MaintenanceStore
	now     func() time.Time
}

func NewMaintenanceService(ts store.MaintenanceStore) *MaintenanceService {
	return &MaintenanceService{tickets: ts, now: func() time.Time { return time.Now().UTC() }}
}

func (s *MaintenanceService) Open(ctx context.Context, req types.OpenTicketRequest) (types.MaintenanceTicket, error) {
	by := actor.FromContext(ctx)
	if by == "" {
		return types.MaintenanceTicket{}, actor.ErrMissing
	}

	assetID := strings.TrimSpace(req.AssetID)
	if assetID == "" {
		return types.MaintenanceTicket{}, fmt.Errorf("%w: assetId is required", ErrValidation)
	}
	kind, err := types.ParseTicketKind(req.Type)
	if err != nil {
		return types.MaintenanceTicket{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	when, err := ParseDate("scheduledDate", req.ScheduledDate)
	if err != nil {
		return types.MaintenanceTicket{}, err
	}
	if req.EstimatedCost != nil && req.EstimatedCost.IsNegative() {
		return types.MaintenanceTicket{}, fmt.Errorf("%w: estimatedCost must not be negative", ErrValidation)
	}

	now := s.now()
	t := types.MaintenanceTicket{
		ID:            uuid.NewString(),
		AssetID:       assetID,
		Kind:          kind,
		Status:        types.TicketScheduled,
		ScheduledFor:  when,
		Vendor:        strings.TrimSpace(req.Vendor),
		EstimatedCost: req.EstimatedCost,
		Notes:         req.Notes,
		OpenedBy:      by,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.tickets.CreateTicket(ctx, t); err != nil {
		return types.MaintenanceTicket{}, err
	}
	return t, nil
}

func (s *MaintenanceService) List(ctx context.Context, assetID string) ([]types.MaintenanceTicket, error) {
	return s.tickets.ListTickets(ctx, strings.TrimSpace(assetID))
}

// SetStatus moves a ticket along SCHEDULED -> IN_PROGRESS -> COMPLETED, or
// to CANCELLED from either open state.
func (s *MaintenanceService) SetStatus(ctx context.Context, id, status string) (types.MaintenanceTicket, error) {
	to, err := types.ParseTicketStatus(status)
	if err != nil {
		return types.MaintenanceTicket{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	cur, err := s.tickets.GetTicket(ctx, id)
	if err != nil {
		return types.MaintenanceTicket{}, err
	}
	if !cur.Status.CanMoveTo(to) {
		return types.MaintenanceTicket{}, fmt.Errorf("%w: ticket is %s and cannot become %s", ErrInvalidState, cur.Status, to)
	}
	return s.tickets.SetTicketStatus(ctx, id, cur.Status, to)
}
