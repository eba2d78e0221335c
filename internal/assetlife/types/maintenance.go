package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketScheduled  TicketStatus = "SCHEDULED"
	TicketInProgress TicketStatus = "IN_PROGRESS"
	TicketCompleted  TicketStatus = "COMPLETED"
	TicketCancelled  TicketStatus = "CANCELLED"
)

// Open reports whether the ticket still blocks the asset.
func (s TicketStatus) Open() bool {
	return s == TicketScheduled || s == TicketInProgress
}

// CanMoveTo reports whether a ticket may go from s to next.
func (s TicketStatus) CanMoveTo(next TicketStatus) bool {
	switch s {
	case TicketScheduled:
		return next == TicketInProgress || next == TicketCancelled || next == TicketCompleted
	case TicketInProgress:
		return next == TicketCompleted || next == TicketCancelled
	}
	return false
}

// ParseTicketStatus accepts the canonical names as well as the display
// strings used by the dashboard ("In Progress", "Scheduled", ...).
func ParseTicketStatus(s string) (TicketStatus, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch TicketStatus(norm) {
	case TicketScheduled, TicketInProgress, TicketCompleted, TicketCancelled:
		return TicketStatus(norm), nil
	case "CANCELED":
		return TicketCancelled, nil
	}
	return "", fmt.Errorf("unknown maintenance status %q", s)
}

type TicketKind string

const (
	TicketPreventive TicketKind = "PREVENTIVE"
	TicketCorrective TicketKind = "CORRECTIVE"
	TicketInspection TicketKind = "INSPECTION"
)

func ParseTicketKind(s string) (TicketKind, error) {
	norm := TicketKind(strings.ToUpper(strings.TrimSpace(s)))
	switch norm {
	case "":
		return TicketPreventive, nil
	case TicketPreventive, TicketCorrective, TicketInspection:
		return norm, nil
	}
	return "", fmt.Errorf("unknown maintenance type %q", s)
}

// MaintenanceTicket is a unit of maintenance work against an asset.
type MaintenanceTicket struct {
	ID            string           `json:"id"`
	AssetID       string           `json:"assetId"`
	Kind          TicketKind       `json:"type"`
	Status        TicketStatus     `json:"status"`
	ScheduledFor  *time.Time       `json:"scheduledDate,omitempty"`
	Vendor        string           `json:"vendor,omitempty"`
	EstimatedCost *decimal.Decimal `json:"estimatedCost,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	OpenedBy      string           `json:"openedBy"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// OpenTicketRequest is the body of POST /maintenance.
type OpenTicketRequest struct {
	AssetID       string           `json:"assetId"`
	Type          string           `json:"type,omitempty"`
	ScheduledDate string           `json:"scheduledDate,omitempty"`
	Vendor        string           `json:"vendor,omitempty"`
	EstimatedCost *decimal.Decimal `json:"estimatedCost,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}
