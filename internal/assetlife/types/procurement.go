package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ProcurementStatus string

const (
	ProcurementPending  ProcurementStatus = "PENDING"
	ProcurementApproved ProcurementStatus = "APPROVED"
	ProcurementRejected ProcurementStatus = "REJECTED"
)

func ParseProcurementStatus(s string) (ProcurementStatus, error) {
	norm := ProcurementStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch norm {
	case ProcurementPending, ProcurementApproved, ProcurementRejected:
		return norm, nil
	case "REQUESTED", "PENDING_APPROVAL":
		return ProcurementPending, nil
	}
	return "", fmt.Errorf("unknown procurement status %q", s)
}

// ProcurementRequest is a purchase request. When AssetID is set, an
// APPROVED request satisfies the approved_procurement guard for that asset.
type ProcurementRequest struct {
	ID            string            `json:"id"`
	AssetID       *string           `json:"assetId,omitempty"`
	ItemName      string            `json:"itemName"`
	Category      string            `json:"category,omitempty"`
	Quantity      int               `json:"quantity"`
	EstimatedCost decimal.Decimal   `json:"estimatedCost"`
	Vendor        string            `json:"vendor,omitempty"`
	Priority      string            `json:"priority,omitempty"`
	Justification string            `json:"justification,omitempty"`
	Department    string            `json:"department,omitempty"`
	RequestedBy   string            `json:"requestedBy"`
	Status        ProcurementStatus `json:"status"`
	DecidedBy     *string           `json:"decidedBy,omitempty"`
	RejectReason  string            `json:"rejectReason,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// ProcurementRequestBody is the body of POST /procurement/requests.
// RequestedBy is accepted for compatibility and ignored; the requester is
// the request's actor.
type ProcurementRequestBody struct {
	AssetID       string           `json:"assetId,omitempty"`
	ItemName      string           `json:"itemName"`
	Category      string           `json:"category,omitempty"`
	Quantity      int              `json:"quantity,omitempty"`
	EstimatedCost *decimal.Decimal `json:"estimatedCost,omitempty"`
	Vendor        string           `json:"vendor,omitempty"`
	Priority      string           `json:"priority,omitempty"`
	Justification string           `json:"justification,omitempty"`
	Department    string           `json:"department,omitempty"`
	RequestedBy   string           `json:"requestedBy,omitempty"`
	Status        string           `json:"status,omitempty"`
}

// ProcurementFilter narrows ListProcurements. Zero values match everything.
type ProcurementFilter struct {
	AssetID string
	Status  ProcurementStatus
}
