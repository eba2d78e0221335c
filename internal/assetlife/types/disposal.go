package types

import (
	"fmt"
	"strings"
	"time"
)

type DisposalStatus string

const (
	DisposalRequested DisposalStatus = "REQUESTED"
	DisposalApproved  DisposalStatus = "APPROVED"
	DisposalRejected  DisposalStatus = "REJECTED"
)

// ParseDisposalStatus maps the legacy PENDING input onto REQUESTED.
func ParseDisposalStatus(s string) (DisposalStatus, error) {
	norm := DisposalStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch norm {
	case DisposalRequested, DisposalApproved, DisposalRejected:
		return norm, nil
	case "PENDING", "PENDING_APPROVAL":
		return DisposalRequested, nil
	}
	return "", fmt.Errorf("unknown disposal status %q", s)
}

// DisposalRequest asks for permission to retire an asset. An APPROVED
// request is what lets the asset enter DISPOSAL.
type DisposalRequest struct {
	ID          string         `json:"id"`
	AssetID     string         `json:"assetId"`
	Reason      string         `json:"reason"`
	Description string         `json:"description,omitempty"`
	Method      string         `json:"method,omitempty"`
	Status      DisposalStatus `json:"status"`
	RequestedBy string         `json:"requestedBy"`
	DecidedBy   *string        `json:"decidedBy,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// DisposalRequestBody is the body of POST /disposals.
type DisposalRequestBody struct {
	AssetID     string `json:"assetId"`
	Reason      string `json:"reason"`
	Description string `json:"description,omitempty"`
	Method      string `json:"method,omitempty"`
	Status      string `json:"status,omitempty"`
}
