package types

import (
	"fmt"
	"strings"
	"time"
)

type AllocationType string

const (
	AllocationPermanent AllocationType = "PERMANENT"
	AllocationTemporary AllocationType = "TEMPORARY"
)

func ParseAllocationType(s string) (AllocationType, error) {
	switch t := AllocationType(strings.ToUpper(strings.TrimSpace(s))); t {
	case "":
		return AllocationPermanent, nil
	case AllocationPermanent, AllocationTemporary:
		return t, nil
	}
	return "", fmt.Errorf("unknown allocation type %q", s)
}

type AllocationStatus string

const (
	// AllocationActive means the asset is checked out to the assignee.
	AllocationActive   AllocationStatus = "ACTIVE"
	AllocationReturned AllocationStatus = "RETURNED"
)

// ParseAllocationStatus accepts the dashboard's spellings: checked_out and
// temporary both mean the asset is out; checked_in means it came back.
func ParseAllocationStatus(s string) (AllocationStatus, error) {
	norm := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToUpper(strings.TrimSpace(s)))
	switch norm {
	case "ACTIVE", "CHECKED_OUT", "TEMPORARY":
		return AllocationActive, nil
	case "RETURNED", "CHECKED_IN":
		return AllocationReturned, nil
	}
	return "", fmt.Errorf("unknown allocation status %q", s)
}

// Allocation hands an asset to a person at a location. While it is ACTIVE
// the asset's owner and location mirror the allocation.
type Allocation struct {
	ID             string           `json:"id"`
	AssetID        string           `json:"assetId"`
	AssignedTo     string           `json:"assignedToId"`
	Type           AllocationType   `json:"allocationType"`
	Department     string           `json:"department,omitempty"`
	Location       string           `json:"location"`
	Purpose        string           `json:"purpose,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	Status         AllocationStatus `json:"status"`
	StartDate      *time.Time       `json:"startDate,omitempty"`
	ExpectedReturn *time.Time       `json:"expectedReturnDate,omitempty"`
	AllocatedBy    string           `json:"allocatedBy"`
	ReturnedAt     *time.Time       `json:"returnedAt,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// AllocationRequest is the body of POST /allocations.
type AllocationRequest struct {
	AssetID            string `json:"assetId"`
	AssignedToID       string `json:"assignedToId"`
	AllocationType     string `json:"allocationType,omitempty"`
	Department         string `json:"department,omitempty"`
	Location           string `json:"location"`
	Purpose            string `json:"purpose,omitempty"`
	Notes              string `json:"notes,omitempty"`
	Status             string `json:"status,omitempty"`
	StartDate          string `json:"startDate,omitempty"`
	ExpectedReturnDate string `json:"expectedReturnDate,omitempty"`
}

// AllocationFilter narrows ListAllocations. Zero values match everything.
type AllocationFilter struct {
	AssetID    string
	AssignedTo string
	Status     AllocationStatus
}
