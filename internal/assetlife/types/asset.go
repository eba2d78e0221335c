package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is the current record of a tracked asset. Status is owned by the
// lifecycle engine; every other field is a plain attribute.
type Asset struct {
	ID           string          `json:"id"`
	Status       Stage           `json:"status"`
	Version      int64           `json:"version"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Department   string          `json:"department,omitempty"`
	SerialNumber string          `json:"serialNumber,omitempty"`
	Location     string          `json:"location,omitempty"`
	OwnerID      *string         `json:"ownerId"`
	Vendor       string          `json:"vendor,omitempty"`
	Description  string          `json:"description,omitempty"`
	PurchaseCost decimal.Decimal `json:"purchaseCost"`
	PurchaseDate *time.Time      `json:"purchaseDate,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// CreateAssetRequest is the body of POST /assets. Status is the initial
// stage; it defaults to PROCUREMENT.
type CreateAssetRequest struct {
	Name         string           `json:"name"`
	Category     string           `json:"category"`
	Department   string           `json:"department,omitempty"`
	SerialNumber string           `json:"serialNumber,omitempty"`
	Location     string           `json:"location,omitempty"`
	OwnerID      *string          `json:"ownerId,omitempty"`
	Vendor       string           `json:"vendor,omitempty"`
	Description  string           `json:"description,omitempty"`
	PurchaseCost *decimal.Decimal `json:"purchaseCost,omitempty"`
	PurchaseDate string           `json:"purchaseDate,omitempty"`
	Status       string           `json:"status,omitempty"`
}

// AttributePatch is a partial attribute update. Nil fields are left alone.
// It has no status field; status only changes through the lifecycle engine.
type AttributePatch struct {
	Name              *string
	Category          *string
	Department        *string
	SerialNumber      *string
	Location          *string
	OwnerID           *string
	ClearOwner        bool
	Vendor            *string
	Description       *string
	PurchaseCost      *decimal.Decimal
	PurchaseDate      *time.Time
	ClearPurchaseDate bool
}

// Empty reports whether the patch changes nothing.
func (p AttributePatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Department == nil &&
		p.SerialNumber == nil && p.Location == nil && p.OwnerID == nil &&
		!p.ClearOwner && p.Vendor == nil && p.Description == nil &&
		p.PurchaseCost == nil && p.PurchaseDate == nil && !p.ClearPurchaseDate
}

// Apply copies the set fields of p onto a.
func (p AttributePatch) Apply(a *Asset) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.Department != nil {
		a.Department = *p.Department
	}
	if p.SerialNumber != nil {
		a.SerialNumber = *p.SerialNumber
	}
	if p.Location != nil {
		a.Location = *p.Location
	}
	if p.ClearOwner {
		a.OwnerID = nil
	} else if p.OwnerID != nil {
		v := *p.OwnerID
		a.OwnerID = &v
	}
	if p.Vendor != nil {
		a.Vendor = *p.Vendor
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.PurchaseCost != nil {
		a.PurchaseCost = *p.PurchaseCost
	}
	if p.ClearPurchaseDate {
		a.PurchaseDate = nil
	} else if p.PurchaseDate != nil {
		t := p.PurchaseDate.UTC()
		a.PurchaseDate = &t
	}
}

// AssetFilter narrows List results. Zero values match everything.
type AssetFilter struct {
	Status   Stage
	OwnerID  string
	Category string
	Limit    int
}
