package model

import (
	"strings"
	"time"
)

// DefaultLeaseDuration applies when a caller passes a non-positive duration.
const DefaultLeaseDuration = 5 * time.Minute

// Lease is a time-bounded exclusive grant for a tenant scope.
type Lease struct {
	Key        string    `json:"key"`
	HolderID   string    `json:"holderId"`
	AcquiredAt time.Time `json:"acquiredAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Expired reports whether the lease is no longer live at now.
func (l Lease) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// TenantScope builds the lease key for a company and optional location.
func TenantScope(companyID, locationID string) string {
	companyID = strings.TrimSpace(companyID)
	locationID = strings.TrimSpace(locationID)
	switch {
	case companyID != "" && locationID != "" && companyID != locationID:
		return "company:" + companyID + ":location:" + locationID
	case companyID != "":
		return "company:" + companyID
	case locationID != "":
		return "location:" + locationID
	default:
		return ""
	}
}
