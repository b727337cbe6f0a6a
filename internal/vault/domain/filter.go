package domain

import (
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows list_secrets. Ownership is never part of the filter: the owner is
// always the caller and is applied by the repository query.
type ListFilter struct {
	SecretType *SecretType
	// Tags matches items carrying every listed tag.
	Tags   []string
	Offset int
	Limit  int
}

// AccessLogFilter narrows get_access_logs to a single secret when VaultID is set.
type AccessLogFilter struct {
	VaultID *uuid.UUID
	Offset  int
	Limit   int
}

// Stats aggregates the caller's secrets.
type Stats struct {
	Total       int64                `json:"total"`
	Active      int64                `json:"active"`
	Inactive    int64                `json:"inactive"`
	Expired     int64                `json:"expired"`
	RotationDue int64                `json:"rotation_due"`
	ByType      map[SecretType]int64 `json:"by_type"`
	ByProvider  map[string]int64     `json:"by_provider"`
}

// NewStats returns a Stats with every secret type present at zero.
func NewStats() *Stats {
	s := &Stats{
		ByType:     make(map[SecretType]int64, len(SecretTypes)),
		ByProvider: make(map[string]int64),
	}
	for _, t := range SecretTypes {
		s.ByType[t] = 0
	}
	return s
}

// Add counts item into the aggregate. Type, provider, expiry and rotation counts cover
// active items only.
func (s *Stats) Add(item *VaultItem, now time.Time) {
	s.Total++
	if !item.IsActive {
		s.Inactive++
		return
	}

	s.Active++
	s.ByType[item.SecretType]++
	if item.Provider != "" {
		s.ByProvider[item.Provider]++
	}
	if item.IsExpired(now) {
		s.Expired++
	}
	if item.RotationDue(now) {
		s.RotationDue++
	}
}

// PurgeResult counts the rows physically removed for a deleted user.
type PurgeResult struct {
	UserID     uuid.UUID `json:"user_id"`
	Items      int64     `json:"items"`
	Shares     int64     `json:"shares"`
	AccessLogs int64     `json:"access_logs"`
}

// Total returns the number of rows removed.
func (r *PurgeResult) Total() int64 {
	return r.Items + r.Shares + r.AccessLogs
}
