// Package domain defines caller identity for the vault: the authenticated principal and
// per-request metadata recorded in access logs.
package domain

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

// Principal is an authenticated caller. OrgIDs are the organizations the user belongs to
// and are matched against organization shares.
type Principal struct {
	UserID uuid.UUID
	OrgIDs []uuid.UUID
}

// NewPrincipal creates a principal for userID and its organizations.
func NewPrincipal(userID uuid.UUID, orgIDs ...uuid.UUID) Principal {
	return Principal{UserID: userID, OrgIDs: orgIDs}
}

// InOrg reports whether the principal belongs to orgID.
func (p Principal) InOrg(orgID uuid.UUID) bool {
	return slices.Contains(p.OrgIDs, orgID)
}

// RequestInfo carries client metadata for access logs.
type RequestInfo struct {
	RequestID string
	IPAddress string
	UserAgent string
}

type requestInfoKey struct{}

// WithRequestInfo stores request metadata in the context.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// GetRequestInfo returns the request metadata, or the zero value when none was set
// (for example, CLI-initiated operations).
func GetRequestInfo(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info
}
