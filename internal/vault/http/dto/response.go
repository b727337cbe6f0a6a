package dto

import (
	"time"

	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// SecretResponse represents a secret in API responses.
// SECURITY: Value holds plaintext only when Decrypted is true. Must be transmitted over
// HTTPS in production.
type SecretResponse struct {
	ID                  string     `json:"id"`
	OwnerID             string     `json:"owner_id"`
	Name                string     `json:"name"`
	SecretType          string     `json:"secret_type"`
	Tags                []string   `json:"tags"`
	Provider            string     `json:"provider,omitempty"`
	Algorithm           string     `json:"algorithm"`
	Version             uint       `json:"version"`
	IsActive            bool       `json:"is_active"`
	AccessCount         int64      `json:"access_count"`
	LastAccessedAt      *time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	RotationDays        *int       `json:"rotation_days,omitempty"`
	RotationDue         bool       `json:"rotation_due"`
	BlockchainReference *string    `json:"blockchain_reference,omitempty"`
	Value               []byte     `json:"value,omitempty"`
	Decrypted           bool       `json:"decrypted,omitempty"`
	Permission          string     `json:"permission,omitempty"`
}

// MapItemToResponse converts a vault item to an API response without any value.
func MapItemToResponse(item *vaultDomain.VaultItem, now time.Time) SecretResponse {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	return SecretResponse{
		ID:                  item.ID.String(),
		OwnerID:             item.OwnerID.String(),
		Name:                item.Name,
		SecretType:          item.SecretType.String(),
		Tags:                tags,
		Provider:            item.Provider,
		Algorithm:           string(item.Algorithm),
		Version:             item.Version,
		IsActive:            item.IsActive,
		AccessCount:         item.AccessCount,
		LastAccessedAt:      item.LastAccessedAt,
		CreatedAt:           item.CreatedAt,
		UpdatedAt:           item.UpdatedAt,
		ExpiresAt:           item.ExpiresAt,
		RotationDays:        item.RotationDays,
		RotationDue:         item.RotationDue(now),
		BlockchainReference: item.BlockchainReference,
	}
}

// MapRevealedSecretToResponse converts a read result to an API response. The value is the
// plaintext when decrypted, otherwise the redaction placeholder. SECURITY: Caller must zero
// revealed.Value after the response is written.
func MapRevealedSecretToResponse(revealed *vaultDomain.RevealedSecret, now time.Time) SecretResponse {
	response := MapItemToResponse(revealed.Item, now)
	response.Value = revealed.Value
	response.Decrypted = revealed.Decrypted
	response.Permission = revealed.Grant.Role()
	return response
}

// ListSecretsResponse represents a paginated list of secrets in API responses.
type ListSecretsResponse struct {
	Data []SecretResponse `json:"data"`
}

// MapItemsToListResponse converts vault items to a list response.
func MapItemsToListResponse(items []*vaultDomain.VaultItem, now time.Time) ListSecretsResponse {
	data := make([]SecretResponse, 0, len(items))
	for _, item := range items {
		data = append(data, MapItemToResponse(item, now))
	}
	return ListSecretsResponse{Data: data}
}

// ShareResponse represents a share in API responses.
type ShareResponse struct {
	ID               string     `json:"id"`
	VaultID          string     `json:"vault_id"`
	OwnerID          string     `json:"owner_id"`
	SharedWithUserID *string    `json:"shared_with_user_id,omitempty"`
	SharedWithOrgID  *string    `json:"shared_with_org_id,omitempty"`
	PermissionLevel  string     `json:"permission_level"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	IsActive         bool       `json:"is_active"`
	IsEffective      bool       `json:"is_effective"`
	CreatedAt        time.Time  `json:"created_at"`
}

// MapShareToResponse converts a vault share to an API response.
func MapShareToResponse(share *vaultDomain.VaultShare, now time.Time) ShareResponse {
	response := ShareResponse{
		ID:              share.ID.String(),
		VaultID:         share.VaultID.String(),
		OwnerID:         share.OwnerID.String(),
		PermissionLevel: share.PermissionLevel.String(),
		ExpiresAt:       share.ExpiresAt,
		IsActive:        share.IsActive,
		IsEffective:     share.IsEffective(now),
		CreatedAt:       share.CreatedAt,
	}
	if share.SharedWithUserID != nil {
		id := share.SharedWithUserID.String()
		response.SharedWithUserID = &id
	}
	if share.SharedWithOrgID != nil {
		id := share.SharedWithOrgID.String()
		response.SharedWithOrgID = &id
	}
	return response
}

// ListSharesResponse represents a list of shares in API responses.
type ListSharesResponse struct {
	Data []ShareResponse `json:"data"`
}

// MapSharesToListResponse converts vault shares to a list response.
func MapSharesToListResponse(shares []*vaultDomain.VaultShare, now time.Time) ListSharesResponse {
	data := make([]ShareResponse, 0, len(shares))
	for _, share := range shares {
		data = append(data, MapShareToResponse(share, now))
	}
	return ListSharesResponse{Data: data}
}

// AccessLogResponse represents an access log row in API responses. The signature itself
// is not exposed.
type AccessLogResponse struct {
	ID        string    `json:"id"`
	VaultID   string    `json:"vault_id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Success   bool      `json:"success"`
	ErrorKind string    `json:"error_kind,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Signed    bool      `json:"signed"`
	CreatedAt time.Time `json:"created_at"`
}

// ListAccessLogsResponse represents a paginated list of access logs in API responses.
type ListAccessLogsResponse struct {
	Data []AccessLogResponse `json:"data"`
}

// MapAccessLogsToListResponse converts access log rows to a list response.
func MapAccessLogsToListResponse(logs []*vaultDomain.AccessLog) ListAccessLogsResponse {
	data := make([]AccessLogResponse, 0, len(logs))
	for _, log := range logs {
		data = append(data, AccessLogResponse{
			ID:        log.ID.String(),
			VaultID:   log.VaultID.String(),
			UserID:    log.UserID.String(),
			Action:    log.Action.String(),
			Success:   log.Success,
			ErrorKind: log.ErrorKind.String(),
			IPAddress: log.IPAddress,
			UserAgent: log.UserAgent,
			Signed:    log.IsSigned(),
			CreatedAt: log.CreatedAt,
		})
	}
	return ListAccessLogsResponse{Data: data}
}

// EventResponse acknowledges an inbound event.
type EventResponse struct {
	EventType string                   `json:"event_type"`
	Status    string                   `json:"status"`
	Result    *vaultDomain.PurgeResult `json:"result,omitempty"`
}
