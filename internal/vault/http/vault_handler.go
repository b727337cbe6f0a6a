// Package http provides HTTP handlers for the vault access surface and platform event intake.
// Every handler authenticates through the principal stored by the authentication middleware;
// permission checks and audit logging happen in the use case.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	authHTTP "github.com/allisson/credvault/internal/auth/http"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	apperrors "github.com/allisson/credvault/internal/errors"
	"github.com/allisson/credvault/internal/httputil"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
	"github.com/allisson/credvault/internal/vault/http/dto"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
)

// VaultHandler handles HTTP requests for secret lifecycle, sharing and audit operations.
type VaultHandler struct {
	vaultUseCase vaultUseCase.VaultUseCase
	logger       *slog.Logger
	now          func() time.Time
}

// NewVaultHandler creates a new vault handler with required dependencies.
func NewVaultHandler(vaultUseCase vaultUseCase.VaultUseCase, logger *slog.Logger) *VaultHandler {
	return &VaultHandler{
		vaultUseCase: vaultUseCase,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateHandler stores a new secret owned by the caller.
// POST /v1/secrets
// Returns 201 Created with secret metadata (never the value).
func (h *VaultHandler) CreateHandler(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req dto.CreateSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.vaultUseCase.Reject(c.Request.Context(), caller, uuid.Must(uuid.NewV7()), vaultDomain.ActionCreate)
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(req.Value)

	item, err := h.vaultUseCase.Create(c.Request.Context(), caller, req.ToInput())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.MapItemToResponse(item, h.now()))
}

// GetHandler reads a secret.
// GET /v1/secrets/:id?decrypt=true
// Returns 200 OK. The value is the plaintext when decrypt=true, otherwise "********".
// SECURITY: Plaintext is zeroed after the response is written.
func (h *VaultHandler) GetHandler(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	vaultID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	decrypt, err := strconv.ParseBool(c.DefaultQuery("decrypt", "false"))
	if err != nil {
		h.vaultUseCase.Reject(c.Request.Context(), caller, vaultID, vaultDomain.ActionRead)
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid decrypt parameter: must be true or false"),
			h.logger,
		)
		return
	}

	revealed, err := h.vaultUseCase.Get(c.Request.Context(), caller, vaultID, decrypt)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if revealed.Decrypted {
		defer cryptoDomain.Zero(revealed.Value)
	}

	c.JSON(http.StatusOK, dto.MapRevealedSecretToResponse(revealed, h.now()))
}

// UpdateHandler changes a secret's metadata and optionally its value.
// PATCH /v1/secrets/:id
func (h *VaultHandler) UpdateHandler(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	vaultID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.vaultUseCase.Reject(c.Request.Context(), caller, vaultID, vaultDomain.ActionUpdate)
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(req.Value)

	item, err := h.vaultUseCase.Update(c.Request.Context(), caller, vaultID, req.ToInput())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapItemToResponse(item, h.now()))
}

// RotateHandler replaces a secret's value.
// POST /v1/secrets/:id/rotate
func (h *VaultHandler) RotateHandler(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	vaultID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req dto.RotateSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.vaultUseCase.Reject(c.Request.Context(), caller, vaultID, vaultDomain.ActionRotate)
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(req.Value)

	item, err := h.vaultUseCase.Rotate(c.Request.Context(), caller, vaultID, req.Value)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapItemToResponse(item, h.now()))
}

// DeleteHandler soft deletes a secret.
// DELETE /v1/secrets/:id
// Returns 204 No Content, also when the secret was already deleted.
func (h *VaultHandler) DeleteHandler(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	vaultID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.vaultUseCase.Delete(c.Request.Context(), caller, vaultID); err != nil {
		h.handleError(c, err)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// ListHandler lists the caller's active secrets.
// GET /v1/secrets?secret_type=password&tags=prod,db&offset=0&limit=50
func (h *VaultHandler) ListHandler(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	filter := vaultDomain.ListFilter{
		Tags:   parseTags(c.Query("tags")),
		Offset: offset,
		Limit:  limit,
	}
	if raw := c.Query("secret_type"); raw != "" {
		secretType := vaultDomain.SecretType(raw)
		if err := secretType.Validate(); err != nil {
			httputil.HandleValidationErrorGin(c, err, h.logger)
			return
		}
		filter.SecretType = &secretType
	}

	items, err := h.vaultUseCase.List(c.Request.Context(), caller, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapItemsToListResponse(items, h.now()))
}

// StatsHandler aggregates the caller's secrets.
// GET /v1/secrets/stats
func (h *VaultHandler) StatsHandler(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	stats, err := h.vaultUseCase.Stats(c.Request.Context(), caller)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// TestHandler checks that a secret can still be decrypted without returning its value.
// POST /v1/secrets/:id/test
func (h *VaultHandler) TestHandler(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	vaultID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.vaultUseCase.TestCredential(c.Request.Context(), caller, vaultID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ShareHandler grants a user or organization access to a secret.
// POST /v1/secrets/:id/shares
func (h *VaultHandler) ShareHandler(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	vaultID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req dto.ShareSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.vaultUseCase.Reject(c.Request.Context(), caller, vaultID, vaultDomain.ActionShare)
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	share, err := h.vaultUseCase.Share(c.Request.Context(), caller, vaultID, req.ToInput())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.MapShareToResponse(share, h.now()))
}

// ListSharesHandler lists every share of a secret. Owner only.
// GET /v1/secrets/:id/shares
func (h *VaultHandler) ListSharesHandler(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	vaultID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	shares, err := h.vaultUseCase.ListShares(c.Request.Context(), caller, vaultID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapSharesToListResponse(shares, h.now()))
}

// RevokeShareHandler deactivates a share. Owner only.
// DELETE /v1/secrets/:id/shares/:share_id
func (h *VaultHandler) RevokeShareHandler(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	vaultID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	shareID, ok := h.pathID(c, "share_id")
	if !ok {
		return
	}

	if err := h.vaultUseCase.RevokeShare(c.Request.Context(), caller, vaultID, shareID); err != nil {
		h.handleError(c, err)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// ListSharedWithMeHandler lists effective shares granted to the caller or its organizations.
// GET /v1/shares?offset=0&limit=50
func (h *VaultHandler) ListSharedWithMeHandler(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	shares, err := h.vaultUseCase.ListSharedWithMe(c.Request.Context(), caller, offset, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapSharesToListResponse(shares, h.now()))
}

// AccessLogsHandler lists access log rows about the caller's secrets.
// GET /v1/access-logs?vault_id=<uuid>&offset=0&limit=50
func (h *VaultHandler) AccessLogsHandler(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	filter := vaultDomain.AccessLogFilter{Offset: offset, Limit: limit}
	if raw := c.Query("vault_id"); raw != "" {
		vaultID, err := uuid.Parse(raw)
		if err != nil {
			httputil.HandleValidationErrorGin(
				c,
				fmt.Errorf("invalid vault_id parameter: must be a uuid"),
				h.logger,
			)
			return
		}
		filter.VaultID = &vaultID
	}

	logs, err := h.vaultUseCase.AccessLogs(c.Request.Context(), caller, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapAccessLogsToListResponse(logs))
}

// caller returns the authenticated principal or writes 401.
func (h *VaultHandler) caller(c *gin.Context) (authDomain.Principal, bool) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return authDomain.Principal{}, false
	}
	return *principal, true
}

func (h *VaultHandler) pathID(c *gin.Context, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(key))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid %s: must be a uuid", key), h.logger)
		return uuid.Nil, false
	}
	return id, true
}

func (h *VaultHandler) handleError(c *gin.Context, err error) {
	httputil.HandleErrorWithCodeGin(c, err, vaultDomain.Kind(err).String(), h.logger)
}

// parseTags splits a comma separated tag list, dropping blanks.
func parseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
