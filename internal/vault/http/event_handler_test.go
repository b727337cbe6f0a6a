package http

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/credvault/internal/httputil"
	"github.com/allisson/credvault/internal/vault/http/dto"
	"github.com/allisson/credvault/internal/vault/vaulttest"
)

func TestEventHandler_ReceiveHandler(t *testing.T) {
	t.Run("Success_UserDeleted", func(t *testing.T) {
		env := newTestEnv(t)
		owner := newPrincipal()
		bystander := newPrincipal()
		env.createSecret(t, owner, "one")
		env.createSecret(t, owner, "two")
		kept := env.createSecret(t, bystander, "kept")

		w := env.do(t, nil, http.MethodPost, "/v1/events", map[string]any{
			"event_type": "user.deleted",
			"data":       map[string]any{"user_id": owner.UserID},
		})

		requireStatus(t, w, http.StatusOK)
		response := decode[dto.EventResponse](t, w)
		assert.Equal(t, EventStatusProcessed, response.Status)
		require.NotNil(t, response.Result)
		assert.Equal(t, owner.UserID, response.Result.UserID)
		assert.Equal(t, int64(2), response.Result.Items)
		assert.Equal(t, int64(2), response.Result.AccessLogs)

		assert.Equal(t, 1, env.store.Items().Count())
		_, err := env.store.Items().Get(t.Context(), uuid.MustParse(kept.ID))
		assert.NoError(t, err)
	})

	t.Run("Success_UnknownUserPurgesNothing", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, nil, http.MethodPost, "/v1/events", map[string]any{
			"event_type": "user.deleted",
			"data":       map[string]any{"user_id": uuid.Must(uuid.NewV7())},
		})

		requireStatus(t, w, http.StatusOK)
		assert.Equal(t, int64(0), decode[dto.EventResponse](t, w).Result.Total())
	})

	t.Run("Success_IgnoresUnknownEvent", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, nil, http.MethodPost, "/v1/events", map[string]any{
			"event_type": "user.created",
			"data":       map[string]any{"user_id": uuid.Must(uuid.NewV7())},
		})

		requireStatus(t, w, http.StatusAccepted)
		response := decode[dto.EventResponse](t, w)
		assert.Equal(t, "user.created", response.EventType)
		assert.Equal(t, EventStatusIgnored, response.Status)
		assert.Nil(t, response.Result)
	})

	t.Run("Error_InvalidJSON", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, nil, http.MethodPost, "/v1/events", "{")

		requireStatus(t, w, http.StatusBadRequest)
	})

	t.Run("Error_MissingEventType", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, nil, http.MethodPost, "/v1/events", map[string]any{
			"data": map[string]any{"user_id": uuid.Must(uuid.NewV7())},
		})

		requireStatus(t, w, http.StatusUnprocessableEntity)
		assert.Equal(t, "validation_error", decode[httputil.ErrorResponse](t, w).Error)
	})

	t.Run("Error_NilUserID", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, nil, http.MethodPost, "/v1/events", map[string]any{
			"event_type": "user.deleted",
			"data":       map[string]any{"user_id": uuid.Nil},
		})

		requireStatus(t, w, http.StatusUnprocessableEntity)
	})

	t.Run("Error_MalformedData", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, nil, http.MethodPost, "/v1/events", map[string]any{
			"event_type": "user.deleted",
			"data":       map[string]any{"user_id": "not-a-uuid"},
		})

		requireStatus(t, w, http.StatusBadRequest)
	})

	t.Run("Error_PurgeFails", func(t *testing.T) {
		env := newTestEnv(t)
		owner := newPrincipal()
		env.createSecret(t, owner, "one")
		env.store.Fail(vaulttest.OpShareDeleteByUser, assert.AnError)

		w := env.do(t, nil, http.MethodPost, "/v1/events", map[string]any{
			"event_type": "user.deleted",
			"data":       map[string]any{"user_id": owner.UserID},
		})

		requireStatus(t, w, http.StatusInternalServerError)
		assert.Equal(t, 1, env.store.Items().Count())
		assert.Len(t, env.store.Logs(), 1)
	})
}
