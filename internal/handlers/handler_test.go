package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/AnshRaj112/econex-backend/internal/services"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, statusFor(&services.ValidationError{Field: "weight", Reason: "must be greater than zero"}))
	require.Equal(t, http.StatusConflict, statusFor(&services.StateError{Expected: models.StatusPending, Actual: models.StatusAccepted}))
	require.Equal(t, http.StatusForbidden, statusFor(fmt.Errorf("%w: not yours", services.ErrForbidden)))
	require.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("%w: chat", services.ErrNotFound)))
	require.Equal(t, http.StatusGatewayTimeout, statusFor(fmt.Errorf("find: %w", context.DeadlineExceeded)))
	require.Equal(t, http.StatusInternalServerError, statusFor(errors.New("connection reset")))
}

func TestWriteErrorHidesInternals(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/buyer/listings", nil)

	rec := httptest.NewRecorder()
	writeError(rec, req, errors.New("mongo: server selection timeout"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "mongo")

	rec = httptest.NewRecorder()
	writeError(rec, req, &services.StateError{Expected: models.StatusCollected, Actual: models.StatusAccepted})
	require.Equal(t, http.StatusConflict, rec.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, "request is accepted, expected collected", body.Message)
}

func TestObjectIDField(t *testing.T) {
	id := primitive.NewObjectID()

	got, err := objectIDField(json.RawMessage(`"`+id.Hex()+`"`), "request_id")
	require.NoError(t, err)
	require.Equal(t, id, got)

	got, err = objectIDField(json.RawMessage(`{"request_id":"`+id.Hex()+`"}`), "request_id")
	require.NoError(t, err)
	require.Equal(t, id, got)

	for _, raw := range []string{`{}`, `{"request_id":7}`, `"nope"`, `[1]`} {
		_, err = objectIDField(json.RawMessage(raw), "request_id")
		require.ErrorIs(t, err, services.ErrValidation, raw)
	}
}

func TestCheckSelf(t *testing.T) {
	g := &Gateway{}
	me := models.Identity{ID: primitive.NewObjectID(), Role: models.RoleUser}

	require.NoError(t, g.checkSelf(nil, "entity_id", me))
	require.NoError(t, g.checkSelf(json.RawMessage(`{}`), "entity_id", me))
	require.NoError(t, g.checkSelf(json.RawMessage(`"`+me.ID.Hex()+`"`), "entity_id", me))
	require.ErrorIs(t, g.checkSelf(json.RawMessage(`{"entity_id":"`+primitive.NewObjectID().Hex()+`"}`), "entity_id", me), services.ErrForbidden)
}

func TestCheckOrigin(t *testing.T) {
	g := NewGateway(nil, nil, nil, nil, GatewayConfig{AllowedOrigins: []string{"https://econex.app"}})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	require.True(t, g.checkOrigin(req))

	req.Header.Set("Origin", "https://econex.app")
	require.True(t, g.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	require.False(t, g.checkOrigin(req))
}
