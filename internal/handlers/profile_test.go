package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"excel-analyzer-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeReturnsProfileWithoutHash(t *testing.T) {
	h, mem := newTestHandler()
	user, token := createUser(t, mem, "Alice", "alice@example.com", models.RoleUser)

	req := authedRequest(http.MethodGet, "/api/auth/me", token, nil)
	rec := httptest.NewRecorder()
	h.RequireAuth(h.MeHandler)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	var profile models.User
	decodeBody(t, rec, &profile)
	assert.Equal(t, user.ID, profile.ID)
	assert.Equal(t, "Alice", profile.Name)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.NotContains(t, body, user.PasswordHash)
}

func TestUpdateProfileNameAndEmail(t *testing.T) {
	h, mem := newTestHandler()
	user, token := createUser(t, mem, "Alice", "alice@example.com", models.RoleUser)

	req := jsonRequest(http.MethodPut, "/api/auth/me", token, map[string]string{
		"name":  "Alice Smith",
		"email": "alice.smith@example.com",
	})
	rec := httptest.NewRecorder()
	h.RequireAuth(h.UpdateMeHandler)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := mem.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", updated.Name)
	assert.Equal(t, "alice.smith@example.com", updated.Email)

	assert.Equal(t, 1, mem.activityCount(models.ActionProfileUpdate))
	assert.Equal(t, 0, mem.activityCount(models.ActionPasswordChange))
}

func TestUpdateProfilePasswordOnlyIsPasswordChange(t *testing.T) {
	h, mem := newTestHandler()
	user, token := createUser(t, mem, "Alice", "alice@example.com", models.RoleUser)

	req := jsonRequest(http.MethodPut, "/api/auth/me", token, map[string]string{
		"password": "new-password-456",
	})
	rec := httptest.NewRecorder()
	h.RequireAuth(h.UpdateMeHandler)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := mem.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, updated.CheckPassword("new-password-456"))
	assert.False(t, updated.CheckPassword("password123"))

	assert.Equal(t, 1, mem.activityCount(models.ActionPasswordChange))
	assert.Equal(t, 0, mem.activityCount(models.ActionProfileUpdate))
}

func TestUpdateProfileNoChangesWritesNoAudit(t *testing.T) {
	h, mem := newTestHandler()
	_, token := createUser(t, mem, "Alice", "alice@example.com", models.RoleUser)

	req := jsonRequest(http.MethodPut, "/api/auth/me", token, map[string]string{
		"name":  "Alice",
		"email": "alice@example.com",
	})
	rec := httptest.NewRecorder()
	h.RequireAuth(h.UpdateMeHandler)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, mem.activityCount(models.ActionProfileUpdate))
	assert.Equal(t, 0, mem.activityCount(models.ActionPasswordChange))
}
