package server

import (
	"fmt"
	"net/http"
	"testing"

	"gatehouse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) submitRequest(t *testing.T, token string, resourceID uint) string {
	t.Helper()
	var out struct {
		Request models.AccessRequest `json:"request"`
	}
	e.do(t, e.jsonReq(t, http.MethodPost, "/api/access-requests/", token, map[string]any{
		"resource_id": resourceID,
		"message":     "Requesting access for my research.",
	}), http.StatusCreated, &out)
	require.NotEmpty(t, out.Request.ID)
	return out.Request.ID
}

func TestSubmitAndListRequests(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)
	token := e.tokenFor(t, fx.requester)

	id := e.submitRequest(t, token, fx.restricted.ID)

	// The org admin was notified.
	assert.Contains(t, e.mailer.sent, fx.orgAdmin.Email)

	var mine struct {
		Count    int                    `json:"count"`
		Requests []models.AccessRequest `json:"requests"`
	}
	e.do(t, e.jsonReq(t, http.MethodGet, "/api/access-requests/me", token, nil),
		http.StatusOK, &mine)
	require.Equal(t, 1, mine.Count)
	assert.Equal(t, id, mine.Requests[0].ID)
	assert.Equal(t, models.RequestStatusPending, mine.Requests[0].Status)
}

func TestSubmitDuplicateReturnsConflict(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)
	token := e.tokenFor(t, fx.requester)

	e.submitRequest(t, token, fx.restricted.ID)

	e.do(t, e.jsonReq(t, http.MethodPost, "/api/access-requests/", token, map[string]any{
		"resource_id": fx.restricted.ID,
		"message":     "asking twice",
	}), http.StatusConflict, nil)
}

func TestSubmitBlankMessageBadRequest(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)

	e.do(t, e.jsonReq(t, http.MethodPost, "/api/access-requests/", e.tokenFor(t, fx.requester), map[string]any{
		"resource_id": fx.restricted.ID,
		"message":     "   ",
	}), http.StatusBadRequest, nil)
}

func TestUpdateRequestMessageEndpoint(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)
	token := e.tokenFor(t, fx.requester)

	id := e.submitRequest(t, token, fx.restricted.ID)

	var updated models.AccessRequest
	e.do(t, e.jsonReq(t, http.MethodPut, fmt.Sprintf("/api/access-requests/%s/message", id), token, map[string]any{
		"message": "clarified justification",
	}), http.StatusOK, &updated)
	assert.Equal(t, "clarified justification", updated.Message)

	// Someone else's request cannot be edited.
	other := e.createUser(t, "intruder", false)
	e.do(t, e.jsonReq(t, http.MethodPut, fmt.Sprintf("/api/access-requests/%s/message", id),
		e.tokenFor(t, other), map[string]any{"message": "hijack"}), http.StatusForbidden, nil)
}

func TestAdminDashboardAndDecision(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)
	requesterToken := e.tokenFor(t, fx.requester)
	adminToken := e.tokenFor(t, fx.orgAdmin)

	id := e.submitRequest(t, requesterToken, fx.restricted.ID)

	// Plain users are forbidden from the dashboard.
	e.do(t, e.jsonReq(t, http.MethodGet, "/api/admin/access-requests/", requesterToken, nil),
		http.StatusForbidden, nil)

	var dashboard struct {
		Count int `json:"count"`
	}
	e.do(t, e.jsonReq(t, http.MethodGet, "/api/admin/access-requests/", adminToken, nil),
		http.StatusOK, &dashboard)
	assert.Equal(t, 1, dashboard.Count)

	var decided struct {
		Request          models.AccessRequest `json:"request"`
		NotificationSent bool                 `json:"notification_sent"`
	}
	e.do(t, e.jsonReq(t, http.MethodPost, fmt.Sprintf("/api/admin/access-requests/%s/decision", id),
		adminToken, map[string]any{"action": "approve"}), http.StatusOK, &decided)
	assert.Equal(t, models.RequestStatusApproved, decided.Request.Status)
	assert.True(t, decided.NotificationSent)

	// The allow-list now carries the requester (already present → unchanged).
	var res models.Resource
	require.NoError(t, e.db.First(&res, fx.restricted.ID).Error)
	assert.Contains(t, res.AllowedUsers, "maria.santos")
}

func TestDecisionForbiddenForNonAdmin(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)
	requesterToken := e.tokenFor(t, fx.requester)

	id := e.submitRequest(t, requesterToken, fx.restricted.ID)

	e.do(t, e.jsonReq(t, http.MethodPost, fmt.Sprintf("/api/admin/access-requests/%s/decision", id),
		requesterToken, map[string]any{"action": "approve"}), http.StatusForbidden, nil)
}

func TestDeleteRequestSysadminOnly(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)
	sysadmin := e.createUser(t, "root_admin", true)

	id := e.submitRequest(t, e.tokenFor(t, fx.requester), fx.restricted.ID)

	e.do(t, e.jsonReq(t, http.MethodDelete, "/api/admin/access-requests/"+id,
		e.tokenFor(t, fx.orgAdmin), nil), http.StatusForbidden, nil)
	e.do(t, e.jsonReq(t, http.MethodDelete, "/api/admin/access-requests/"+id,
		e.tokenFor(t, sysadmin), nil), http.StatusOK, nil)
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t)

	e.do(t, e.jsonReq(t, http.MethodGet, "/health/live", "", nil), http.StatusOK, nil)

	var ready struct {
		Checks struct {
			Database string `json:"database"`
			Redis    string `json:"redis"`
		} `json:"checks"`
	}
	e.do(t, e.jsonReq(t, http.MethodGet, "/health/ready", "", nil), http.StatusOK, &ready)
	assert.Equal(t, "healthy", ready.Checks.Database)
	assert.Equal(t, "unavailable", ready.Checks.Redis)
}
