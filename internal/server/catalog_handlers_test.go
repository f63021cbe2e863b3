package server

import (
	"net/http"
	"testing"

	"gatehouse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type packageShowResponse struct {
	Package      models.Package    `json:"package"`
	Resources    []models.Resource `json:"resources"`
	NumResources int               `json:"num_resources"`
}

func TestShowPackageAnonymousMasksRestricted(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)

	var out packageShowResponse
	e.do(t, e.jsonReq(t, http.MethodGet, "/api/packages/river-discharge", "", nil),
		http.StatusOK, &out)

	require.Len(t, out.Resources, 2)
	assert.Equal(t, 2, out.NumResources)

	for _, res := range out.Resources {
		switch res.ID {
		case fx.public.ID:
			assert.NotNil(t, res.URL)
		case fx.restricted.ID:
			assert.Nil(t, res.URL)
			assert.Equal(t, models.StringList{"mar*****os"}, res.AllowedUsers)
		default:
			t.Fatalf("unexpected resource %d", res.ID)
		}
	}
}

func TestShowPackageViewerSeesOwnEntryUnmasked(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)
	token := e.tokenFor(t, fx.requester)

	var out packageShowResponse
	e.do(t, e.jsonReq(t, http.MethodGet, "/api/packages/river-discharge", token, nil),
		http.StatusOK, &out)

	for _, res := range out.Resources {
		if res.ID == fx.restricted.ID {
			assert.Equal(t, models.StringList{"maria.santos"}, res.AllowedUsers)
			assert.Nil(t, res.URL)
		}
	}
}

func TestShowPackageEditorUnfiltered(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)
	token := e.tokenFor(t, fx.orgAdmin)

	var out packageShowResponse
	e.do(t, e.jsonReq(t, http.MethodGet, "/api/packages/river-discharge", token, nil),
		http.StatusOK, &out)

	for _, res := range out.Resources {
		assert.NotNil(t, res.URL, "editor should see URLs")
	}
}

func TestShowPrivatePackage(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)

	// Invisible to anonymous viewers and plain users.
	e.do(t, e.jsonReq(t, http.MethodGet, "/api/packages/calibration", "", nil),
		http.StatusNotFound, nil)
	e.do(t, e.jsonReq(t, http.MethodGet, "/api/packages/calibration", e.tokenFor(t, fx.requester), nil),
		http.StatusNotFound, nil)

	// Editors see it.
	e.do(t, e.jsonReq(t, http.MethodGet, "/api/packages/calibration", e.tokenFor(t, fx.orgAdmin), nil),
		http.StatusOK, nil)
}

func TestSearchResourcesRedacted(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)

	var page struct {
		Count   int               `json:"count"`
		Results []models.Resource `json:"results"`
	}
	e.do(t, e.jsonReq(t, http.MethodGet, "/api/resources/search?q=gauge", "", nil),
		http.StatusOK, &page)

	require.Equal(t, 1, page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, fx.restricted.ID, page.Results[0].ID)
	assert.Nil(t, page.Results[0].URL)
}

func TestCheckResourceAccess(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)

	var out struct {
		Access bool   `json:"access"`
		Level  string `json:"level"`
	}

	e.do(t, e.jsonReq(t, http.MethodGet, "/api/resources/1/access", "", nil),
		http.StatusOK, &out)
	assert.True(t, out.Access)
	assert.Equal(t, "public", out.Level)

	e.do(t, e.jsonReq(t, http.MethodGet, "/api/resources/2/access", "", nil),
		http.StatusOK, &out)
	assert.False(t, out.Access)

	e.do(t, e.jsonReq(t, http.MethodGet, "/api/resources/2/access", e.tokenFor(t, fx.requester), nil),
		http.StatusOK, &out)
	assert.True(t, out.Access, "allow-listed user has access")
}

func TestCreatePackageRequiresOrgAdmin(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)

	payload := map[string]any{
		"name":     "New Dataset",
		"slug":     "new-dataset",
		"org_slug": "hydrology",
	}

	e.do(t, e.jsonReq(t, http.MethodPost, "/api/packages/", e.tokenFor(t, fx.requester), payload),
		http.StatusForbidden, nil)

	var created models.Package
	e.do(t, e.jsonReq(t, http.MethodPost, "/api/packages/", e.tokenFor(t, fx.orgAdmin), payload),
		http.StatusCreated, &created)
	assert.Equal(t, "new-dataset", created.Slug)
}

func TestCreateResourceWithAllowedUsers(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)
	token := e.tokenFor(t, fx.orgAdmin)

	var created models.Resource
	e.do(t, e.jsonReq(t, http.MethodPost, "/api/packages/river-discharge/resources", token, map[string]any{
		"name":          "sediment.csv",
		"url":           "https://data.example.org/sediment.csv",
		"level":         "restricted",
		"allowed_users": []string{"maria.santos", "wei_chen"},
	}), http.StatusCreated, &created)
	assert.Equal(t, models.StringList{"maria.santos", "wei_chen"}, created.AllowedUsers)

	// Legacy comma-joined form is accepted too.
	e.do(t, e.jsonReq(t, http.MethodPost, "/api/packages/river-discharge/resources", token, map[string]any{
		"name":          "sediment-v2.csv",
		"level":         "restricted",
		"allowed_users": "maria.santos, wei_chen",
	}), http.StatusCreated, &created)
	assert.Equal(t, models.StringList{"maria.santos", "wei_chen"}, created.AllowedUsers)
}

func TestCreateResourceRejectsBadInput(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)
	token := e.tokenFor(t, fx.orgAdmin)

	e.do(t, e.jsonReq(t, http.MethodPost, "/api/packages/river-discharge/resources", token, map[string]any{
		"name":  "bad-level.csv",
		"level": "secret",
	}), http.StatusBadRequest, nil)

	e.do(t, e.jsonReq(t, http.MethodPost, "/api/packages/river-discharge/resources", token, map[string]any{
		"name":          "bad-users.csv",
		"level":         "restricted",
		"allowed_users": []string{"no|pipes"},
	}), http.StatusBadRequest, nil)
}

func TestUpdateResourceLevel(t *testing.T) {
	e := newTestEnv(t)
	fx := e.seedCatalog(t)

	// Non-editors cannot patch.
	e.do(t, e.jsonReq(t, http.MethodPatch, "/api/resources/1", e.tokenFor(t, fx.requester), map[string]any{
		"level": "restricted",
	}), http.StatusForbidden, nil)

	var updated models.Resource
	e.do(t, e.jsonReq(t, http.MethodPatch, "/api/resources/1", e.tokenFor(t, fx.orgAdmin), map[string]any{
		"level":         "restricted",
		"allowed_users": []string{"maria.santos"},
	}), http.StatusOK, &updated)
	assert.Equal(t, models.LevelRestricted, updated.Level)
	assert.Equal(t, models.StringList{"maria.santos"}, updated.AllowedUsers)
}
