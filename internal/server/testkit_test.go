package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"gatehouse/internal/config"
	"gatehouse/internal/database"
	"gatehouse/internal/middleware"
	"gatehouse/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	srv    *Server
	mailer *recordingMailer
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMailer) Send(_ context.Context, _, recipientEmail, _, _ string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, recipientEmail)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: "test-secret-0123456789-0123456789",
		Port:      "0",
		Env:       "test",
		SiteTitle: "Test Portal",
		SiteURL:   "http://portal.test",
		EmailTo:   "fallback@example.org",
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := testConfig()
	middleware.InitMiddleware(cfg)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mailer := &recordingMailer{}
	srv := NewServerWithDeps(cfg, db, nil, mailer)

	app := fiber.New()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)

	return &testEnv{app: app, db: db, srv: srv, mailer: mailer}
}

func (e *testEnv) createUser(t *testing.T, username string, sysadmin bool) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		Username: username,
		Email:    username + "@example.org",
		Password: string(hash),
		Sysadmin: sysadmin,
	}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func (e *testEnv) tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := e.srv.generateToken(&user)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func (e *testEnv) jsonReq(t *testing.T, method, path, token string, payload any) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (e *testEnv) do(t *testing.T, req *http.Request, wantStatus int, out any) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d got %d: %s",
			req.Method, req.URL.Path, wantStatus, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode response: %v: %s", err, raw)
		}
	}
}

// seedCatalog creates an org with an admin, a public package holding a
// public and a restricted resource, and a private package.
type catalogFixture struct {
	orgAdmin   models.User
	requester  models.User
	org        models.Organization
	pkg        models.Package
	privatePkg models.Package
	public     models.Resource
	restricted models.Resource
}

func (e *testEnv) seedCatalog(t *testing.T) *catalogFixture {
	t.Helper()
	fx := &catalogFixture{
		orgAdmin:  e.createUser(t, "org_admin", false),
		requester: e.createUser(t, "maria.santos", false),
	}

	fx.org = models.Organization{Name: "Hydrology Institute", Slug: "hydrology"}
	if err := e.db.Create(&fx.org).Error; err != nil {
		t.Fatalf("create org: %v", err)
	}
	if err := e.db.Create(&models.OrgMembership{
		OrgID: fx.org.ID, UserID: fx.orgAdmin.ID, Role: models.OrgRoleAdmin,
	}).Error; err != nil {
		t.Fatalf("create membership: %v", err)
	}

	fx.pkg = models.Package{Name: "River Discharge", Slug: "river-discharge", OrgID: fx.org.ID}
	if err := e.db.Create(&fx.pkg).Error; err != nil {
		t.Fatalf("create package: %v", err)
	}
	fx.privatePkg = models.Package{Name: "Calibration", Slug: "calibration", OrgID: fx.org.ID, Private: true}
	if err := e.db.Create(&fx.privatePkg).Error; err != nil {
		t.Fatalf("create private package: %v", err)
	}

	publicURL := "https://data.example.org/discharge.csv"
	fx.public = models.Resource{PackageID: fx.pkg.ID, Name: "discharge.csv", URL: &publicURL}
	if err := e.db.Create(&fx.public).Error; err != nil {
		t.Fatalf("create public resource: %v", err)
	}

	restrictedURL := "https://data.example.org/gauge-raw.parquet"
	fx.restricted = models.Resource{
		PackageID:    fx.pkg.ID,
		Name:         "gauge-raw.parquet",
		URL:          &restrictedURL,
		Level:        models.LevelRestricted,
		AllowedUsers: models.StringList{"maria.santos"},
	}
	if err := e.db.Create(&fx.restricted).Error; err != nil {
		t.Fatalf("create restricted resource: %v", err)
	}
	return fx
}
