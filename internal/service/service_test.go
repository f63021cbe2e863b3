package service

import (
	"context"
	"sync"
	"testing"

	"gatehouse/internal/database"
	"gatehouse/internal/models"
	"gatehouse/internal/notifications"
	"gatehouse/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakeMailer records sends and optionally fails them.
type fakeMailer struct {
	mu    sync.Mutex
	sent  []sentMail
	fails bool
}

type sentMail struct {
	Recipient string
	Subject   string
	Body      string
	Headers   map[string]string
}

func (m *fakeMailer) Send(_ context.Context, _, recipientEmail, subject, body string, headers map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails {
		return context.DeadlineExceeded
	}
	m.sent = append(m.sent, sentMail{
		Recipient: recipientEmail,
		Subject:   subject,
		Body:      body,
		Headers:   headers,
	})
	return nil
}

func (m *fakeMailer) sentTo(email string) []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMail
	for _, s := range m.sent {
		if s.Recipient == email {
			out = append(out, s)
		}
	}
	return out
}

// fixture is a small catalog: one org with an admin, a requester, a public
// and a restricted resource, plus a private package.
type fixture struct {
	db         *gorm.DB
	sysadmin   models.User
	orgAdmin   models.User
	requester  models.User
	bystander  models.User
	org        models.Organization
	pkg        models.Package
	privatePkg models.Package
	public     models.Resource
	restricted models.Resource
	hidden     models.Resource
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	fx := &fixture{db: db}

	fx.sysadmin = models.User{Username: "root_admin", Email: "root@example.org", Password: "x", Sysadmin: true}
	fx.orgAdmin = models.User{Username: "org_admin", Email: "orgadmin@example.org", Password: "x"}
	fx.requester = models.User{Username: "maria.santos", Email: "maria@example.org", Password: "x", DisplayName: "Maria Santos"}
	fx.bystander = models.User{Username: "passerby", Email: "passerby@example.org", Password: "x"}
	for _, u := range []*models.User{&fx.sysadmin, &fx.orgAdmin, &fx.requester, &fx.bystander} {
		mustCreate(t, db, u)
	}

	fx.org = models.Organization{Name: "Hydrology Institute", Slug: "hydrology"}
	mustCreate(t, db, &fx.org)
	mustCreate(t, db, &models.OrgMembership{OrgID: fx.org.ID, UserID: fx.orgAdmin.ID, Role: models.OrgRoleAdmin})

	fx.pkg = models.Package{Name: "River Discharge", Slug: "river-discharge", OrgID: fx.org.ID}
	mustCreate(t, db, &fx.pkg)
	fx.privatePkg = models.Package{Name: "Calibration Logs", Slug: "calibration-logs", OrgID: fx.org.ID, Private: true}
	mustCreate(t, db, &fx.privatePkg)

	publicURL := "https://data.example.org/discharge.csv"
	fx.public = models.Resource{PackageID: fx.pkg.ID, Name: "discharge.csv", URL: &publicURL, Level: models.LevelPublic}
	mustCreate(t, db, &fx.public)

	restrictedURL := "https://data.example.org/gauge-raw.parquet"
	fx.restricted = models.Resource{
		PackageID:    fx.pkg.ID,
		Name:         "gauge-raw.parquet",
		URL:          &restrictedURL,
		Level:        models.LevelRestricted,
		AllowedUsers: models.StringList{"maria.santos", "someone_else"},
	}
	mustCreate(t, db, &fx.restricted)

	hiddenURL := "https://data.example.org/calibration.xlsx"
	fx.hidden = models.Resource{PackageID: fx.privatePkg.ID, Name: "calibration.xlsx", URL: &hiddenURL, Level: models.LevelRestricted}
	mustCreate(t, db, &fx.hidden)

	return fx
}

func (fx *fixture) visibility() *Visibility {
	orgs := repository.NewOrgRepository(fx.db)
	return NewVisibility(NewAuthorizer(orgs), repository.NewCatalogRepository(fx.db))
}

func (fx *fixture) requestsService(mailer *fakeMailer) *Requests {
	orgs := repository.NewOrgRepository(fx.db)
	return NewRequests(
		fx.db,
		repository.NewUserRepository(fx.db),
		orgs,
		repository.NewCatalogRepository(fx.db),
		repository.NewRequestRepository(fx.db),
		NewAuthorizer(orgs),
		notifications.NewDispatcher(mailer),
		SiteInfo{Title: "Test Portal", URL: "http://portal.test"},
	)
}

func viewerFor(u models.User) *models.Viewer {
	return &models.Viewer{ID: u.ID, Username: u.Username, Sysadmin: u.Sysadmin}
}
