// Package seed populates development databases, either from a yaml fixture
// or with generated data.
package seed

import (
	"fmt"
	"os"

	"gatehouse/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixture is the yaml document shape for deterministic seeding.
type Fixture struct {
	Users []struct {
		Username    string `yaml:"username"`
		Email       string `yaml:"email"`
		Password    string `yaml:"password"`
		DisplayName string `yaml:"display_name"`
		Sysadmin    bool   `yaml:"sysadmin"`
	} `yaml:"users"`
	Organizations []struct {
		Name    string   `yaml:"name"`
		Slug    string   `yaml:"slug"`
		Admins  []string `yaml:"admins"`
		Members []string `yaml:"members"`
	} `yaml:"organizations"`
	Packages []struct {
		Name            string `yaml:"name"`
		Slug            string `yaml:"slug"`
		Description     string `yaml:"description"`
		Org             string `yaml:"org"`
		Private         bool   `yaml:"private"`
		MaintainerName  string `yaml:"maintainer_name"`
		MaintainerEmail string `yaml:"maintainer_email"`
	} `yaml:"packages"`
	Resources []struct {
		Package      string   `yaml:"package"`
		Name         string   `yaml:"name"`
		Description  string   `yaml:"description"`
		URL          string   `yaml:"url"`
		Format       string   `yaml:"format"`
		Level        string   `yaml:"level"`
		AllowedUsers []string `yaml:"allowed_users"`
	} `yaml:"resources"`
	Requests []struct {
		Resource string `yaml:"resource"`
		User     string `yaml:"user"`
		Message  string `yaml:"message"`
		Status   string `yaml:"status"`
	} `yaml:"requests"`
}

// Load reads and parses a yaml fixture file.
func Load(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &fx, nil
}

// Apply inserts the fixture's entities in dependency order. Usernames and
// slugs are the fixture's cross-reference keys.
func Apply(db *gorm.DB, fx *Fixture) error {
	users := make(map[string]*models.User, len(fx.Users))
	for _, u := range fx.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user := &models.User{
			Username:    u.Username,
			Email:       u.Email,
			Password:    string(hash),
			DisplayName: u.DisplayName,
			Sysadmin:    u.Sysadmin,
		}
		if err := db.Create(user).Error; err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
		users[u.Username] = user
	}

	orgs := make(map[string]*models.Organization, len(fx.Organizations))
	for _, o := range fx.Organizations {
		org := &models.Organization{Name: o.Name, Slug: o.Slug}
		if err := db.Create(org).Error; err != nil {
			return fmt.Errorf("seed org %s: %w", o.Slug, err)
		}
		orgs[o.Slug] = org

		for _, username := range o.Admins {
			if err := addMember(db, org, users, username, models.OrgRoleAdmin); err != nil {
				return err
			}
		}
		for _, username := range o.Members {
			if err := addMember(db, org, users, username, models.OrgRoleMember); err != nil {
				return err
			}
		}
	}

	pkgs := make(map[string]*models.Package, len(fx.Packages))
	for _, p := range fx.Packages {
		org, ok := orgs[p.Org]
		if !ok {
			return fmt.Errorf("package %s references unknown org %s", p.Slug, p.Org)
		}
		pkg := &models.Package{
			Name:            p.Name,
			Slug:            p.Slug,
			Description:     p.Description,
			OrgID:           org.ID,
			Private:         p.Private,
			MaintainerName:  p.MaintainerName,
			MaintainerEmail: p.MaintainerEmail,
		}
		if err := db.Create(pkg).Error; err != nil {
			return fmt.Errorf("seed package %s: %w", p.Slug, err)
		}
		pkgs[p.Slug] = pkg
	}

	resources := make(map[string]*models.Resource, len(fx.Resources))
	for _, r := range fx.Resources {
		pkg, ok := pkgs[r.Package]
		if !ok {
			return fmt.Errorf("resource %s references unknown package %s", r.Name, r.Package)
		}
		level := models.LevelPublic
		if r.Level != "" {
			level = models.ResourceLevel(r.Level)
		}
		res := &models.Resource{
			PackageID:    pkg.ID,
			Name:         r.Name,
			Description:  r.Description,
			Format:       r.Format,
			Level:        level,
			AllowedUsers: r.AllowedUsers,
		}
		if r.URL != "" {
			url := r.URL
			res.URL = &url
		}
		if err := db.Create(res).Error; err != nil {
			return fmt.Errorf("seed resource %s: %w", r.Name, err)
		}
		resources[r.Name] = res
	}

	for _, q := range fx.Requests {
		res, ok := resources[q.Resource]
		if !ok {
			return fmt.Errorf("request references unknown resource %s", q.Resource)
		}
		user, ok := users[q.User]
		if !ok {
			return fmt.Errorf("request references unknown user %s", q.User)
		}
		pkg := pkgByID(pkgs, res.PackageID)
		status := models.RequestStatusPending
		if q.Status != "" {
			status = models.RequestStatus(q.Status)
		}
		request := &models.AccessRequest{
			PackageID:  res.PackageID,
			ResourceID: res.ID,
			OrgID:      pkg.OrgID,
			UserID:     user.ID,
			Message:    q.Message,
			Status:     status,
		}
		if err := db.Create(request).Error; err != nil {
			return fmt.Errorf("seed request for %s: %w", q.Resource, err)
		}
	}
	return nil
}

func addMember(db *gorm.DB, org *models.Organization, users map[string]*models.User, username string, role models.OrgRole) error {
	user, ok := users[username]
	if !ok {
		return fmt.Errorf("org %s references unknown user %s", org.Slug, username)
	}
	m := &models.OrgMembership{OrgID: org.ID, UserID: user.ID, Role: role}
	if err := db.Create(m).Error; err != nil {
		return fmt.Errorf("seed membership %s/%s: %w", org.Slug, username, err)
	}
	return nil
}

func pkgByID(pkgs map[string]*models.Package, id uint) *models.Package {
	for _, p := range pkgs {
		if p.ID == id {
			return p
		}
	}
	return &models.Package{}
}

// Generate fills the database with random catalog data for load-style local
// testing. Deterministic under gofakeit.Seed.
func Generate(db *gorm.DB, userCount, orgCount int) error {
	if userCount <= 0 {
		userCount = 20
	}
	if orgCount <= 0 {
		orgCount = 3
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		return err
	}

	var users []*models.User
	for i := 0; i < userCount; i++ {
		user := &models.User{
			Username:    fmt.Sprintf("%s%d", gofakeit.Username(), i),
			Email:       fmt.Sprintf("user%d@%s", i, gofakeit.DomainName()),
			Password:    string(hash),
			DisplayName: gofakeit.Name(),
			Sysadmin:    i == 0,
		}
		if err := db.Create(user).Error; err != nil {
			return err
		}
		users = append(users, user)
	}

	for i := 0; i < orgCount; i++ {
		org := &models.Organization{
			Name: gofakeit.Company(),
			Slug: fmt.Sprintf("org-%d", i),
		}
		if err := db.Create(org).Error; err != nil {
			return err
		}

		admin := users[(i+1)%len(users)]
		if err := db.Create(&models.OrgMembership{
			OrgID: org.ID, UserID: admin.ID, Role: models.OrgRoleAdmin,
		}).Error; err != nil {
			return err
		}

		for p := 0; p < 3; p++ {
			pkg := &models.Package{
				Name:        gofakeit.BuzzWord() + " Dataset",
				Slug:        fmt.Sprintf("pkg-%d-%d", i, p),
				Description: gofakeit.Sentence(12),
				OrgID:       org.ID,
				Private:     p == 2,
			}
			if err := db.Create(pkg).Error; err != nil {
				return err
			}

			for r := 0; r < 2; r++ {
				level := models.LevelPublic
				var allowed models.StringList
				if r == 1 {
					level = models.LevelRestricted
					allowed = models.StringList{users[(i+2)%len(users)].Username}
				}
				url := gofakeit.URL()
				res := &models.Resource{
					PackageID:    pkg.ID,
					Name:         gofakeit.AppName(),
					Description:  gofakeit.Sentence(8),
					URL:          &url,
					Format:       "CSV",
					Level:        level,
					AllowedUsers: allowed,
				}
				if err := db.Create(res).Error; err != nil {
					return err
				}
			}
		}
	}
	return nil
}
