// Command admin manages sysadmin and organization-admin grants.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"gatehouse/internal/config"
	"gatehouse/internal/database"
	"gatehouse/internal/middleware"
	"gatehouse/internal/models"

	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin promote <username>              - Grant sysadmin")
		fmt.Println("  go run ./cmd/admin demote <username>               - Revoke sysadmin")
		fmt.Println("  go run ./cmd/admin list-sysadmins                  - List sysadmins")
		fmt.Println("  go run ./cmd/admin org-admin <org-slug> <username> - Grant org admin role")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	middleware.InitMiddleware(cfg)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	switch os.Args[1] {
	case "promote":
		requireArgs(3, "promote <username>")
		setSysadmin(db, os.Args[2], true)
	case "demote":
		requireArgs(3, "demote <username>")
		setSysadmin(db, os.Args[2], false)
	case "list-sysadmins":
		listSysadmins(db)
	case "org-admin":
		requireArgs(4, "org-admin <org-slug> <username>")
		grantOrgAdmin(db, os.Args[2], os.Args[3])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func requireArgs(n int, usage string) {
	if len(os.Args) < n {
		fmt.Printf("Usage: go run ./cmd/admin %s\n", usage)
		os.Exit(1)
	}
}

func findUser(db *gorm.DB, username string) *models.User {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("User %s not found\n", username)
		} else {
			log.Fatalf("Database error: %v", err)
		}
		os.Exit(1)
	}
	return &user
}

func setSysadmin(db *gorm.DB, username string, grant bool) {
	user := findUser(db, username)

	if user.Sysadmin == grant {
		fmt.Printf("User %s (ID: %d) sysadmin already %v\n", user.Username, user.ID, grant)
		return
	}

	user.Sysadmin = grant
	if err := db.Save(user).Error; err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}
	fmt.Printf("User %s (ID: %d) sysadmin set to %v\n", user.Username, user.ID, grant)
}

func listSysadmins(db *gorm.DB) {
	var admins []models.User
	if err := db.Where("sysadmin = ?", true).Find(&admins).Error; err != nil {
		log.Fatalf("Failed to fetch sysadmins: %v", err)
	}
	if len(admins) == 0 {
		fmt.Println("No sysadmins found")
		return
	}
	for _, admin := range admins {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", admin.ID, admin.Username, admin.Email)
	}
}

func grantOrgAdmin(db *gorm.DB, orgSlug, username string) {
	user := findUser(db, username)

	var org models.Organization
	if err := db.Where("slug = ?", orgSlug).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("Organization %s not found\n", orgSlug)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}

	membership := models.OrgMembership{OrgID: org.ID, UserID: user.ID, Role: models.OrgRoleAdmin}
	err := db.Where("org_id = ? AND user_id = ?", org.ID, user.ID).
		Assign("role", models.OrgRoleAdmin).
		FirstOrCreate(&membership).Error
	if err != nil {
		log.Fatalf("Failed to grant org admin: %v", err)
	}
	fmt.Printf("User %s is now an admin of %s\n", user.Username, org.Slug)
}
