// Command seed populates a development database from a yaml fixture or with
// generated data.
package main

import (
	"flag"
	"log"

	"gatehouse/internal/config"
	"gatehouse/internal/database"
	"gatehouse/internal/middleware"
	"gatehouse/internal/seed"
)

func main() {
	fixture := flag.String("fixture", "", "path to a yaml fixture; empty generates random data")
	users := flag.Int("users", 20, "number of generated users (ignored with -fixture)")
	orgs := flag.Int("orgs", 3, "number of generated organizations (ignored with -fixture)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitMiddleware(cfg)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *fixture != "" {
		fx, err := seed.Load(*fixture)
		if err != nil {
			log.Fatalf("Failed to load fixture: %v", err)
		}
		if err := seed.Apply(db, fx); err != nil {
			log.Fatalf("Failed to apply fixture: %v", err)
		}
		log.Printf("Fixture %s applied", *fixture)
		return
	}

	if err := seed.Generate(db, *users, *orgs); err != nil {
		log.Fatalf("Failed to generate seed data: %v", err)
	}
	log.Printf("Generated %d users across %d organizations", *users, *orgs)
}
