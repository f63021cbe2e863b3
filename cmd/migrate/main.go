// Command migrate applies the schema explicitly. Production deployments run
// this instead of relying on the server's dev-only automigration.
package main

import (
	"flag"
	"fmt"
	"log"

	"gatehouse/internal/config"
	"gatehouse/internal/database"
	"gatehouse/internal/middleware"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	flag.Parse()
	cmd := flag.Arg(0)
	if cmd == "" {
		return fmt.Errorf("usage: go run ./cmd/migrate <auto|status>")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.InitMiddleware(cfg)

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch cmd {
	case "auto":
		if err := db.AutoMigrate(database.Models()...); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}
		log.Println("schema applied")
	case "status":
		migrator := db.Migrator()
		for _, model := range database.Models() {
			state := "missing"
			if migrator.HasTable(model) {
				state = "present"
			}
			fmt.Printf("%-40T %s\n", model, state)
		}
	default:
		return fmt.Errorf("unknown command %q (want auto or status)", cmd)
	}
	return nil
}
