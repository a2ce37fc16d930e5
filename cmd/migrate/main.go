package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/malwarebo/rentops/config"
	"github.com/malwarebo/rentops/db"
)

func main() {
	down := flag.String("down", "", "roll back migrations newer than this version")
	status := flag.Bool("status", false, "print migration status and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Database.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "database config: %v\n", err)
		os.Exit(1)
	}

	database, err := db.CreateDB(db.Options{
		PrimaryDSN:   cfg.GetDatabaseURL(),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	ctx := context.Background()
	migrator := db.CreateSchemaMigrator(database.GetDB())

	switch {
	case *status:
		statuses, err := migrator.Status(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read migration status: %v\n", err)
			os.Exit(1)
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied " + s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%s  %-28s %s\n", s.Version, s.Name, state)
		}
	case *down != "":
		if err := migrator.Down(ctx, *down); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("rolled back to %s\n", *down)
	default:
		if err := migrator.Up(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Println("schema is up to date")
	}
}
