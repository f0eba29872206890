// Package main provides catalogctl, an offline tool for a Layar project's
// document store: seeding the catalog, inspecting collections, granting
// admin access and backing collections up. Run it while the server is
// stopped; badger allows one process per directory.
//
// Usage:
//
//	catalogctl --data-path ~/Layar/data seed --file catalog.toml
//	catalogctl inspect --collection movies
//	catalogctl grant-admin --email alice@example.com
//	catalogctl backup create
//	catalogctl backup restore --mode full backup-2026-10-19-120000
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp(&runner{out: os.Stdout}).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "catalogctl: %v\n", err)
		os.Exit(1)
	}
}

func newApp(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "catalogctl",
		Usage: "Manage a Layar project's catalog and accounts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-path",
				Usage:   "Base path for persistent data",
				Value:   "~/Layar/data",
				Sources: cli.EnvVars("DATA_PATH"),
			},
			&cli.StringFlag{
				Name:    "project",
				Usage:   "Project identifier",
				Value:   "layar",
				Sources: cli.EnvVars("PROJECT_ID"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log store operations",
			},
		},
		Commands: []*cli.Command{
			seedCommand(r),
			inspectCommand(r),
			grantAdminCommand(r),
			backupCommand(r),
		},
	}
}
