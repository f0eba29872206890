package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/layarapp/layar-server/internal/backup"
)

// archivePath accepts either a backup id or a path to an archive.
func archivePath(p *project, ref string) string {
	if _, err := os.Stat(ref); err == nil {
		return ref
	}
	return p.backups.Path(ref)
}

func (r *runner) backupCreate(ctx context.Context, cmd *cli.Command) error {
	p, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	result, err := p.backups.Create(ctx, backup.BackupOptions{OutputPath: cmd.String("output")})
	if err != nil {
		return err
	}
	r.printf("Wrote %s (%d bytes, sha256 %s)", result.Path, result.Size, result.Checksum)
	r.printCounts(result.Counts)
	return nil
}

func (r *runner) backupList(ctx context.Context, cmd *cli.Command) error {
	p, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	backups, err := p.backups.List(ctx)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		r.printf("No backups")
		return nil
	}
	for _, b := range backups {
		r.printf("%s  %s  %d bytes", b.ID, b.CreatedAt.Format("2006-01-02 15:04:05"), b.Size)
	}
	return nil
}

func (r *runner) backupValidate(ctx context.Context, cmd *cli.Command) error {
	p, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("backup id or path required")
	}

	v, err := p.backups.Validate(ctx, archivePath(p, ref))
	if err != nil {
		return err
	}
	for _, w := range v.Warnings {
		r.printf("warning: %s", w)
	}
	if !v.Valid {
		return fmt.Errorf("%w: %s", backup.ErrCorruptedBackup, strings.Join(v.Errors, "; "))
	}
	r.printf("Backup is valid (format %s, project %s)", v.Manifest.Version, v.Manifest.ProjectID)
	r.printCounts(v.Manifest.Counts)
	return nil
}

func (r *runner) backupRestore(ctx context.Context, cmd *cli.Command) error {
	p, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("backup id or path required")
	}

	result, err := p.backups.Restore(ctx, archivePath(p, ref), backup.RestoreOptions{
		Mode:          backup.RestoreMode(cmd.String("mode")),
		MergeStrategy: backup.MergeStrategy(cmd.String("strategy")),
		DryRun:        cmd.Bool("dry-run"),
	})
	if err != nil {
		return err
	}

	verb := "Restored"
	if cmd.Bool("dry-run") {
		verb = "Would restore"
	}
	for _, name := range sortedKeys(result.Imported, result.Skipped, result.Deleted) {
		r.printf("%s %s: %d written, %d skipped, %d deleted",
			verb, name, result.Imported[name], result.Skipped[name], result.Deleted[name])
	}
	for _, e := range result.Errors {
		r.printf("error: %s/%s: %s", e.Collection, e.DocumentID, e.Error)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d documents failed to restore", len(result.Errors))
	}
	return nil
}

func (r *runner) backupDelete(ctx context.Context, cmd *cli.Command) error {
	p, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	id := cmd.Args().First()
	if id == "" {
		return errors.New("backup id required")
	}
	if err := p.backups.Delete(ctx, id); err != nil {
		return err
	}
	r.printf("Deleted %s", id)
	return nil
}

func (r *runner) printCounts(counts map[string]int) {
	for _, name := range sortedKeys(counts) {
		r.printf("  %s: %d", name, counts[name])
	}
}

func sortedKeys(ms ...map[string]int) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range ms {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func backupCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Export, validate and restore the project's document collections",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Write an archive of every collection",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Archive path (default: the project's backup directory)",
					},
				},
				Action: r.backupCreate,
			},
			{
				Name:   "list",
				Usage:  "List archives in the backup directory",
				Action: r.backupList,
			},
			{
				Name:      "validate",
				Usage:     "Check an archive without restoring it",
				ArgsUsage: "<id|path>",
				Action:    r.backupValidate,
			},
			{
				Name:      "restore",
				Usage:     "Load an archive into the project",
				ArgsUsage: "<id|path>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mode",
						Usage: "full (replace collections) or merge",
						Value: string(backup.RestoreModeMerge),
					},
					&cli.StringFlag{
						Name:  "strategy",
						Usage: "Merge conflicts: keep_local, keep_backup or newest",
						Value: string(backup.MergeKeepLocal),
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report what would change without writing",
					},
				},
				Action: r.backupRestore,
			},
			{
				Name:      "delete",
				Usage:     "Remove an archive from the backup directory",
				ArgsUsage: "<id>",
				Action:    r.backupDelete,
			},
		},
	}
}
