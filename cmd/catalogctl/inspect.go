package main

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/layarapp/layar-server/internal/remote"
)

var collections = []string{remote.CollectionUsers, remote.CollectionMovies, remote.CollectionFavorites}

func (r *runner) inspect(ctx context.Context, cmd *cli.Command) error {
	p, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	names := collections
	if c := cmd.String("collection"); c != "" {
		if !slices.Contains(collections, c) {
			return fmt.Errorf("unknown collection %q (want one of %v)", c, collections)
		}
		names = []string{c}
	}

	for _, name := range names {
		docs, err := p.docs.List(ctx, name)
		if err != nil {
			return fmt.Errorf("list %s: %w", name, err)
		}
		r.printf("=== %s (%d) ===", name, len(docs))
		if !cmd.Bool("dump") {
			continue
		}
		for _, doc := range docs {
			data, err := json.MarshalIndent(doc.Fields, "", "  ")
			if err != nil {
				return fmt.Errorf("encode %s/%s: %w", name, doc.ID, err)
			}
			r.printf("%s %s", doc.ID, data)
		}
	}
	return nil
}

func inspectCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Count or dump documents per collection",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "collection",
				Aliases: []string{"c"},
				Usage:   "Only this collection (users, movies, userFavorites)",
			},
			&cli.BoolFlag{
				Name:  "dump",
				Usage: "Print every document",
			},
		},
		Action: r.inspect,
	}
}
