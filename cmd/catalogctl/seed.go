package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"

	"github.com/layarapp/layar-server/internal/service"
)

// seedFile is the TOML catalog format:
//
//	[[movies]]
//	title = "Arrival"
//	genre = "Sci-Fi, Drama"
//	year = 2016
//	rating = 7.9
type seedFile struct {
	Movies []seedMovie `toml:"movies"`
}

type seedMovie struct {
	Title       string  `toml:"title"`
	Description string  `toml:"description"`
	Year        int     `toml:"year"`
	Genre       string  `toml:"genre"`
	Duration    string  `toml:"duration"`
	Rating      float64 `toml:"rating"`
	AgeRating   string  `toml:"age_rating"`
	PosterURL   string  `toml:"poster_url"`
	BannerURL   string  `toml:"banner_url"`
}

func (m seedMovie) form() service.MovieForm {
	return service.MovieForm{
		Title:       m.Title,
		Description: m.Description,
		Year:        m.Year,
		Genre:       m.Genre,
		Duration:    m.Duration,
		Rating:      m.Rating,
		AgeRating:   m.AgeRating,
		PosterURL:   m.PosterURL,
		BannerURL:   m.BannerURL,
	}
}

func loadSeedFile(path string) (*seedFile, error) {
	var f seedFile
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse %s: unknown key %s", path, undecoded[0])
	}
	return &f, nil
}

// seedCatalog creates every movie in f. With replace set, the existing
// catalog is deleted first.
func seedCatalog(ctx context.Context, catalog *service.CatalogService, f *seedFile, replace bool) (int, error) {
	if replace {
		if _, err := catalog.DeleteAll(ctx); err != nil {
			return 0, err
		}
	}

	created := 0
	for i, m := range f.Movies {
		if _, err := catalog.Create(ctx, m.form()); err != nil {
			return created, fmt.Errorf("movie %d (%q): %w", i+1, m.Title, err)
		}
		created++
	}
	return created, nil
}

func (r *runner) seed(ctx context.Context, cmd *cli.Command) error {
	f, err := loadSeedFile(cmd.String("file"))
	if err != nil {
		return err
	}

	p, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	created, err := seedCatalog(ctx, p.catalog, f, cmd.Bool("replace"))
	r.printf("Created %d of %d movies", created, len(f.Movies))
	if err != nil || !cmd.Bool("watch") {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := cmd.String("file")
	r.printf("Watching %s; press Ctrl-C to stop", path)
	return watchFile(ctx, path, seedDebounce, func() { r.reseed(ctx, p, path) })
}

// reseed replaces the catalog with the file's current contents. Errors are
// reported and watching continues.
func (r *runner) reseed(ctx context.Context, p *project, path string) {
	f, err := loadSeedFile(path)
	if err != nil {
		r.printf("error: %v", err)
		return
	}
	created, err := seedCatalog(ctx, p.catalog, f, true)
	r.printf("Reloaded: created %d of %d movies", created, len(f.Movies))
	if err != nil {
		r.printf("error: %v", err)
	}
}

func seedCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load movies from a TOML file into the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the catalog TOML file",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "replace",
				Usage: "Delete the existing catalog first",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep running and replace the catalog whenever the file changes",
			},
		},
		Action: r.seed,
	}
}
