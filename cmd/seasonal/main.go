package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"github.com/westtrac/parts-insights/internal/config"
	"github.com/westtrac/parts-insights/internal/domain"
	"github.com/westtrac/parts-insights/internal/export"
	"github.com/westtrac/parts-insights/internal/repository/postgres"
	"github.com/westtrac/parts-insights/internal/seasonal"
	"github.com/westtrac/parts-insights/internal/service"
	"github.com/westtrac/parts-insights/internal/usage"
	"github.com/westtrac/parts-insights/pkg/logger"
)

type ctxKey string

const dbKey ctxKey = "db"

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "csv",
			Usage: "Usage CSV file (part_number, category, date, quantity)",
		},
		&cli.StringFlag{
			Name:  "csv-delimiter",
			Usage: "CSV field delimiter",
			Value: ",",
		},
		&cli.StringFlag{
			Name:    "db-url",
			Usage:   "Database connection string, used when --csv is not set",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{Name: "from", Usage: "Only usage on or after this date"},
		&cli.StringFlag{Name: "to", Usage: "Only usage before this date"},
		&cli.StringSliceFlag{Name: "client", Usage: "Only usage for these clients"},
		&cli.StringSliceFlag{Name: "category", Usage: "Only usage in these categories"},
		&cli.BoolFlag{Name: "exclude-zero-invoices", Usage: "Skip orders that were invoiced at zero"},
		&cli.StringFlag{
			Name:    "locale",
			Usage:   "Language of advice texts (nl or en)",
			Value:   "nl",
			EnvVars: []string{"SEASONAL_LOCALE"},
		},
		&cli.BoolFlag{
			Name:    "renormalize",
			Usage:   "Redistribute the weight of missing levels in combined advice",
			EnvVars: []string{"SEASONAL_RENORMALIZE_MISSING_LEVELS"},
		},
		&cli.IntFlag{
			Name:    "max-records",
			Usage:   "Refuse inputs with more usage records than this (0 disables)",
			Value:   2_000_000,
			EnvVars: []string{"SEASONAL_MAX_RECORDS"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "Entities computed concurrently per level",
			Value:   4,
			EnvVars: []string{"SEASONAL_WORKERS"},
		},
	}
}

func openDB(c *cli.Context) error {
	if c.String("csv") != "" || c.String("db-url") == "" {
		return nil
	}

	db, err := sqlx.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, postgres.Wrap(db, 4))
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func main() {
	_ = godotenv.Load()
	logger.Configure(os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("seasonal command failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "seasonal",
		Usage: "Seasonal usage patterns and stock advice for parts",
		Commands: []*cli.Command{
			{
				Name:  "analyze",
				Usage: "Compute seasonal patterns at part, category and global level",
				Flags: append(sourceFlags(),
					&cli.StringFlag{
						Name:  "level",
						Usage: "Level to chart (part, category or global)",
						Value: "global",
					},
					&cli.StringFlag{
						Name:  "entity",
						Usage: "Entity to chart; defaults to GLOBAL",
						Value: domain.GlobalEntityID,
					},
					&cli.BoolFlag{Name: "chart", Usage: "Plot the seasonal index of --entity"},
				),
				Before: openDB,
				After:  closeDB,
				Action: runAnalyze,
			},
			{
				Name:  "recommend",
				Usage: "Print weighted stock advice for a part",
				Flags: append(sourceFlags(),
					&cli.StringFlag{Name: "part", Usage: "Part number", Required: true},
				),
				Before: openDB,
				After:  closeDB,
				Action: runRecommend,
			},
			{
				Name:  "export",
				Usage: "Write the seasonal patterns to an xlsx workbook",
				Flags: append(sourceFlags(),
					&cli.StringFlag{Name: "out", Usage: "Output file; defaults to a timestamped name"},
					&cli.BoolFlag{Name: "upload", Usage: "Upload the workbook to the configured object storage"},
				),
				Before: openDB,
				After:  closeDB,
				Action: runExport,
			},
			exportsCommand(),
		},
	}
}

// analyze loads usage from --csv or the database and runs the analysis
// through a service so recommendations see the same result.
func analyze(c *cli.Context) (*service.SeasonalService, *domain.SeasonalAnalysis, error) {
	cfg := config.SeasonalConfig{
		Locale:                   strings.ToLower(c.String("locale")),
		RenormalizeMissingLevels: c.Bool("renormalize"),
		MaxRecords:               c.Int("max-records"),
		Workers:                  c.Int("workers"),
	}

	if path := c.String("csv"); path != "" {
		loader := usage.NewLoader()
		if d := c.String("csv-delimiter"); d != "" {
			loader = loader.WithComma([]rune(d)[0])
		}
		records, err := loader.LoadFile(path)
		if err != nil {
			return nil, nil, err
		}
		filter, err := filterFromFlags(c)
		if err != nil {
			return nil, nil, err
		}
		if records, err = usage.FilterRecords(records, filter); err != nil {
			return nil, nil, err
		}

		svc, err := service.NewSeasonalService(nil, nil, cfg)
		if err != nil {
			return nil, nil, err
		}
		analysis, err := svc.AnalyzeRecords(records)
		return svc, analysis, err
	}

	db, ok := c.Context.Value(dbKey).(*postgres.DB)
	if !ok {
		return nil, nil, fmt.Errorf("either --csv or --db-url is required")
	}

	filter, err := filterFromFlags(c)
	if err != nil {
		return nil, nil, err
	}

	svc, err := service.NewSeasonalService(postgres.NewUsageRepository(db), nil, cfg)
	if err != nil {
		return nil, nil, err
	}
	analysis, err := svc.Analyze(c.Context, filter)
	return svc, analysis, err
}

func filterFromFlags(c *cli.Context) (domain.UsageFilter, error) {
	filter := domain.UsageFilter{
		Clients:             c.StringSlice("client"),
		Categories:          c.StringSlice("category"),
		ExcludeZeroInvoices: c.Bool("exclude-zero-invoices"),
	}
	if raw := c.String("from"); raw != "" {
		from, err := seasonal.ParseDate(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid --from: %w", err)
		}
		filter.From = &from
	}
	if raw := c.String("to"); raw != "" {
		to, err := seasonal.ParseDate(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid --to: %w", err)
		}
		filter.To = &to
	}
	return filter, nil
}

func runAnalyze(c *cli.Context) error {
	svc, analysis, err := analyze(c)
	if err != nil {
		return err
	}

	out := c.App.Writer
	writeAnalysisSummary(out, analysis)

	if !c.Bool("chart") {
		return nil
	}

	level, ok := domain.ParseLevel(c.String("level"))
	if !ok {
		return fmt.Errorf("unknown level %q", c.String("level"))
	}
	pattern, ok := analysis.Levels[level].Patterns[c.String("entity")]
	if !ok {
		return fmt.Errorf("no %s pattern for %q", level, c.String("entity"))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderIndexChart(pattern, svc.Locale()))
	return nil
}

func runRecommend(c *cli.Context) error {
	svc, _, err := analyze(c)
	if err != nil {
		return err
	}

	combined := svc.RecommendCombined(c.Context, c.String("part"))
	writeCombined(c.App.Writer, combined, svc.Locale())
	return nil
}

func runExport(c *cli.Context) error {
	svc, analysis, err := analyze(c)
	if err != nil {
		return err
	}

	name := c.String("out")
	if name == "" {
		name = export.FileName(time.Now())
	}

	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if err := export.WritePatternsWorkbook(f, analysis, svc.Locale()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info().Str("file", name).Msg("seasonal workbook written")

	if !c.Bool("upload") {
		return nil
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	key := export.FileName(analysis.GeneratedAt)
	if err := store.UploadObject(c.Context, key, data); err != nil {
		return err
	}
	log.Info().Str("key", key).Msg("seasonal workbook uploaded")
	return nil
}
