package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/skzy2018/ai-kakeibo-app/internal/api"
	"github.com/skzy2018/ai-kakeibo-app/internal/components"
	"github.com/skzy2018/ai-kakeibo-app/internal/config"
	"github.com/skzy2018/ai-kakeibo-app/internal/database"
	appErrors "github.com/skzy2018/ai-kakeibo-app/internal/errors"
	"github.com/skzy2018/ai-kakeibo-app/internal/logger"
	"github.com/skzy2018/ai-kakeibo-app/internal/sample"
	"github.com/skzy2018/ai-kakeibo-app/internal/service"
)

const version = "1.0.0"

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:    "kakeibo",
		Usage:   "Household bookkeeping backend: statement import, ledger API and saved SQL reports",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			initDBCommand(),
			importCommand(),
			csvFilesCommand(),
			transactionsCommand(),
			componentsCommand(),
			execCommand(),
			sampleCommand(),
			resetCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if appErr, ok := appErrors.AsAppError(err); ok && appErr.StatusCode < 500 {
		return 2
	}
	return 1
}

// app bundles the wired services for one command invocation.
type app struct {
	cfg         config.Config
	log         zerolog.Logger
	db          *sqlx.DB
	ledger      *service.LedgerService
	imports     *service.ImportService
	maintenance *service.MaintenanceService
	store       *components.Store
	runner      *components.Runner
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log)
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	db, err := database.OpenAndMigrate(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if cfg.Database.SeedCategories {
		if err := database.SeedDefaults(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed defaults: %w", err)
		}
	}

	store := components.NewStore(cfg.Paths.Components, log.With().Str("component", "sql_components").Logger())
	a := &app{
		cfg:         cfg,
		log:         log,
		db:          db,
		ledger:      &service.LedgerService{DB: db, Log: log},
		maintenance: &service.MaintenanceService{DB: db, Log: log},
		imports: &service.ImportService{
			DB:         db,
			InboundDir: cfg.Paths.Inbound,
			ArchiveDir: cfg.Paths.Archive,
			Log:        log.With().Str("component", "import").Logger(),
		},
		store:  store,
		runner: components.NewRunner(store, db, log),
	}
	return a, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// withApp opens the app for the duration of fn.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API on the first free local port",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "listen on exactly this port instead of searching"},
			&cli.BoolFlag{Name: "direct-output", Usage: "print the chosen port on stdout"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withApp(ctx, func(a *app) error {
				start, attempts := a.cfg.Server.Port, a.cfg.Server.MaxPortAttempts
				if c.IsSet("port") {
					start, attempts = c.Int("port"), 1
				}
				ln, err := api.ListenFreePort(a.cfg.Server.Host, start, attempts)
				if err != nil {
					return err
				}
				if c.Bool("direct-output") {
					fmt.Println(api.Port(ln))
				}

				router := api.NewRouter(&api.Handler{
					Ledger:         a.ledger,
					Imports:        a.imports,
					Maintenance:    a.maintenance,
					Components:     a.store,
					Runner:         a.runner,
					Log:            a.log,
					AllowedOrigins: a.cfg.Server.AllowedOrigins,
					SeedCategories: a.cfg.Database.SeedCategories,
					Version:        version,
				})
				return api.Serve(ctx, ln, router, a.log)
			})
		},
	}
}

func initDBCommand() *cli.Command {
	return &cli.Command{
		Name:  "init-db",
		Usage: "Create the schema and optionally seed default categories",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "seed", Usage: "insert default categories into an empty table"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withApp(ctx, func(a *app) error {
				if err := a.maintenance.Init(ctx, c.Bool("seed") || a.cfg.Database.SeedCategories); err != nil {
					return err
				}
				ver, dirty, err := database.SchemaVersion(a.db)
				if err != nil {
					return err
				}
				fmt.Printf("schema version %d (dirty=%v) at %s\n", ver, dirty, a.cfg.Database.Path)
				return nil
			})
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import statements from the inbound directory",
		ArgsUsage: "<collector_date.csv>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Usage: "import every CSV waiting in the inbound directory"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withApp(ctx, func(a *app) error {
				names := c.Args().Slice()
				if c.Bool("all") {
					files, err := a.imports.ListCSVFiles()
					if err != nil {
						return err
					}
					for _, f := range files {
						names = append(names, f.Name)
					}
				}
				if len(names) == 0 {
					return appErrors.NewValidationError("no files given; pass names or --all")
				}
				var failed []string
				for _, name := range names {
					res, err := a.imports.ImportFile(ctx, name)
					if err != nil {
						fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
						failed = append(failed, name)
						if !errors.Is(err, appErrors.ErrArchive) {
							continue
						}
					}
					fmt.Printf("%s: %d transactions, %d tag links, %d skipped rows (log %d)\n",
						name, res.TransactionsInserted, res.TagsInserted, res.RowsSkipped, res.LogID)
					for _, w := range res.Warnings {
						fmt.Printf("  warning: %s\n", w)
					}
				}
				if len(failed) > 0 {
					return fmt.Errorf("%d of %d imports failed: %s", len(failed), len(names), strings.Join(failed, ", "))
				}
				return nil
			})
		},
	}
}

func csvFilesCommand() *cli.Command {
	return &cli.Command{
		Name:  "csv-files",
		Usage: "List statements waiting in the inbound directory",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withApp(ctx, func(a *app) error {
				files, err := a.imports.ListCSVFiles()
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Printf("%-40s %8d  %s\n", f.Name, f.Size, f.ModifiedAt.Format(time.DateTime))
				}
				return nil
			})
		},
	}
}

func transactionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "transactions",
		Usage: "Print transactions newest first as JSON",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: service.DefaultListLimit},
			&cli.IntFlag{Name: "offset"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withApp(ctx, func(a *app) error {
				txs, err := a.ledger.ListTransactions(ctx, c.Int("limit"), c.Int("offset"))
				if err != nil {
					return err
				}
				return printJSON(txs)
			})
		},
	}
}

func componentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "components",
		Usage: "Manage saved SQL components",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List saved components",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(a *app) error {
						list, err := a.store.List()
						if err != nil {
							return err
						}
						for _, s := range list {
							fmt.Printf("%-30s %s\n", s.Name, s.Description)
						}
						return nil
					})
				},
			},
			{
				Name:      "show",
				Usage:     "Print a component as JSON",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(a *app) error {
						comp, err := a.store.Get(c.Args().First())
						if err != nil {
							return err
						}
						return printJSON(comp)
					})
				},
			},
			{
				Name:      "save",
				Usage:     "Save a component from a SQL file",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true, Usage: "file holding the SQL text"},
					&cli.StringFlag{Name: "description"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(a *app) error {
						raw, err := os.ReadFile(c.String("file"))
						if err != nil {
							return err
						}
						return a.store.Save(components.Component{
							Name:        c.Args().First(),
							SQL:         string(raw),
							Description: c.String("description"),
						})
					})
				},
			},
			{
				Name:      "run",
				Usage:     "Run a component; variables are given as key=value",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "var", Usage: "substitution, e.g. --var cat=3"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					vars, err := parseVars(c.StringSlice("var"))
					if err != nil {
						return err
					}
					return withApp(ctx, func(a *app) error {
						res, err := a.runner.Run(ctx, c.Args().First(), vars)
						if err != nil {
							return err
						}
						return printJSON(res)
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a component",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(a *app) error {
						return a.store.Delete(c.Args().First())
					})
				},
			},
		},
	}
}

func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, appErrors.NewValidationError(fmt.Sprintf("bad --var %q, want key=value", p))
		}
		vars[k] = v
	}
	return vars, nil
}

func execCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "Run ad-hoc SQL and print the result as JSON",
		ArgsUsage: "<sql>",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withApp(ctx, func(a *app) error {
				res, err := a.runner.Execute(ctx, strings.Join(c.Args().Slice(), " "))
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
}

func sampleCommand() *cli.Command {
	return &cli.Command{
		Name:  "sample",
		Usage: "Write a generated statement into the inbound directory",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "rows", Value: 20},
			&cli.Int64Flag{Name: "seed", Value: 1},
			&cli.StringFlag{Name: "collector", Value: "sample"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			now := time.Now()
			rows := sample.Generate(c.Int("rows"), c.Int64("seed"), now)
			name, err := sample.WriteStatement(cfg.Paths.Inbound, c.String("collector"), now.Format("20060102"), sample.Records(rows))
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		},
	}
}

func resetCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Delete all ledger data, keeping the schema",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Usage: "confirm the wipe"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if !c.Bool("yes") {
				return appErrors.NewValidationError("refusing to reset without --yes")
			}
			return withApp(ctx, func(a *app) error {
				return a.maintenance.Reset(ctx)
			})
		},
	}
}
