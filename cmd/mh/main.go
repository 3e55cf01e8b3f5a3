package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kixxpy/markethire/internal/config"
	"github.com/kixxpy/markethire/internal/db"
	"github.com/kixxpy/markethire/internal/domain"
	"github.com/kixxpy/markethire/internal/engine"
	"github.com/kixxpy/markethire/internal/migrate"
	"github.com/kixxpy/markethire/internal/repo"
	"github.com/kixxpy/markethire/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "mh",
	Short: "MarketHire CLI",
	Long: `MarketHire connects sellers posting marketplace work with performers.
The CLI manages the workspace: run the API server, apply migrations,
seed the category catalog, create accounts, and inspect data.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MARKETHIRE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(adCmd())
	rootCmd.AddCommand(logCmd())
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default markethire.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			fmt.Println("migrations applied:", db.Path(viper.GetString("workspace")))
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath, configFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			var cfg *config.Config
			var err error
			if configFile != "" {
				cfg, err = config.FromFile(configFile)
			} else {
				cfg, err = loadConfig(workspace)
			}
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if basePath != "" {
				cfg.Server.BasePath = basePath
			}
			secret := os.Getenv("MARKETHIRE_JWT_SECRET")
			if secret == "" {
				secret = cfg.Auth.JWTSecret
			}
			if secret == "" {
				return fmt.Errorf("MARKETHIRE_JWT_SECRET is required for bearer auth")
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: cfg.Server.BasePath,
				Auth: server.AuthConfig{
					JWTSecret:       secret,
					TokenTTLMinutes: cfg.Auth.TokenTTLMinutes,
				},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving MarketHire API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n",
				cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (overrides config)")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (defaults to workspace markethire.yml)")
	return cmd
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage accounts"}
	user.AddCommand(userCreateCmd())
	return user
}

func userCreateCmd() *cobra.Command {
	var email, password, name, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.Register(ctx, engine.RegisterOptions{
					Email:    email,
					Password: password,
					Name:     name,
					Role:     role,
				})
				if err != nil {
					return err
				}
				return printJSON(u)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", "performer", "role: seller|performer|both|admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func catalogCmd() *cobra.Command {
	cat := &cobra.Command{Use: "catalog", Short: "Category and tag catalog"}
	cat.AddCommand(catalogSeedCmd())
	cat.AddCommand(catalogListCmd())
	cat.AddCommand(catalogAddTagCmd())
	return cat
}

func catalogAddTagCmd() *cobra.Command {
	var categoryID, name string
	cmd := &cobra.Command{
		Use:   "add-tag",
		Short: "Add a tag to an existing category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if _, err := r.GetCategory(ctx, categoryID); err != nil {
					return fmt.Errorf("category %s: %w", categoryID, err)
				}
				tag := domain.Tag{ID: uuid.NewString(), CategoryID: categoryID, Name: name}
				if err := r.InsertTag(ctx, tag); err != nil {
					return err
				}
				fmt.Println("created tag", tag.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&categoryID, "category-id", "", "category id")
	cmd.Flags().StringVar(&name, "name", "", "tag name")
	_ = cmd.MarkFlagRequired("category-id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func catalogSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed categories and tags from config",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := loadConfig(workspace)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.SeedCatalog(ctx, cfg.Catalog.Categories); err != nil {
					return err
				}
				fmt.Printf("seeded %d categories\n", len(cfg.Catalog.Categories))
				return nil
			})
		},
	}
}

func catalogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				cats, err := r.ListCategories(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cats)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Slug"})
				for _, c := range cats {
					tw.AppendRow(table.Row{c.ID, c.Name, c.Slug})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Inspect tasks"}
	task.AddCommand(taskListCmd())
	return task
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				tasks, total, err := r.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"tasks": tasks, "total": total})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Moderation", "Owner", "Created"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.ModerationStatus, t.OwnerID, t.CreatedAt})
				}
				tw.Render()
				fmt.Println("total:", total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.CategoryID, "category", "", "category id filter")
	cmd.Flags().StringVar(&f.Marketplace, "marketplace", "", "marketplace filter")
	cmd.Flags().StringVar(&f.OwnerID, "owner", "", "owner id filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter: open|closed")
	cmd.Flags().StringVar(&f.ModerationStatus, "moderation", "", "moderation filter: pending|approved|rejected")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "page size (0 = all)")
	cmd.Flags().IntVar(&f.Page, "page", 1, "page")
	return cmd
}

func adCmd() *cobra.Command {
	ad := &cobra.Command{Use: "ad", Short: "Manage ads"}
	ad.AddCommand(adListCmd())
	ad.AddCommand(adAddCmd())
	ad.AddCommand(adRemoveCmd())
	return ad
}

func adListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all ads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				ads, err := r.ListAllAds(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(ads)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Position", "Active", "Image", "Link"})
				for _, a := range ads {
					tw.AppendRow(table.Row{a.ID, a.Position, a.IsActive, a.ImageURL, a.Link})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func adAddCmd() *cobra.Command {
	var image, link, adminID string
	var position int
	var inactive bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an ad",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.AdCreateOptions{ImageURL: image, Link: link}
				if cmd.Flags().Changed("position") {
					opts.Position = &position
				}
				if inactive {
					active := false
					opts.IsActive = &active
				}
				a, err := e.CreateAd(ctx, adminID, opts)
				if err != nil {
					return err
				}
				return printJSON(a)
			})
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "image url")
	cmd.Flags().StringVar(&link, "link", "", "target link")
	cmd.Flags().IntVar(&position, "position", 0, "display position (default: append)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create as inactive")
	cmd.Flags().StringVar(&adminID, "admin-id", "", "acting admin account id")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("link")
	_ = cmd.MarkFlagRequired("admin-id")
	return cmd
}

func adRemoveCmd() *cobra.Command {
	var adminID string
	cmd := &cobra.Command{
		Use:   "remove <ad-id>",
		Short: "Remove an ad",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteAd(ctx, args[0], adminID); err != nil {
					return err
				}
				fmt.Println("removed", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&adminID, "admin-id", "", "acting admin account id")
	_ = cmd.MarkFlagRequired("admin-id")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func loadConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := loadConfig(workspace)
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, engine.New(conn, cfg))
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}
