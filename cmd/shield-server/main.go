package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthshield/backoffice/internal/config"
	"github.com/healthshield/backoffice/internal/domain/claims"
	"github.com/healthshield/backoffice/internal/domain/profile"
	"github.com/healthshield/backoffice/internal/domain/underwriting"
	"github.com/healthshield/backoffice/internal/platform/auth"
	"github.com/healthshield/backoffice/internal/platform/blobstore"
	"github.com/healthshield/backoffice/internal/platform/db"
	"github.com/healthshield/backoffice/internal/platform/genai"
	"github.com/healthshield/backoffice/internal/platform/middleware"
	"github.com/healthshield/backoffice/migrations"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "shield-server",
		Short:        "Health insurance back office API server",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(planCmd())
	root.AddCommand(policyCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the back office API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printMigrationStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	})

	return cmd
}

func printMigrationStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage insurance plans",
	}

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate or regenerate the plan for one user",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("user")
			userID, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("--user must be a uuid: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			policy, err := underwriting.LoadPolicy(cfg.PolicyFile)
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := openPoolWith(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := newLogger(cfg.Env, os.Stderr)
			profileSvc := profile.NewService(profile.NewRepoPG(pool), nil, logger)
			svc := underwriting.NewService(profileSvc, underwriting.NewPlanRepoPG(pool), policy, logger)

			plan, _, err := svc.Generate(ctx, userID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		},
	}
	generateCmd.Flags().String("user", "", "User id to generate a plan for")
	_ = generateCmd.MarkFlagRequired("user")
	cmd.AddCommand(generateCmd)

	return cmd
}

func policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect underwriting policy files",
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a policy file, or the built-in policy when --file is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			p, err := underwriting.LoadPolicy(path)
			if err != nil {
				return fmt.Errorf("invalid policy: %w", err)
			}
			source := path
			if source == "" {
				source = "built-in"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %s policy (%d companies, %d benefits, %d exclusions)\n",
				source, len(p.Companies), len(p.Benefits), len(p.Exclusions))
			return nil
		},
	}
	checkCmd.Flags().String("file", "", "Path to a YAML policy file")
	cmd.AddCommand(checkCmd)

	return cmd
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return openPoolWith(ctx, cfg)
}

func openPoolWith(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
}

func newLogger(env string, out io.Writer) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	switch cfg.BlobBackend {
	case "s3":
		return blobstore.NewS3Store(ctx, blobstore.S3Config{
			Bucket:      cfg.S3Bucket,
			Region:      cfg.AWSRegion,
			EndpointURL: cfg.AWSEndpointURL,
		})
	case "memory", "":
		return blobstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.IsDev() {
		return auth.DevAuthMiddleware()
	}
	return auth.JWTMiddleware(auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
		Skipper:    auth.AuthSkipper,
	})
}

// services bundles the domain services the HTTP routes and the CLI share.
type services struct {
	profile      *profile.Service
	underwriting *underwriting.Service
	claims       *claims.Service
	blobs        blobstore.Store
}

func newServices(pool *pgxpool.Pool, ai *genai.Client, blobs blobstore.Store, policy *underwriting.Policy, logger zerolog.Logger) *services {
	profileSvc := profile.NewService(profile.NewRepoPG(pool), ai, logger)
	profileSvc.SetBlobStore(blobs)

	claimsSvc := claims.NewService(claims.NewRepoPG(pool), ai, ai, logger)
	claimsSvc.SetBlobStore(blobs)

	return &services{
		profile:      profileSvc,
		underwriting: underwriting.NewService(profileSvc, underwriting.NewPlanRepoPG(pool), policy, logger),
		claims:       claimsSvc,
		blobs:        blobs,
	}
}

// newRouter builds the echo instance. pool may be nil in tests, which leaves
// /health/db unmounted.
func newRouter(cfg *config.Config, svcs *services, pool *pgxpool.Pool, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.MaxUploadBytes))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(authMiddleware(cfg))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	if pool != nil {
		e.GET("/health/db", db.PoolHealthHandler(pool))
	}

	users := e.Group("/api/v1/users/:id", auth.RequireSelfOrAdmin("id"))
	profile.NewHandler(svcs.profile).RegisterRoutes(users)
	underwriting.NewHandler(svcs.underwriting).RegisterRoutes(users)
	claims.NewHandler(svcs.claims).RegisterRoutes(users)
	blobstore.NewHandler(svcs.blobs, cfg.PresignTTL).RegisterRoutes(users)

	return e
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"), os.Stdout)

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Env,
			Release:     version,
		}); err != nil {
			logger.Warn().Err(err).Msg("sentry init failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	policy, err := underwriting.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load underwriting policy")
	}

	// Database
	ctx := context.Background()
	pool, err := openPoolWith(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open blob store")
	}

	ai := genai.NewClient(genai.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.GenAITimeout,
	}, logger)

	e := newRouter(cfg, newServices(pool, ai, blobs, policy, logger), pool, logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("blob_backend", cfg.BlobBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
