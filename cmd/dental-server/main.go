package main

import (
	"context"
	crypto_rand "crypto/rand"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/RobertAguilera712/ERPDentalCare/internal/config"
	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/appointment"
	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/billing"
	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/catalog"
	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/identity"
	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/inventory"
	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/treatment"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/auth"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/db"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/middleware"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/notification"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/websocket"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "dental-server",
		Short: "Dental office management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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

	withMigrator := func(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator) error) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.MigrationsDir
		}

		ctx := context.Background()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(ctx, db.NewMigrator(pool, os.DirFS(dir)))
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
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

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	createAdmin := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := identity.NewService(identity.NewUserRepoPG(pool), identity.NewPatientRepoPG(pool),
				identity.NewDentistRepoPG(pool), nil, db.NewTxRunner(pool))
			u, err := svc.CreateAdmin(ctx, identity.Credentials{Email: email, Password: password})
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	createAdmin.Flags().String("email", "", "Administrator email")
	createAdmin.Flags().String("password", "", "Administrator password")
	_ = createAdmin.MarkFlagRequired("email")
	_ = createAdmin.MarkFlagRequired("password")
	cmd.AddCommand(createAdmin)

	return cmd
}

// resolveSigningKey returns JWT_SECRET as the HS256 key, or a random 32-byte
// key when it is empty. The second return value is true when a random key
// was generated; tokens signed with it do not survive a restart.
func resolveSigningKey(secret string) ([]byte, bool, error) {
	if secret != "" {
		return []byte(secret), false, nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("failed to generate random signing key: %w", err)
	}
	return key, true, nil
}

func newPushSender(cfg *config.Config, logger zerolog.Logger) notification.PushSender {
	if cfg.PushEnabled() {
		return notification.NewOneSignalSender(cfg.PushAPIURL, cfg.PushAppID, cfg.PushAPIKey)
	}
	return notification.NewLogSender(logger)
}

// newServer wires every repository, service and handler onto a new echo
// instance. Nothing touches the database until a request arrives.
func newServer(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*echo.Echo, error) {
	key, random, err := resolveSigningKey(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	if random {
		logger.Warn().Msg("JWT_SECRET not set, using a random signing key")
	}
	jwtCfg := auth.JWTConfig{Issuer: cfg.JWTIssuer, SigningKey: key}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	if cfg.BodyLimit > 0 {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.RateLimitConfig{RequestsPerSecond: 20, BurstSize: 40}
	}
	rateLimit := middleware.RateLimit(rateLimitCfg)

	authMW := auth.JWTMiddleware(jwtCfg)
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware(jwtCfg)
	}

	public := e.Group("/api/v1", rateLimit)
	apiV1 := e.Group("/api/v1", rateLimit, authMW)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	tx := db.NewTxRunner(pool)

	// Notifications
	notifier := notification.NewManager(newPushSender(cfg, logger), notification.NewTemplateEngine())
	notification.NewHandler(notifier).RegisterRoutes(apiV1)

	// Catalogs
	catalogSvc := catalog.NewService(catalog.NewRepoPG(pool), catalog.NewAllergyRepoPG(pool))
	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1)

	// Identity
	identitySvc := identity.NewService(identity.NewUserRepoPG(pool), identity.NewPatientRepoPG(pool),
		identity.NewDentistRepoPG(pool), catalogSvc, tx)
	issuer := auth.NewTokenIssuer(key, cfg.JWTIssuer, cfg.JWTTTL)
	identityHandler := identity.NewHandler(identitySvc, identity.NewAuthenticator(identity.NewUserRepoPG(pool), issuer))
	identityHandler.RegisterPublicRoutes(public)
	identityHandler.RegisterRoutes(apiV1)

	// Inventory and services
	inventorySvc := inventory.NewService(inventory.NewSupplyRepoPG(pool), inventory.NewLotRepoPG(pool))
	inventory.NewHandler(inventorySvc).RegisterRoutes(apiV1)

	treatmentSvc := treatment.NewService(treatment.NewServiceRepoPG(pool), inventorySvc, tx)
	treatment.NewHandler(treatmentSvc).RegisterRoutes(apiV1)

	// Sells
	billingSvc := billing.NewService(billing.NewSellRepoPG(pool), tx)
	billing.NewHandler(billingSvc).RegisterRoutes(apiV1)

	// Live events
	hub := websocket.NewHub(logger)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	// Appointments
	apptRepo := appointment.NewRepoPG(pool)
	apptSvc := appointment.NewService(apptRepo, identitySvc, notifier, tx, logger, cfg.ReminderLead)
	apptSvc.SetPublisher(hub)
	finalizer := appointment.NewFinalizer(apptRepo, treatmentSvc, inventorySvc, billingSvc, tx, logger)
	finalizer.SetPublisher(hub)
	appointment.NewHandler(apptSvc, finalizer).RegisterRoutes(apiV1)

	return e, nil
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e, err := newServer(cfg, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
