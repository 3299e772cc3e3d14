package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adapthttp "photoshare/internal/adapter/http"
	"photoshare/internal/app"
	"photoshare/internal/config"
	"photoshare/internal/job"
	"photoshare/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "2.0.0"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "photoshare",
		Short:         "Photo sharing API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), configPath)
		},
	}

	var admin app.AdminInput
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Create the admin account or reset its password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmin(cmd.Context(), configPath, admin)
		},
	}
	adminCmd.Flags().StringVar(&admin.LoginName, "login", "admin", "admin login name")
	adminCmd.Flags().StringVar(&admin.Password, "password", "", "admin password")
	adminCmd.Flags().StringVar(&admin.FirstName, "first-name", "Admin", "admin first name")
	adminCmd.Flags().StringVar(&admin.LastName, "last-name", "User", "admin last name")
	_ = adminCmd.MarkFlagRequired("password")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, adminCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "photoshare:", err)
		os.Exit(1)
	}
}

func setup(configPath string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func runServe(ctx context.Context, configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.Storage == "postgres" {
		if err := st.pg.Migrate(ctx); err != nil {
			return err
		}
	}

	userSvc := app.NewUserService(st.users)
	authSvc := app.NewAuthService(st.users, st.sessions).WithTTL(cfg.SessionTTL)
	photoSvc := app.NewPhotoService(st.photos, st.users, st.blobs)
	statsSvc := app.NewStatsService(st.users, st.photos)

	srv := adapthttp.New(userSvc, authSvc, photoSvc, statsSvc, log, adapthttp.Options{
		AllowedOrigin:  cfg.AllowedOrigin,
		CookieSecure:   cfg.CookieSecure,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Version:        version,
	})
	if cfg.OIDCEnabled() {
		oidcCfg, err := adapthttp.NewOIDCConfig(ctx, cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL)
		if err != nil {
			return err
		}
		srv.WithOIDC(oidcCfg)
	}

	sched, err := job.Schedule(cfg.SweepSchedule, authSvc, log.WithField("job", "session-sweep"))
	if err != nil {
		return fmt.Errorf("sweep schedule: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":     cfg.Addr,
			"storage":  cfg.Storage,
			"sessions": cfg.SessionBackend(),
			"blobs":    cfg.BlobStore,
		}).Info("listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func runMigrate(ctx context.Context, configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	if cfg.Storage != "postgres" {
		return fmt.Errorf("migrate requires postgres storage, got %q", cfg.Storage)
	}

	pg, err := openPostgres(cfg)
	if err != nil {
		return err
	}
	defer pg.Close() //nolint:errcheck

	if err := pg.Migrate(ctx); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

func runAdmin(ctx context.Context, configPath string, in app.AdminInput) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	if cfg.Storage != "postgres" {
		return fmt.Errorf("admin requires postgres storage, got %q", cfg.Storage)
	}

	pg, err := openPostgres(cfg)
	if err != nil {
		return err
	}
	defer pg.Close() //nolint:errcheck

	if err := pg.Migrate(ctx); err != nil {
		return err
	}

	created, err := app.NewUserService(pg).EnsureAdmin(ctx, in)
	if err != nil {
		return err
	}
	entry := log.WithField("login_name", in.LoginName)
	if created {
		entry.Info("admin account created")
	} else {
		entry.Info("admin password reset")
	}
	return nil
}
