package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/cpctprep/internal/api"
	"github.com/verte-zerg/cpctprep/internal/config"
	"github.com/verte-zerg/cpctprep/internal/logging"
	"github.com/verte-zerg/cpctprep/internal/model"
	"github.com/verte-zerg/cpctprep/internal/store"
	"github.com/verte-zerg/cpctprep/internal/store/mongostore"
)

const shutdownTimeout = 10 * time.Second

// backendStore is what the server and admin commands need from a backend.
type backendStore interface {
	api.Store
	CreateAdmin(ctx context.Context, a model.Admin) (model.Admin, error)
	Close() error
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().String("addr", "", "listen address (overrides config)")
	cmd.Flags().String("backend", "", "storage backend: sqlite or mongo (overrides config)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrideServerConfig(cmd, &fileCfg)
	srvCfg, err := config.LoadServerConfig(fileCfg, config.DefaultDotEnvPath())
	if err != nil {
		return err
	}
	engine, err := fileCfg.Engine()
	if err != nil {
		return err
	}
	registry, err := fileCfg.ExamRegistry()
	if err != nil {
		return err
	}

	if err := logging.Init(srvCfg.LogFile); err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}
	defer func() {
		if cerr := logging.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openBackend(ctx, srvCfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logging.LogError("failed to close store: %v", cerr)
		}
	}()

	srv := api.NewServer(&api.Options{
		Address:      srvCfg.Addr,
		Debug:        srvCfg.Debug,
		Store:        st,
		Exams:        registry,
		Engine:       engine,
		JWTSecret:    []byte(srvCfg.JWTSecret),
		JWTTTL:       srvCfg.JWTTTL,
		SecureCookie: srvCfg.SecureCookie,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.LogEvent("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func overrideServerConfig(cmd *cobra.Command, fileCfg *config.FileConfig) {
	if addr, _ := cmd.Flags().GetString("addr"); cmd.Flags().Changed("addr") {
		fileCfg.Server.Addr = &addr
	}
	if backend, _ := cmd.Flags().GetString("backend"); cmd.Flags().Changed("backend") {
		fileCfg.Server.Backend = &backend
	}
}

func openBackend(ctx context.Context, cfg config.ServerConfig) (backendStore, error) {
	switch cfg.Backend {
	case config.BackendMongo:
		st, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		logging.LogEvent("using mongo backend %s/%s", mongoHosts(cfg.MongoURI), cfg.MongoDB)
		return st, nil
	default:
		path := cfg.DBPath
		if dbPath != config.DefaultDBPath() {
			path = dbPath
		}
		st, err := store.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		logging.LogEvent("using sqlite backend %s", path)
		return st, nil
	}
}

// mongoHosts returns the host list of a connection URI, dropping the
// credentials, path and options.
func mongoHosts(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return "(unparsed uri)"
	}
	return u.Host
}
