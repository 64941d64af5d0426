package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HansLove/HouzeMaster-front/internal/logging"
	"github.com/HansLove/HouzeMaster-front/internal/web"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API server",
		Long:  "Start an HTTP server exposing the cached listings as a JSON API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default from config, 8080)")

	return cmd
}

func runServe(cmd *cobra.Command, port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Port = port
	}

	logger, err := logging.Setup(cfg.DevMode)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	svc, database, err := openCatalog(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB(database)
	// Runs before closeDB so a warm-up fetch still in flight cannot
	// persist into a closed database.
	defer svc.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the cache so the first request does not wait on the sheet.
	go func() {
		if err := svc.Init(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("warming listing cache", zap.Error(err))
		}
	}()

	srv := web.NewServer(svc, web.Options{AdminToken: cfg.AdminToken, Logger: logger.Named("web")})
	return srv.ListenAndServe(ctx, cfg.Port)
}
