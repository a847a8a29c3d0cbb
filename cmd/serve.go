package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"backoffice.GO/api/server"
	"backoffice.GO/cron"
)

var serveWithCron bool

var bannerFonts = []string{"banner", "big", "block", "slant", "standard", "small", "shadow", "speed", "doom", "larry3d", "puffy", "rectangles"}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (REST under /api, GraphQL at /api/graphql)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if serveWithCron {
			s := cron.NewScheduler(a.logger.Named("cron"), jobTimeout)
			if err := cron.RegisterDefaults(s, a.deps.Reservations, a.deps.Reports, a.logger.Named("cron")); err != nil {
				return err
			}
			c, err := s.Start(ctx)
			if err != nil {
				return err
			}
			defer func() { <-c.Stop().Done() }()
		}

		e := server.New(a.deps)
		fig := figure.NewFigure(a.cfg.AppName, bannerFonts[rand.Intn(len(bannerFonts))], true)
		fig.Print()
		fmt.Printf("API at http://localhost:%s/api  Playground at http://localhost:%s/playground\n", a.cfg.Port, a.cfg.Port)

		errc := make(chan error, 1)
		go func() { errc <- e.Start(":" + a.cfg.Port) }()
		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("shutdown", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithCron, "with-cron", false, "Also run the cron scheduler in this process")
	rootCmd.AddCommand(serveCmd)
}
