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

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rovshanmuradov/tokenfarm/internal/app"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/logger"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
	"github.com/rovshanmuradov/tokenfarm/internal/ui"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "farm configuration file",
		Value:   "farm.yaml",
		EnvVars: []string{"TOKENFARM_CONFIG"},
	}
	fromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "address the dashboard acts as; defaults to the owner",
	}
	refreshFlag = &cli.DurationFlag{
		Name:  "refresh",
		Usage: "polling interval",
		Value: 2 * time.Second,
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &cli.App{
		Name:   "farmtui",
		Usage:  "interactive dashboard for a token farm",
		Flags:  []cli.Flag{configFlag, fromFlag, refreshFlag},
		Action: run,
	}
	if err := a.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) (err error) {
	ctx := c.Context
	ring := logger.NewRing(500)
	farm, err := app.Open(ctx, c.String(configFlag.Name), app.Options{
		Quiet:      true,
		ExtraCores: []zapcore.Core{ring.Core(zapcore.InfoLevel)},
	})
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, farm.Close(context.Background()))
	}()
	log := farm.Logger.Logger

	caller := farm.Engine.Owner()
	if v := c.String(fromFlag.Name); v != "" {
		if caller, err = types.ParseAddress(v); err != nil {
			return err
		}
	}

	updates := make(chan tea.Msg, 256)
	sender := ui.NewUpdateSender(updates, log)
	defer sender.Close()
	sub := farm.Bus.Subscribe(events.AnyEvent, sender)
	defer sub.Unsubscribe()

	if addr := farm.Config.Metrics.Listen; addr != "" {
		srv := serveMetrics(addr, farm, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = multierr.Append(err, srv.Shutdown(shutdownCtx))
		}()
	}

	recovery := ui.NewRecoveryHandler(log, func() (tea.Model, []tea.ProgramOption) {
		d := ui.NewDashboard(ctx, farm.Engine, log, ui.Options{
			Caller:   caller,
			Decimals: farm.Config.Token.Decimals,
			Commit:   farm.Commit,
			Ring:     ring,
			Updates:  updates,
			Refresh:  c.Duration(refreshFlag.Name),
		})
		return ui.NewSafeUIWrapper(d, log), []tea.ProgramOption{tea.WithAltScreen()}
	})
	log.Info("Dashboard started", zap.Stringer("caller", caller))
	return recovery.RunWithRecovery(ctx)
}

func serveMetrics(addr string, farm *app.App, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(farm.Engine.Metrics().Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()
	log.Info("Serving metrics", zap.String("addr", addr))
	return srv
}
