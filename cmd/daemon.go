package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sumwatshade/tidevalve/cmd/control"
	"github.com/sumwatshade/tidevalve/cmd/logging"
	"github.com/sumwatshade/tidevalve/cmd/settings"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the control loop headless with an HTTP API",
	Long: `Runs the control loop without a terminal UI. Status, events and
Prometheus metrics are served over HTTP and operator actions are accepted as
POST /actions/{open|close|set-max|set-min|fetch}.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().String("addr", "", "HTTP listen address (default from http.addr)")
	cobra.CheckErr(viper.BindPFlag("http.addr", daemonCmd.Flags().Lookup("addr")))
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	s, err := settings.Load(viper.GetViper())
	if err != nil {
		return err
	}
	s.Log.Stderr = true
	log, out, err := logging.New(s.Log)
	if err != nil {
		return err
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, s, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	actions := make(chan control.Action, 8)
	router := newRouter(&api{
		latest:  rt.latest,
		events:  rt.events,
		metrics: rt.metrics.Handler(),
		actions: actions,
		log:     log.With("component", "api"),
	})
	srv := &http.Server{
		Addr:              s.HTTP.Addr,
		Handler:           handlers.RecoveryHandler()(handlers.LoggingHandler(out, router)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http api listening", "addr", s.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	loopErr := runLoop(ctx, rt.loop, actions, errCh, log)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "err", err)
	}
	return loopErr
}

// runLoop ticks the control loop at its sample interval until ctx is done.
// Queued actions are applied at the top of each tick. Once halted the loop
// stops ticking but the process keeps serving status until signalled.
func runLoop(ctx context.Context, loop *control.Loop, actions <-chan control.Action, serveErr <-chan error, log *slog.Logger) error {
	ticker := time.NewTicker(loop.SampleInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case err, ok := <-serveErr:
			if ok && err != nil {
				return err
			}
			serveErr = nil
		case now := <-ticker.C:
		drain:
			for {
				select {
				case a := <-actions:
					if err := loop.Dispatch(ctx, now, a); err != nil {
						log.Warn("action failed", "action", a.String(), "err", err)
					}
				default:
					break drain
				}
			}
			if loop.Halted() {
				log.Info("control halted, waiting for shutdown", "mode", loop.State().Mode.String())
				ticker.Stop()
				select {
				case <-ctx.Done():
					return nil
				case err := <-serveErr:
					return err
				}
			}
			loop.FetchIfDue(ctx, now)
			if err := loop.Tick(ctx, now); err != nil && !errors.Is(err, control.ErrHalted) {
				log.Error("tick failed", "err", err)
			}
		}
	}
}
