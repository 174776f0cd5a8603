package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/app"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/report"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/session"
)

var (
	cfgMode   string
	cfgRecure bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Administer the fleet in CONFIGURE or SHOW mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		a, err := app.NewApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Logger.Sync()

		mode, err := device.ParseMode(strings.ToUpper(cfgMode))
		if err != nil {
			return err
		}
		if mode == device.ModeRenderOnly {
			return fmt.Errorf("use the render command for RENDER mode")
		}

		devices, err := loadFleet(a)
		if err != nil {
			a.Logger.Error(err)
			return err
		}

		threads := cfgThreads
		if threads <= 0 {
			threads = a.Config.Session.MaxConcurrency
		}
		s, err := session.New(session.Config{
			ID:             sessionID(),
			Mode:           mode,
			MaxConcurrency: threads,
			Connector:      a.Dialer,
			Logger:         a.Logger,
		}, devices)
		if err != nil {
			a.Logger.Error(err)
			return err
		}

		outDir := outputDir(a, "output")
		if err := a.PrepareDirectory(outDir); err != nil {
			return err
		}

		// graceful shutdown setup: first signal stops between passes,
		// second one aborts in-flight attempts
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			quit := make(chan os.Signal, 2)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			sig := <-quit
			a.Logger.Errorf("Caught signal: %q, finishing current pass...", sig.String())
			s.Stop()
			sig = <-quit
			a.Logger.Errorf("Caught signal: %q, exiting...", sig.String())
			cancel()
		}()

		if cfgRecure {
			err = recureInteractive(ctx, a, s)
		} else {
			err = s.Administer(ctx, nil)
		}
		if err != nil {
			a.Logger.Error(err)
			return err
		}

		a.Logger.Info("Writing session artifacts...")
		if err := report.WriteFiles(outDir, s.ID, s.Devices); err != nil {
			a.Logger.Errorf("Unable to write session artifacts: %q", err)
			return err
		}
		fmt.Println(report.Summary(s.Devices))
		a.Logger.Infof("Finished! Time taken: %s", time.Since(start))
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&cfgMode, "mode", "m", "", "Administration mode: CONFIGURE or SHOW")
	runCmd.Flags().BoolVarP(&cfgRecure, "recure", "r", false, "Repeat passes over failed devices until all pass or stopped")
	_ = runCmd.MarkFlagRequired("mode")
}

// recureInteractive runs the convergence loop in the background while the
// foreground waits for an operator "stop" on stdin.
func recureInteractive(ctx context.Context, a *app.App, s *session.Session) error {
	done := make(chan error, 1)
	go func() {
		done <- s.Recure(ctx, func(p session.Progress) {
			fmt.Printf("RECURSION %d [%d/%d]\n", p.Pass, p.Remaining, p.Total)
		})
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Println("Type 'stop' to finish after the current pass")
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case err := <-done:
			return err
		case line, ok := <-lines:
			if !ok {
				lines = nil // stdin closed, keep recurring until signal
				continue
			}
			if strings.EqualFold(strings.TrimSpace(line), "stop") {
				a.Logger.Info("Stop requested, finishing current pass...")
				s.Stop()
			}
		}
	}
}
