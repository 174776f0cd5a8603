package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/app"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/render"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/session"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the template per device without connecting anywhere",
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		a, err := app.NewApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Logger.Sync()

		devices, err := loadFleet(a)
		if err != nil {
			a.Logger.Error(err)
			return err
		}

		// a render-only session never connects, but the fleet still has
		// to pass the same uniqueness validation
		s, err := session.New(session.Config{
			ID:     sessionID(),
			Mode:   device.ModeRenderOnly,
			Logger: a.Logger,
		}, devices)
		if err != nil {
			a.Logger.Error(err)
			return err
		}

		outDir := outputDir(a, "render")
		if err := a.PrepareDirectory(outDir); err != nil {
			return err
		}
		if err := render.SaveInputs(outDir, s.Devices); err != nil {
			a.Logger.Error(err)
			return err
		}
		a.Logger.Infof("Rendered %d device configs to %q. Time taken: %s", len(devices), outDir, time.Since(start))
		return nil
	},
}
