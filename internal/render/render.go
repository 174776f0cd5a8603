package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/inventory"
)

// Expand renders the command template against one variable row. A variable
// referenced by the template but missing from the row is an error, not an
// empty string: a half-rendered config must never reach a device.
func Expand(tmplText string, vars map[string]string) (string, error) {
	tmpl, err := template.New("input").Option("missingkey=error").Parse(tmplText)
	if err != nil {
		return "", fmt.Errorf("template: %w", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("template: %w", err)
	}
	return b.String(), nil
}

// Assign renders the template for every row and assigns the result as the
// device input. Rows and devices correspond by position.
func Assign(tmplText string, rows []inventory.Row, devices []*device.Device) error {
	if len(rows) != len(devices) {
		return fmt.Errorf("template: %d rows for %d devices", len(rows), len(devices))
	}
	for i, d := range devices {
		input, err := Expand(tmplText, rows[i])
		if err != nil {
			return fmt.Errorf("device %q: %w", d.ID, err)
		}
		d.Input = input
	}
	return nil
}

// SaveInputs writes each device's rendered input as <id>.conf. This is the
// whole render-only path: no device is ever connected.
func SaveInputs(dir string, devices []*device.Device) error {
	for _, d := range devices {
		if d.Input == "" {
			return fmt.Errorf("device %q has no input to save", d.ID)
		}
		path := filepath.Join(dir, d.ID+".conf")
		if err := os.WriteFile(path, []byte(d.Input), 0644); err != nil {
			return fmt.Errorf("save %q: %w", path, err)
		}
	}
	return nil
}
