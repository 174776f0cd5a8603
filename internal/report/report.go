package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
)

// bannerWidth is the total width of the section break lines in device logs.
const bannerWidth = 86

// Record is the machine-readable final outcome of one device.
type Record struct {
	ID       string                 `json:"id"`
	Host     string                 `json:"host"`
	Flag     device.Flag            `json:"flag"`
	Reason   string                 `json:"reason"`
	Attempts int                    `json:"attempts"`
	Output   []device.CommandResult `json:"output,omitempty"`
}

// Snapshot serializes the final outcome of every device in input order.
func Snapshot(devices []*device.Device) ([]byte, error) {
	records := make([]Record, 0, len(devices))
	for _, d := range devices {
		records = append(records, Record{
			ID:       d.ID,
			Host:     d.Host,
			Flag:     d.Outcome.Flag,
			Reason:   d.Outcome.Reason,
			Attempts: d.Attempts,
			Output:   d.Outcome.CommandResults,
		})
	}
	return json.MarshalIndent(records, "", "  ")
}

// DeviceLog renders the human-readable record of one device: identity
// banner, flag/reason banner, then each command with its output.
func DeviceLog(d *device.Device) string {
	var b strings.Builder
	b.WriteString(banner('#', d.ID))
	b.WriteString(banner('@', fmt.Sprintf("%s: %s", d.Outcome.Flag, d.Outcome.Reason)))
	for _, r := range d.Outcome.CommandResults {
		b.WriteString(banner('=', r.Command))
		b.WriteString(r.Output)
		if !strings.HasSuffix(r.Output, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func banner(ch byte, info string) string {
	info = strings.ToUpper(strings.TrimSpace(info))
	// multi-line commands collapse to their first line in the banner
	if i := strings.IndexByte(info, '\n'); i >= 0 {
		info = info[:i] + " ..."
	}
	pad := bannerWidth - len(info)
	if pad < 2 {
		pad = 2
	}
	side := strings.Repeat(string(ch), pad/2)
	return fmt.Sprintf("\n%s %s %s\n", side, info, side)
}

// WriteSessionLog writes every device log in input order.
func WriteSessionLog(w io.Writer, devices []*device.Device) error {
	for _, d := range devices {
		if _, err := io.WriteString(w, DeviceLog(d)); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary renders the session summary table in original device input
// order, regardless of completion order.
func WriteSummary(w io.Writer, devices []*device.Device) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Host", "Type", "Flag", "Reason"})
	for _, d := range devices {
		table.Append([]string{d.ID, d.Host, string(d.Type), string(d.Outcome.Flag), d.Outcome.Reason})
	}
	table.SetFooter([]string{"", "", "", "", time.Now().Format(time.RFC822)})
	table.Render()
}

// Summary returns the rendered summary table as a string.
func Summary(devices []*device.Device) string {
	var b strings.Builder
	WriteSummary(&b, devices)
	return b.String()
}

// WriteFiles emits the session artifacts into dir: a per-device log, the
// combined session log, the summary table and the json snapshot.
func WriteFiles(dir, sessionID string, devices []*device.Device) error {
	for _, d := range devices {
		path := filepath.Join(dir, d.ID+".log")
		if err := os.WriteFile(path, []byte(DeviceLog(d)), 0644); err != nil {
			return fmt.Errorf("device log %q: %w", path, err)
		}
	}
	sessionLog := &strings.Builder{}
	if err := WriteSessionLog(sessionLog, devices); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, sessionID+".log"), []byte(sessionLog.String()), 0644); err != nil {
		return fmt.Errorf("session log: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, sessionID+".summary.log"), []byte(Summary(devices)), 0644); err != nil {
		return fmt.Errorf("session summary: %w", err)
	}
	snapshot, err := Snapshot(devices)
	if err != nil {
		return fmt.Errorf("session snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, sessionID+".json"), snapshot, 0644); err != nil {
		return fmt.Errorf("session snapshot: %w", err)
	}
	return nil
}
