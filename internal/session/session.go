package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/transport"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/worker"
)

// defaultMaxConcurrency caps simultaneous outbound connections when the
// caller does not set a limit.
const defaultMaxConcurrency = 3

// ErrInvalidMode is returned when a render-only session is administered.
// Rendering has no connect/execute phase and goes through Render instead.
var ErrInvalidMode = errors.New("a render mode session can not administer")

// SchemaValidationError is fatal to session construction: duplicate ids or
// hosts, or a device row missing required fields.
type SchemaValidationError struct {
	Msg string
	Err error
}

func (e *SchemaValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device table: %s: %v", e.Msg, e.Err)
	}
	return "device table: " + e.Msg
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

// Config wires a session together. Defaults used to live in mutable
// package-level state in an earlier generation of this tool; they are now
// threaded through construction explicitly.
type Config struct {
	ID             string
	Mode           device.Mode
	MaxConcurrency int
	Connector      transport.Connector
	Logger         *zap.SugaredLogger
	RetryInterval  time.Duration
}

// Session owns the fleet for one run: the ordered device list, the
// execution mode, the scheduler limits and the run log.
type Session struct {
	ID             string
	Mode           device.Mode
	Devices        []*device.Device
	MaxConcurrency int

	runner *worker.Runner
	runLog *RunLog
	logger *zap.SugaredLogger

	stopOnce sync.Once
	stop     chan struct{}
}

// New validates the fleet and builds a session. Devices keep their input
// order for the whole run; the summary is reported in that order.
func New(cfg Config, devices []*device.Device) (*Session, error) {
	if len(devices) == 0 {
		return nil, &SchemaValidationError{Msg: "no devices"}
	}
	ids := make(map[string]struct{}, len(devices))
	hosts := make(map[string]struct{}, len(devices))
	for _, d := range devices {
		if _, dup := ids[d.ID]; dup {
			return nil, &SchemaValidationError{Msg: fmt.Sprintf("at least two devices share id %q", d.ID)}
		}
		if _, dup := hosts[d.Host]; dup {
			return nil, &SchemaValidationError{Msg: fmt.Sprintf("at least two devices share host %q", d.Host)}
		}
		ids[d.ID] = struct{}{}
		hosts[d.Host] = struct{}{}
		if cfg.Mode != device.ModeRenderOnly && (d.Username == "" || d.Password == "") {
			return nil, &SchemaValidationError{Msg: fmt.Sprintf("no credentials for device %q", d.ID)}
		}
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	runLog := &RunLog{}
	return &Session{
		ID:             cfg.ID,
		Mode:           cfg.Mode,
		Devices:        devices,
		MaxConcurrency: cfg.MaxConcurrency,
		runLog:         runLog,
		logger:         cfg.Logger,
		stop:           make(chan struct{}),
		runner: &worker.Runner{
			Connector:     cfg.Connector,
			Logger:        cfg.Logger,
			Recorder:      runLog,
			RetryInterval: cfg.RetryInterval,
		},
	}, nil
}

// Log exposes the completion-ordered attempt log.
func (s *Session) Log() *RunLog { return s.runLog }

// Administer runs one scheduling pass over the fleet, skipping devices
// whose id is in exclude. Each batch is owned by one goroutine and worked
// strictly in order; the call blocks until every batch drains. Device
// failures never abort siblings, they end up in the device outcome.
func (s *Session) Administer(ctx context.Context, exclude map[string]struct{}) error {
	if s.Mode == device.ModeRenderOnly {
		return ErrInvalidMode
	}
	var targets []*device.Device
	for _, d := range s.Devices {
		if _, skip := exclude[d.ID]; skip {
			continue
		}
		targets = append(targets, d)
	}
	batches := partition(targets, s.MaxConcurrency)

	var wg sync.WaitGroup
	wg.Add(len(batches))
	for _, batch := range batches {
		go func(batch []*device.Device) {
			defer wg.Done()
			for _, d := range batch {
				s.runner.Run(ctx, d, s.Mode)
			}
		}(batch)
	}
	wg.Wait()
	return nil
}

// partition splits devices into at most max contiguous batches whose sizes
// differ by at most one, preserving input order.
func partition(devices []*device.Device, max int) [][]*device.Device {
	n := len(devices)
	if n == 0 {
		return nil
	}
	count := max
	if n < count {
		count = n
	}
	base := n / count
	extra := n % count
	batches := make([][]*device.Device, 0, count)
	start := 0
	for i := 0; i < count; i++ {
		size := base
		if i < extra {
			size++
		}
		batches = append(batches, devices[start:start+size])
		start += size
	}
	return batches
}
