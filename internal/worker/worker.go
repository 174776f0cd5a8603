package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/transport"
)

// Recorder receives every completed attempt in completion order. The session
// run log implements it behind a lock, batches append concurrently.
type Recorder interface {
	Record(id, host string, attempt int, o device.Outcome)
}

// Runner drives a single device through the connect/execute/failover state
// machine. One Runner is shared by all batches of a session.
type Runner struct {
	Connector transport.Connector
	Logger    *zap.SugaredLogger
	Recorder  Recorder

	// RetryInterval paces transient command retries during show runs.
	// Zero means one second.
	RetryInterval time.Duration
}

// Run administers one device in the given mode. The device outcome is
// rewritten on every attempt; the returned outcome is the final one after
// an eventual protocol failover.
//
// Failover policy: a failed attempt is retried once on the paired alternate
// protocol, unless the failure was a timeout (the alternate is unlikely to
// be reachable either), a rejected change set (operator action required) or
// a missing input (programming error). The retried outcome keeps both
// reasons as "latest&previous".
func (r *Runner) Run(ctx context.Context, d *device.Device, mode device.Mode) device.Outcome {
	if d.Input == "" {
		d.Outcome = device.Outcome{Flag: device.FlagError, Reason: device.ReasonMissingInput}
		r.record(d)
		r.Logger.Errorf("device %q administered before input assignment", d.ID)
		return d.Outcome
	}

	prevReason := ""
	for {
		out := r.attempt(ctx, d, mode)
		d.Attempts++
		if prevReason != "" {
			out.Reason = out.Reason + "&" + prevReason
		}
		d.Outcome = out
		r.record(d)
		r.Logger.Infof("%s @ %s - %s:%s", d.ID, d.Host, out.Flag, out.Reason)

		if !r.shouldFailover(d, out) {
			return out
		}
		alt, _ := d.Type.Failover()
		r.Logger.Warnf("%s -> error occurred on %s, trying %s", d.ID, d.Type, alt)
		prevReason = out.Reason
		d.Type = alt
		d.Port = alt.DefaultPort()
	}
}

func (r *Runner) shouldFailover(d *device.Device, out device.Outcome) bool {
	if out.Flag != device.FlagError || d.Attempts >= 2 {
		return false
	}
	switch out.Reason {
	case device.ReasonTimeout, device.ReasonManualRequired, device.ReasonMissingInput:
		return false
	}
	if _, ok := d.Type.Failover(); !ok {
		return false
	}
	return true
}

// attempt is one pass of the state machine: connect, execute by mode,
// always release the session.
func (r *Runner) attempt(ctx context.Context, d *device.Device, mode device.Mode) device.Outcome {
	r.Logger.Infof("Connecting to device %s...", d.Host)
	conn, err := r.Connector.Connect(ctx, transport.Params{
		Host:     d.Host,
		Type:     d.Type,
		Port:     d.Port,
		Username: d.Username,
		Password: d.Password,
		Secret:   d.Secret,
	})
	if err != nil {
		ce := transport.Classify(err)
		r.Logger.Warnf("unable to connect to device %s: %v", d.Host, err)
		return device.Outcome{Flag: device.FlagError, Reason: ce.Kind.Reason()}
	}
	defer conn.Close(ctx)
	r.Logger.Infof("Connected to device %s successfully", d.Host)

	switch mode {
	case device.ModeConfigure:
		return r.configure(ctx, conn, d)
	default:
		return r.show(ctx, conn, d)
	}
}

// configure pushes the whole rendered input as one transaction.
func (r *Runner) configure(ctx context.Context, conn transport.Conn, d *device.Device) device.Outcome {
	out, err := conn.SendConfigSet(ctx, d.Input)
	results := []device.CommandResult{{Command: d.Input, Output: out}}
	if errors.Is(err, transport.ErrCommandRejected) {
		r.Logger.Errorf("device %s refused the change set, manual intervention required", d.Host)
		return device.Outcome{Flag: device.FlagError, Reason: device.ReasonManualRequired, CommandResults: results}
	}
	if err != nil {
		r.Logger.Errorf("unable to configure device %s: %v", d.Host, err)
		return device.Outcome{Flag: device.FlagError, Reason: device.ReasonProtocol, CommandResults: results}
	}
	return device.Outcome{Flag: device.FlagPass, Reason: device.ReasonAdministered, CommandResults: results}
}

// show runs the input line by line. Transient io errors on a command are
// retried without an attempt cap: the loop is bounded only by the transport
// recovering or the context being cancelled.
func (r *Runner) show(ctx context.Context, conn transport.Conn, d *device.Device) device.Outcome {
	interval := r.RetryInterval
	if interval <= 0 {
		interval = time.Second
	}
	var results []device.CommandResult
	retries := 0
	for _, cmd := range splitLines(d.Input) {
		var out string
		op := func() error {
			var err error
			out, err = conn.SendCommand(ctx, cmd)
			if err == nil {
				return nil
			}
			if transport.Transient(err) {
				retries++
				r.Logger.Warnf("%s - trying again - %q", d.ID, cmd)
				return err
			}
			return backoff.Permanent(err)
		}
		err := backoff.Retry(op, backoff.WithContext(backoff.NewConstantBackOff(interval), ctx))
		if err != nil {
			r.Logger.Errorf("unable to run command %q on device %s: %v", cmd, d.Host, err)
			return device.Outcome{
				Flag:           device.FlagError,
				Reason:         device.ReasonProtocol,
				CommandResults: results,
				Retries:        retries,
			}
		}
		results = append(results, device.CommandResult{Command: cmd, Output: out})
	}
	return device.Outcome{Flag: device.FlagPass, Reason: device.ReasonAdministered, CommandResults: results, Retries: retries}
}

func (r *Runner) record(d *device.Device) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.Record(d.ID, d.Host, d.Attempts, d.Outcome)
}

func splitLines(input string) []string {
	var cmds []string
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cmds = append(cmds, line)
	}
	return cmds
}
