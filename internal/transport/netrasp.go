package transport

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bondar-aleksandr/netrasp/pkg/netrasp"
)

// dialSSH connects through netrasp using the driver of the device type.
// Devices with outdated ssh ciphers get one more dial with the legacy
// key exchange/cipher from the client config.
func (d *Dialer) dialSSH(ctx context.Context, p Params) (Conn, error) {
	conn, err := d.newPlatform(p, false)
	if err != nil {
		return nil, &ConnectError{Kind: KindValue, Err: err}
	}
	err = conn.Dial(ctx)
	if err != nil && strings.Contains(err.Error(), "no common algorithm") && d.LegacyKeyExchange != "" {
		conn, err = d.newPlatform(p, true)
		if err != nil {
			return nil, &ConnectError{Kind: KindValue, Err: err}
		}
		err = conn.Dial(ctx)
	}
	if err != nil {
		return nil, Classify(err)
	}
	return &sshConn{device: conn}, nil
}

func (d *Dialer) newPlatform(p Params, legacy bool) (netrasp.Platform, error) {
	opts := []netrasp.ConfigOpt{
		netrasp.WithUsernamePassword(p.Username, p.Password),
		netrasp.WithDriver(p.Type.Driver()),
		netrasp.WithInsecureIgnoreHostKey(),
		netrasp.WithDialTimeout(time.Duration(d.Timeout) * time.Second),
		netrasp.WithSSHPort(p.Port),
	}
	if legacy {
		opts = append(opts,
			netrasp.WithSSHKeyExchange(d.LegacyKeyExchange),
			netrasp.WithSSHCipher(d.LegacyAlgorithm),
		)
	}
	return netrasp.New(p.Host, opts...)
}

// cliPlatform is the part of netrasp.Platform a dialed session uses.
type cliPlatform interface {
	Configure(ctx context.Context, commands []string) (netrasp.ConfigResult, error)
	Run(ctx context.Context, command string) (string, error)
	Close(ctx context.Context) error
}

type sshConn struct {
	device cliPlatform
}

func (c *sshConn) SendConfigSet(ctx context.Context, text string) (string, error) {
	res, err := c.device.Configure(ctx, splitCommands(text))
	out := joinResult(res)
	if err != nil {
		return out, err
	}
	// netrasp has no rejection sentinel: the transaction "succeeds" while
	// the device refuses individual lines in the output
	if line, found := rejectionLine(out); found {
		return out, &RejectionError{Line: line}
	}
	return out, nil
}

func (c *sshConn) SendCommand(ctx context.Context, cmd string) (string, error) {
	out, err := c.device.Run(ctx, cmd)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return out, err
		}
		return out, &IOError{Err: err}
	}
	return out, nil
}

func (c *sshConn) Close(ctx context.Context) error {
	return c.device.Close(ctx)
}

// RejectionError carries the device output line that refused a config
// command. It unwraps to ErrCommandRejected.
type RejectionError struct {
	Line string
}

func (e *RejectionError) Error() string {
	return "device rejected config command: " + e.Line
}

func (e *RejectionError) Unwrap() error { return ErrCommandRejected }

// rejectionLine looks for an error marker in CLI output. Cisco platforms
// prefix refusals with "%" or "Command rejected:".
func rejectionLine(output string) (string, bool) {
	for _, row := range strings.Split(output, "\n") {
		if strings.HasPrefix(row, "%") || strings.HasPrefix(row, "Command rejected:") {
			return row, true
		}
	}
	return "", false
}

func splitCommands(text string) []string {
	var cmds []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmds = append(cmds, line)
	}
	return cmds
}

func joinResult(res netrasp.ConfigResult) string {
	var b strings.Builder
	for _, r := range res.ConfigCommands {
		if r.Output == "" {
			continue
		}
		b.WriteString(r.Output)
		if !strings.HasSuffix(r.Output, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}
