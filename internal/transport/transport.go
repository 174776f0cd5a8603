package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
)

// Params carry everything needed to reach one device. A failover rewrites
// Type and Port between attempts, the rest never changes.
type Params struct {
	Host     string
	Type     device.Type
	Port     int
	Username string
	Password string
	Secret   string
}

func (p Params) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// Conn is an established remote shell session on a device.
type Conn interface {
	// SendConfigSet pushes the whole rendered input as one configuration
	// transaction and returns the combined device output.
	SendConfigSet(ctx context.Context, text string) (string, error)
	// SendCommand runs a single exec-mode command.
	SendCommand(ctx context.Context, cmd string) (string, error)
	Close(ctx context.Context) error
}

// Connector establishes remote shell sessions. The production implementation
// is Dialer; tests substitute stubs.
type Connector interface {
	Connect(ctx context.Context, p Params) (Conn, error)
}

// Kind classifies a connection failure.
type Kind int

const (
	KindAuthentication Kind = iota
	KindTimeout
	KindRefused
	KindProtocol
	KindValue
)

// Reason maps the kind to the outcome reason recorded on the device.
func (k Kind) Reason() string {
	switch k {
	case KindAuthentication:
		return device.ReasonAuthentication
	case KindTimeout:
		return device.ReasonTimeout
	case KindRefused:
		return device.ReasonRefused
	case KindValue:
		return device.ReasonValue
	}
	return device.ReasonProtocol
}

// ConnectError is a classified connection failure.
type ConnectError struct {
	Kind Kind
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect: %s: %v", e.Kind.Reason(), e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ErrCommandRejected reports that the device refused the change set. The
// administration engine treats it as terminal: operator action is required.
var ErrCommandRejected = errors.New("device rejected the change set")

// IOError is a transient command-level failure. Show runs retry it, anything
// else gives up on the device.
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("transient io error: %v", e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

// Transient reports whether err should be retried during a show run.
func Transient(err error) bool {
	var io *IOError
	return errors.As(err, &io)
}

// Classify wraps a dial failure into a ConnectError. Message matching covers
// the ssh library errors that arrive as plain strings.
func Classify(err error) *ConnectError {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce
	}
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return &ConnectError{Kind: KindTimeout, Err: err}
	case strings.Contains(err.Error(), "unable to authenticate"),
		strings.Contains(err.Error(), "auth"):
		return &ConnectError{Kind: KindAuthentication, Err: err}
	case strings.Contains(err.Error(), "connection refused"):
		return &ConnectError{Kind: KindRefused, Err: err}
	case strings.Contains(err.Error(), "timeout"),
		strings.Contains(err.Error(), "timed out"):
		return &ConnectError{Kind: KindTimeout, Err: err}
	}
	return &ConnectError{Kind: KindProtocol, Err: err}
}

// Dialer is the production Connector: netrasp for ssh platforms, a scripted
// telnet login for telnet platforms.
type Dialer struct {
	Timeout           int64 // dial timeout, seconds
	LegacyKeyExchange string
	LegacyAlgorithm   string
}

func (d *Dialer) Connect(ctx context.Context, p Params) (Conn, error) {
	if p.Type.Telnet() {
		return d.dialTelnet(ctx, p)
	}
	return d.dialSSH(ctx, p)
}
