package device

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Type is the closed set of supported device platforms. Each variant knows
// its default port, its transport and its failover partner, so nothing else
// in the program has to sniff the type string.
type Type string

const (
	CiscoIOS       Type = "cisco_ios"
	CiscoIOSTelnet Type = "cisco_ios_telnet"
	CiscoNXOS      Type = "cisco_nxos"
)

// ParseType maps a raw device_type value from the inventory to a Type.
// The set is limited to platforms the ssh library has drivers for.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case CiscoIOS, CiscoIOSTelnet, CiscoNXOS:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown device type %q", s)
}

// Telnet reports whether the type connects over telnet instead of ssh.
func (t Type) Telnet() bool {
	return t == CiscoIOSTelnet
}

// DefaultPort is used when the inventory row leaves the port empty.
func (t Type) DefaultPort() int {
	if t.Telnet() {
		return 23
	}
	return 22
}

// Driver returns the netrasp driver name for ssh types, empty for telnet.
func (t Type) Driver() string {
	switch t {
	case CiscoIOS:
		return "ios"
	case CiscoNXOS:
		return "nxos"
	}
	return ""
}

// Failover returns the paired alternate protocol for the type, if any.
// Only IOS over ssh and IOS over telnet are paired with each other.
func (t Type) Failover() (Type, bool) {
	switch t {
	case CiscoIOS:
		return CiscoIOSTelnet, true
	case CiscoIOSTelnet:
		return CiscoIOS, true
	}
	return "", false
}

// Flag is the per-attempt result class of a device.
type Flag string

const (
	FlagInit  Flag = "INIT"
	FlagPass  Flag = "PASS"
	FlagError Flag = "ERROR"
)

// Outcome reasons. Failover attempts concatenate reasons as
// "latest&previous" so the operator sees both attempts.
const (
	ReasonInitialized    = "INITIALIZED"
	ReasonAdministered   = "ADMINISTERED"
	ReasonAuthentication = "Authentication"
	ReasonTimeout        = "Timeout"
	ReasonRefused        = "Refused"
	ReasonProtocol       = "Protocol"
	ReasonValue          = "Value"
	ReasonManualRequired = "ManualRequired"
	ReasonMissingInput   = "MissingInput"
)

// CommandResult is one command sent to the device and what came back.
type CommandResult struct {
	Command string `json:"in"`
	Output  string `json:"out"`
}

// Outcome is the recorded result of a device's latest attempt. It is
// overwritten on every retry/failover attempt; the final value after all
// passes is what the report sees.
type Outcome struct {
	Flag           Flag            `json:"flag"`
	Reason         string          `json:"reason"`
	CommandResults []CommandResult `json:"output,omitempty"`
	// Retries counts transient command retries during a show run.
	Retries int `json:"retries,omitempty"`
}

// Mode selects execution behavior for a whole session.
type Mode string

const (
	ModeConfigure  Mode = "CONFIGURE"
	ModeShow       Mode = "SHOW"
	ModeRenderOnly Mode = "RENDER"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeConfigure, ModeShow, ModeRenderOnly:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q, want CONFIGURE, SHOW or RENDER", s)
}

// Credentials are the session-level fallback credentials applied to devices
// whose inventory row leaves the fields empty.
type Credentials struct {
	Username string
	Password string
	Secret   string
}

// Device describes one entry of the fleet: identity, connection parameters
// (Type and Port are rewritten by a protocol failover), the rendered payload
// and the mutable runtime state.
type Device struct {
	ID       string `validate:"required"`
	Host     string `validate:"required"`
	Type     Type   `validate:"required"`
	Port     int
	Username string
	Password string
	Secret   string

	// Input is the already-rendered command text. It must be assigned
	// before the device is ever administered.
	Input string

	Attempts int
	Outcome  Outcome
}

var validate = validator.New()

// Spec carries the raw per-device values from an inventory row.
type Spec struct {
	ID       string
	Host     string
	Type     string
	Port     string
	Username string
	Password string
	Secret   string
}

// New builds a Device from an inventory row, applying default credentials
// and per-type default ports. The id falls back to the host.
func New(spec Spec, defaults Credentials) (*Device, error) {
	t, err := ParseType(spec.Type)
	if err != nil {
		return nil, err
	}
	port := t.DefaultPort()
	if spec.Port != "" {
		port, err = strconv.Atoi(spec.Port)
		if err != nil {
			return nil, fmt.Errorf("device %q: bad port %q", spec.Host, spec.Port)
		}
	}
	// inventories written for ssh often keep port 22 on telnet rows
	if t.Telnet() && port == 22 {
		port = 23
	}
	d := &Device{
		ID:       spec.ID,
		Host:     spec.Host,
		Type:     t,
		Port:     port,
		Username: spec.Username,
		Password: spec.Password,
		Secret:   spec.Secret,
		Outcome:  Outcome{Flag: FlagInit, Reason: ReasonInitialized},
	}
	if d.ID == "" {
		d.ID = d.Host
	}
	if d.Username == "" {
		d.Username = defaults.Username
	}
	if d.Password == "" {
		d.Password = defaults.Password
	}
	if d.Secret == "" {
		d.Secret = defaults.Secret
	}
	if err := validate.Struct(d); err != nil {
		return nil, fmt.Errorf("device %q: %w", d.Host, err)
	}
	return d, nil
}

// Passed reports whether the latest attempt administered the device.
func (d *Device) Passed() bool {
	return d.Outcome.Flag == FlagPass
}
