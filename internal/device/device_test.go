package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    device.Type
		wantErr bool
	}{
		{in: "cisco_ios", want: device.CiscoIOS},
		{in: "cisco_ios_telnet", want: device.CiscoIOSTelnet},
		{in: "cisco_nxos", want: device.CiscoNXOS},
		// no driver for junos in the transport, so the type is not accepted
		{in: "juniper_junos", wantErr: true},
		{in: "cisco", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := device.ParseType(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestTypeDefaults(t *testing.T) {
	assert.Equal(t, 22, device.CiscoIOS.DefaultPort())
	assert.Equal(t, 23, device.CiscoIOSTelnet.DefaultPort())
	assert.False(t, device.CiscoIOS.Telnet())
	assert.True(t, device.CiscoIOSTelnet.Telnet())
	assert.Equal(t, "ios", device.CiscoIOS.Driver())
	assert.Equal(t, "", device.CiscoIOSTelnet.Driver())
}

func TestTypeFailoverPairing(t *testing.T) {
	alt, ok := device.CiscoIOS.Failover()
	require.True(t, ok)
	assert.Equal(t, device.CiscoIOSTelnet, alt)

	alt, ok = device.CiscoIOSTelnet.Failover()
	require.True(t, ok)
	assert.Equal(t, device.CiscoIOS, alt)

	_, ok = device.CiscoNXOS.Failover()
	assert.False(t, ok)
}

func TestNewDevice(t *testing.T) {
	defaults := device.Credentials{Username: "admin", Password: "pass", Secret: "enable"}

	d, err := device.New(device.Spec{Host: "10.0.0.1", Type: "cisco_ios"}, defaults)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", d.ID, "id falls back to host")
	assert.Equal(t, 22, d.Port)
	assert.Equal(t, "admin", d.Username)
	assert.Equal(t, "pass", d.Password)
	assert.Equal(t, "enable", d.Secret)
	assert.Equal(t, device.FlagInit, d.Outcome.Flag)
	assert.Equal(t, device.ReasonInitialized, d.Outcome.Reason)
	assert.False(t, d.Passed())

	d, err = device.New(device.Spec{
		ID: "r1", Host: "10.0.0.2", Type: "cisco_ios", Port: "2222",
		Username: "ops", Password: "row",
	}, defaults)
	require.NoError(t, err)
	assert.Equal(t, "r1", d.ID)
	assert.Equal(t, 2222, d.Port)
	assert.Equal(t, "ops", d.Username, "row credentials win over defaults")
	assert.Equal(t, "row", d.Password)
}

func TestNewDeviceTelnetPort(t *testing.T) {
	d, err := device.New(device.Spec{Host: "10.0.0.3", Type: "cisco_ios_telnet"}, device.Credentials{Username: "a", Password: "b"})
	require.NoError(t, err)
	assert.Equal(t, 23, d.Port)

	// a leftover ssh port on a telnet row is corrected
	d, err = device.New(device.Spec{Host: "10.0.0.4", Type: "cisco_ios_telnet", Port: "22"}, device.Credentials{Username: "a", Password: "b"})
	require.NoError(t, err)
	assert.Equal(t, 23, d.Port)

	// an explicit non-default port is kept
	d, err = device.New(device.Spec{Host: "10.0.0.5", Type: "cisco_ios_telnet", Port: "2023"}, device.Credentials{Username: "a", Password: "b"})
	require.NoError(t, err)
	assert.Equal(t, 2023, d.Port)
}

func TestNewDeviceErrors(t *testing.T) {
	_, err := device.New(device.Spec{Host: "10.0.0.1", Type: "frobnitz"}, device.Credentials{})
	assert.Error(t, err, "unknown type")

	_, err = device.New(device.Spec{Type: "cisco_ios"}, device.Credentials{})
	assert.Error(t, err, "missing host")

	_, err = device.New(device.Spec{Host: "10.0.0.1", Type: "cisco_ios", Port: "twenty"}, device.Credentials{})
	assert.Error(t, err, "bad port")
}

func TestParseMode(t *testing.T) {
	m, err := device.ParseMode("CONFIGURE")
	require.NoError(t, err)
	assert.Equal(t, device.ModeConfigure, m)

	_, err = device.ParseMode("configure")
	assert.Error(t, err)
	_, err = device.ParseMode("DELETE")
	assert.Error(t, err)
}
