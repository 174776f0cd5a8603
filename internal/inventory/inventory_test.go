package inventory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/inventory"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "devices.csv",
		"id,host,device_type,username,password,vlan\n"+
			"core-1,10.0.0.1,cisco_ios,admin,pass,100\n"+
			"edge-7,10.0.0.2,cisco_ios_telnet,,,200\n")

	rows, err := inventory.Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "core-1", rows[0]["id"])
	assert.Equal(t, "100", rows[0]["vlan"], "extra columns survive as template variables")
	assert.Equal(t, "10.0.0.2", rows[1]["host"])
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "devices.yaml",
		"- host: 10.0.0.1\n  device_type: cisco_ios\n  vlan: \"100\"\n"+
			"- host: 10.0.0.2\n  device_type: cisco_nxos\n")

	rows, err := inventory.Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "cisco_ios", rows[0]["device_type"])
	assert.Equal(t, "100", rows[0]["vlan"])
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "devices.json",
		`[{"host":"10.0.0.1","device_type":"cisco_ios"}]`)

	rows, err := inventory.Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "10.0.0.1", rows[0]["host"])
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "devices.txt", "10.0.0.1")
	_, err := inventory.Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := inventory.Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestDevices(t *testing.T) {
	rows := []inventory.Row{
		{"id": "core-1", "host": "10.0.0.1", "device_type": "cisco_ios", "username": "ops", "password": "row"},
		{"host": "10.0.0.2", "device_type": "cisco_ios_telnet"},
	}
	devices, err := inventory.Devices(rows, device.Credentials{Username: "admin", Password: "default"})
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "core-1", devices[0].ID)
	assert.Equal(t, "ops", devices[0].Username)
	assert.Equal(t, 22, devices[0].Port)

	assert.Equal(t, "10.0.0.2", devices[1].ID, "id falls back to host")
	assert.Equal(t, "admin", devices[1].Username, "defaults fill empty columns")
	assert.Equal(t, 23, devices[1].Port)
}

func TestDevicesBadRow(t *testing.T) {
	rows := []inventory.Row{{"host": "10.0.0.1", "device_type": "frobnitz"}}
	_, err := inventory.Devices(rows, device.Credentials{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}
