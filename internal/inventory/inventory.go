package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
)

// Row is one record of the device table. The reserved keys below build the
// device itself, everything else is template variables.
type Row map[string]string

// Reserved inventory columns.
const (
	KeyID       = "id"
	KeyHost     = "host"
	KeyType     = "device_type"
	KeyPort     = "port"
	KeyUsername = "username"
	KeyPassword = "password"
	KeySecret   = "secret"
)

// Load reads a device table from a csv, yaml or json file. Row order is
// the device order for the whole session.
func Load(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("device table: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		maps, err := gocsv.CSVToMaps(f)
		if err != nil {
			return nil, fmt.Errorf("device table %q: %w", path, err)
		}
		rows := make([]Row, 0, len(maps))
		for _, m := range maps {
			rows = append(rows, Row(m))
		}
		return rows, nil
	case ".yml", ".yaml":
		var rows []Row
		if err := yaml.NewDecoder(f).Decode(&rows); err != nil {
			return nil, fmt.Errorf("device table %q: %w", path, err)
		}
		return rows, nil
	case ".json":
		var rows []Row
		if err := json.NewDecoder(f).Decode(&rows); err != nil {
			return nil, fmt.Errorf("device table %q: %w", path, err)
		}
		return rows, nil
	}
	return nil, fmt.Errorf("device table %q: unsupported format", path)
}

// Devices builds the ordered fleet from table rows.
func Devices(rows []Row, defaults device.Credentials) ([]*device.Device, error) {
	devices := make([]*device.Device, 0, len(rows))
	for i, row := range rows {
		d, err := device.New(device.Spec{
			ID:       row[KeyID],
			Host:     row[KeyHost],
			Type:     row[KeyType],
			Port:     row[KeyPort],
			Username: row[KeyUsername],
			Password: row[KeyPassword],
			Secret:   row[KeySecret],
		}, defaults)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		devices = append(devices, d)
	}
	return devices, nil
}
