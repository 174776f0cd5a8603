package session

import "github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"

// Partition exposes the batch partitioning for tests.
func Partition(devices []*device.Device, max int) [][]*device.Device {
	return partition(devices, max)
}
