//go:build !tinygo

package core

var systemTicks uint32

// getSystemTicks returns the current system ticks (host implementation)
func getSystemTicks() uint32 {
	return systemTicks
}

// setSystemTicks sets the system ticks (host implementation)
func setSystemTicks(ticks uint32) {
	systemTicks = ticks
}
