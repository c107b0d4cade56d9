package bridge

import "strings"

// isBluetoothPort reports whether a SERIALCOMM value name belongs to the
// Bluetooth stack
func isBluetoothPort(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "bth") || strings.Contains(name, "bluetooth")
}

// comPath turns COM10 and above into the \\.\COM10 form
func comPath(port string) string {
	if len(port) > 4 && !strings.HasPrefix(port, `\\.\`) {
		return `\\.\` + port
	}
	return port
}
