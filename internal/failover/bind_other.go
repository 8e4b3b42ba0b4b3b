//go:build !linux

package failover

import "syscall"

// bindToDevice is a no-op off Linux; the source address selects the interface.
func bindToDevice(string) func(network, address string, c syscall.RawConn) error {
	return nil
}
