//go:build linux

package failover

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// bindToDevice pins the socket to the named interface. Without CAP_NET_RAW
// the kernel refuses, and the source address alone selects the interface.
func bindToDevice(name string) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var opErr error
		err := c.Control(func(fd uintptr) {
			opErr = unix.SetsockoptString(int(fd), unix.SOL_SOCKET, unix.SO_BINDTODEVICE, name)
		})
		if err != nil {
			return err
		}
		if errors.Is(opErr, unix.EPERM) {
			return nil
		}
		return opErr
	}
}
