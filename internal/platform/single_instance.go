package platform

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// ErrAlreadyRunning indicates another instance already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

// InstanceGuard holds the single-instance lock.
type InstanceGuard struct {
	listener net.Listener
	address  string
}

// AcquireSingleInstance binds an abstract unix socket named after appName
// and the current uid. The kernel drops the name when the process exits, so
// a crashed daemon never leaves a stale lock behind.
func AcquireSingleInstance(appName string) (*InstanceGuard, error) {
	address := instanceAddress(appName, os.Getuid())
	listener, err := net.Listen("unix", address)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", ErrAlreadyRunning, address)
	}
	return &InstanceGuard{listener: listener, address: address}, nil
}

// Release frees the single instance lock.
func (guard *InstanceGuard) Release() error {
	if guard == nil || guard.listener == nil {
		return nil
	}
	return guard.listener.Close()
}

// Address returns the bound address.
func (guard *InstanceGuard) Address() string {
	if guard == nil {
		return ""
	}
	return guard.address
}

func instanceAddress(appName string, uid int) string {
	return fmt.Sprintf("@%s-%d", appName, uid)
}
