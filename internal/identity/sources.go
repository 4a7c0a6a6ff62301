package identity

import (
	"context"
	"errors"
	"os"
	"strings"
)

// machineIDPaths are the places a Linux-ish platform exposes its install id.
var machineIDPaths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

// machineIDSource reads the platform machine id.
type machineIDSource struct{}

func (machineIDSource) ID(ctx context.Context) (string, error) {
	for _, path := range machineIDPaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(string(raw)); v != "" {
			return v, nil
		}
	}
	return "", errors.New("machine id unavailable")
}

// hostSource derives a weaker identifier from the hostname. Used only when
// the machine id is unavailable.
type hostSource struct{}

func (hostSource) ID(ctx context.Context) (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("hostname unavailable")
	}
	return "host_" + name, nil
}
