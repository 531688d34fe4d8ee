package transport

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Registry is the on-disk list of bonded devices:
//
//	devices:
//	  - name: OBDII
//	    address: "00:1D:A5:68:98:8B"
//	    path: /dev/rfcomm0
//	    channel: 1
//	    services:
//	      - uuid: 00001101-0000-1000-8000-00805F9B34FB
//	        channel: 2
type Registry struct {
	Devices []Device `yaml:"devices"`
}

// LoadRegistry reads a registry file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &r, nil
}

// RegistryLister re-reads the registry file on every call, so devices
// bonded while the program runs are picked up on the next attempt.
type RegistryLister struct {
	Path string
}

func (l RegistryLister) Devices(ctx context.Context) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := LoadRegistry(l.Path)
	if err != nil {
		return nil, err
	}
	return r.Devices, nil
}
