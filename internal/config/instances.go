package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// InstanceType identifies the kind of orbitaldb process.
type InstanceType string

const (
	InstanceServe InstanceType = "serve"
	InstanceTUI   InstanceType = "tui"
)

// Instance is one running orbitaldb process and the DuckDB files it holds
// open. DuckDB takes an exclusive lock on a writable file, so a second
// process opening the same path fails; the registry lets that process name
// the holder instead of surfacing a bare lock error.
type Instance struct {
	Type      InstanceType `json:"type"`
	PID       int          `json:"pid"`
	Port      int          `json:"port,omitempty"`
	Host      string       `json:"host,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	Databases []string     `json:"databases,omitempty"`
}

// Holds reports whether the instance has the database file at path open.
func (inst Instance) Holds(path string) bool {
	return slices.Contains(inst.Databases, normalizeDBPath(path))
}

func instancesPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "instances.json"), nil
}

// RegisterInstance records inst, replacing any earlier entry for the same
// PID. Entries of dead processes are dropped, which also releases the
// files they claimed.
func RegisterInstance(inst Instance) error {
	inst.Databases = normalizeDBPaths(inst.Databases)
	return updateInstances(func(instances []Instance) []Instance {
		instances = slices.DeleteFunc(instances, func(other Instance) bool {
			return other.PID == inst.PID
		})
		return append(instances, inst)
	})
}

// UnregisterInstance removes the entry for pid.
func UnregisterInstance(pid int) error {
	return updateInstances(func(instances []Instance) []Instance {
		return slices.DeleteFunc(instances, func(inst Instance) bool {
			return inst.PID == pid
		})
	})
}

// SetDatabases replaces the set of database files held by pid. It is a
// no-op when pid has not registered.
func SetDatabases(pid int, paths []string) error {
	paths = normalizeDBPaths(paths)
	return updateInstances(func(instances []Instance) []Instance {
		for i := range instances {
			if instances[i].PID == pid {
				instances[i].Databases = paths
			}
		}
		return instances
	})
}

// ListInstances returns the live instances, pruning dead ones from disk.
func ListInstances() ([]Instance, error) {
	path, err := instancesPath()
	if err != nil {
		return nil, err
	}
	instances, err := readInstances(path)
	if err != nil {
		return nil, err
	}

	live := liveOnly(instances)
	if len(live) != len(instances) {
		writeInstances(path, live)
	}
	return live, nil
}

// DatabaseHolder returns the live instance, other than the current process,
// that holds the database file at path, or nil.
func DatabaseHolder(path string) *Instance {
	for _, inst := range OtherInstances() {
		if inst.Holds(path) {
			return &inst
		}
	}
	return nil
}

// FindInstanceByPort returns the live instance listening on port, or nil.
func FindInstanceByPort(port int) *Instance {
	instances, err := ListInstances()
	if err != nil {
		return nil
	}
	for i := range instances {
		if instances[i].Port == port {
			return &instances[i]
		}
	}
	return nil
}

// OtherInstances returns live instances other than the current process.
func OtherInstances() []Instance {
	instances, err := ListInstances()
	if err != nil {
		return nil
	}
	self := os.Getpid()
	return slices.DeleteFunc(instances, func(inst Instance) bool {
		return inst.PID == self
	})
}

// updateInstances applies fn to the live entries and writes the result.
func updateInstances(fn func([]Instance) []Instance) error {
	path, err := instancesPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	// A corrupt registry only loses stale claims; start over.
	instances, _ := readInstances(path)
	return writeInstances(path, fn(liveOnly(instances)))
}

func readInstances(path string) ([]Instance, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var instances []Instance
	if err := json.Unmarshal(data, &instances); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return instances, nil
}

// writeInstances replaces the registry through a rename so a concurrent
// reader never sees a half-written file.
func writeInstances(path string, instances []Instance) error {
	data, err := json.MarshalIndent(instances, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".instances-*.json")
	if err != nil {
		return fmt.Errorf("write instances: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write instances: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write instances: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write instances: %w", err)
	}
	return nil
}

func liveOnly(instances []Instance) []Instance {
	return slices.DeleteFunc(instances, func(inst Instance) bool {
		return !isProcessAlive(inst.PID)
	})
}

func normalizeDBPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Clean(path)
}

// normalizeDBPaths returns the absolute, sorted, de-duplicated paths.
func normalizeDBPaths(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, normalizeDBPath(p))
	}
	slices.Sort(out)
	return slices.Compact(out)
}
