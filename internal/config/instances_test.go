package config

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
	"time"
)

func useTempHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ORBITALDB_HOME", dir)
	return dir
}

func TestRegisterListUnregister(t *testing.T) {
	dir := useTempHome(t)

	inst := Instance{
		Type:      InstanceServe,
		PID:       os.Getpid(),
		Port:      7480,
		Host:      "localhost",
		StartedAt: time.Now(),
	}
	if err := RegisterInstance(inst); err != nil {
		t.Fatalf("RegisterInstance failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "instances.json")); err != nil {
		t.Fatalf("instances.json not written: %v", err)
	}

	instances, err := ListInstances()
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(instances) != 1 || instances[0].Type != InstanceServe || instances[0].Port != 7480 {
		t.Fatalf("unexpected instances: %+v", instances)
	}

	if err := UnregisterInstance(os.Getpid()); err != nil {
		t.Fatalf("UnregisterInstance failed: %v", err)
	}
	instances, _ = ListInstances()
	if len(instances) != 0 {
		t.Fatalf("expected no instances after unregister, got %d", len(instances))
	}
}

func TestStalePIDCleanup(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("process liveness is best-effort on windows")
	}
	useTempHome(t)

	if err := RegisterInstance(Instance{Type: InstanceTUI, PID: 999999999, StartedAt: time.Now()}); err != nil {
		t.Fatalf("RegisterInstance failed: %v", err)
	}
	instances, err := ListInstances()
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(instances) != 0 {
		t.Fatalf("expected stale entry to be dropped, got %d", len(instances))
	}
}

func TestFindInstanceByPort(t *testing.T) {
	useTempHome(t)

	RegisterInstance(Instance{Type: InstanceServe, PID: os.Getpid(), Port: 7480, StartedAt: time.Now()})

	found := FindInstanceByPort(7480)
	if found == nil || found.PID != os.Getpid() {
		t.Fatalf("FindInstanceByPort(7480) = %+v", found)
	}
	if FindInstanceByPort(9999) != nil {
		t.Fatal("expected nil for unused port")
	}
}

func TestOtherInstancesExcludesSelf(t *testing.T) {
	useTempHome(t)

	RegisterInstance(Instance{Type: InstanceTUI, PID: os.Getpid(), StartedAt: time.Now()})
	if others := OtherInstances(); len(others) != 0 {
		t.Fatalf("OtherInstances included self: %+v", others)
	}
}

func TestRegisterReplacesSamePID(t *testing.T) {
	useTempHome(t)

	RegisterInstance(Instance{Type: InstanceTUI, PID: os.Getpid(), StartedAt: time.Now()})
	RegisterInstance(Instance{Type: InstanceServe, PID: os.Getpid(), Port: 7480, StartedAt: time.Now()})

	instances, err := ListInstances()
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(instances) != 1 || instances[0].Type != InstanceServe {
		t.Fatalf("expected a single serve entry, got %+v", instances)
	}
}

func TestSetDatabasesNormalizes(t *testing.T) {
	dir := useTempHome(t)

	RegisterInstance(Instance{Type: InstanceTUI, PID: os.Getpid(), StartedAt: time.Now()})
	b := filepath.Join(dir, "b.duckdb")
	a := filepath.Join(dir, "sub", "..", "a.duckdb")
	if err := SetDatabases(os.Getpid(), []string{b, a, b}); err != nil {
		t.Fatalf("SetDatabases failed: %v", err)
	}

	instances, _ := ListInstances()
	want := []string{filepath.Join(dir, "a.duckdb"), b}
	if len(instances) != 1 || !slices.Equal(instances[0].Databases, want) {
		t.Fatalf("Databases = %v, want %v", instances, want)
	}
	if !instances[0].Holds(filepath.Join(dir, "sub", "..", "b.duckdb")) {
		t.Error("Holds did not match an equivalent path")
	}

	if err := SetDatabases(os.Getpid(), nil); err != nil {
		t.Fatalf("SetDatabases(nil) failed: %v", err)
	}
	instances, _ = ListInstances()
	if len(instances[0].Databases) != 0 {
		t.Fatalf("expected no databases, got %v", instances[0].Databases)
	}
}

func TestSetDatabasesUnregisteredIsNoop(t *testing.T) {
	useTempHome(t)

	if err := SetDatabases(os.Getpid(), []string{"/tmp/x.duckdb"}); err != nil {
		t.Fatalf("SetDatabases failed: %v", err)
	}
	if instances, _ := ListInstances(); len(instances) != 0 {
		t.Fatalf("SetDatabases created an entry: %+v", instances)
	}
}

func TestDatabaseHolder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("process liveness is best-effort on windows")
	}
	dir := useTempHome(t)
	path := filepath.Join(dir, "shared.duckdb")

	// The parent process is alive and is not us.
	other := Instance{Type: InstanceServe, PID: os.Getppid(), StartedAt: time.Now(), Databases: []string{path}}
	if err := RegisterInstance(other); err != nil {
		t.Fatalf("RegisterInstance failed: %v", err)
	}
	RegisterInstance(Instance{Type: InstanceTUI, PID: os.Getpid(), StartedAt: time.Now(), Databases: []string{path}})

	holder := DatabaseHolder(path)
	if holder == nil || holder.PID != os.Getppid() || holder.Type != InstanceServe {
		t.Fatalf("DatabaseHolder = %+v, want the serve instance", holder)
	}
	if DatabaseHolder(filepath.Join(dir, "other.duckdb")) != nil {
		t.Error("expected no holder for an unclaimed file")
	}

	// A dead holder no longer claims the file.
	UnregisterInstance(os.Getppid())
	RegisterInstance(Instance{Type: InstanceServe, PID: 999999999, StartedAt: time.Now(), Databases: []string{path}})
	if holder := DatabaseHolder(path); holder != nil {
		t.Fatalf("dead process still holds the file: %+v", holder)
	}
}
