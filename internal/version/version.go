package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the current version of the application.
// This can be set at build time using ldflags:
// -ldflags="-X github.com/wethinkt/go-orbitaldb/internal/version.Version=v1.0.0"
var Version = ""

const duckdbModule = "github.com/duckdb/duckdb-go/v2"

// Info holds all version-related metadata.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	GoVersion string `json:"go_version"`
	DuckDB    string `json:"duckdb_driver,omitempty"` // duckdb-go module version linked in
}

// GetInfo returns a structured Info object.
func GetInfo(name string) Info {
	info := Info{
		Name:      name,
		Version:   Get(),
		GoVersion: runtime.Version(),
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range buildInfo.Settings {
			if setting.Key == "vcs.revision" {
				info.Revision = setting.Value
			}
		}
		for _, dep := range buildInfo.Deps {
			if dep.Path == duckdbModule {
				info.DuckDB = dep.Version
				if dep.Replace != nil {
					info.DuckDB = dep.Replace.Version
				}
			}
		}
	}

	return info
}

// Get returns the version string, including build info if available.
func Get() string {
	if Version != "" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
				return fmt.Sprintf("dev-%s", setting.Value[:7])
			}
		}
	}

	return "dev"
}

// String returns a fully formatted version and build summary.
func String(name string) string {
	info := GetInfo(name)
	s := fmt.Sprintf("%s version %s (%s)", name, info.Version, info.GoVersion)
	if info.DuckDB != "" {
		s += fmt.Sprintf(", duckdb-go %s", info.DuckDB)
	}
	return s
}
