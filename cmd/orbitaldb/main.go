// orbitaldb manages DuckDB connection profiles and queries them from a
// terminal UI or a local HTTP API.
package main

import (
	"os"

	"github.com/wethinkt/go-orbitaldb/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
