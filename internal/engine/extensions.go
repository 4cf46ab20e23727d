package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/profiles"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

// ErrInvalidExtension is returned for extension names that are not plain
// lowercase identifiers.
var ErrInvalidExtension = errors.New("invalid extension name")

// Extension is one row of duckdb_extensions().
type Extension struct {
	Name        string   `json:"name"`
	Loaded      bool     `json:"loaded"`
	Installed   bool     `json:"installed"`
	InstallPath string   `json:"install_path,omitempty"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
}

// Extensions lists the extensions DuckDB knows about for profile id, with
// their install and load state.
func (e *Engine) Extensions(ctx context.Context, id conn.ResourceID) ([]Extension, error) {
	h, err := e.lookup(id)
	if err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT extension_name, loaded, installed,
		       COALESCE(install_path, ''), COALESCE(description, ''),
		       COALESCE(array_to_string(aliases, ','), '')
		FROM duckdb_extensions()
		ORDER BY extension_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exts []Extension
	for rows.Next() {
		var (
			x       Extension
			aliases string
		)
		if err := rows.Scan(&x.Name, &x.Loaded, &x.Installed, &x.InstallPath, &x.Description, &aliases); err != nil {
			return nil, err
		}
		if aliases != "" {
			x.Aliases = strings.Split(aliases, ",")
		}
		exts = append(exts, x)
	}
	return exts, rows.Err()
}

// Install downloads extension name into DuckDB's extension directory. It
// does not load it into the session; add it to the profile for that.
func (e *Engine) Install(ctx context.Context, id conn.ResourceID, name string) error {
	if !profiles.ValidExtensionName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidExtension, name)
	}
	h, err := e.lookup(id)
	if err != nil {
		return err
	}
	if _, err := h.db.ExecContext(ctx, "INSTALL "+name); err != nil {
		return fmt.Errorf("failed to install extension %s: %w", name, err)
	}
	tuilog.Log.Info("Extension installed", "profile", id, "extension", name)
	return nil
}
