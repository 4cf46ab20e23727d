// Package profiles persists DuckDB connection profiles.
package profiles

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MemoryPath is the DBPath of an in-memory database.
const MemoryPath = ":memory:"

var (
	// ErrNotFound is returned when no profile has the requested id.
	ErrNotFound = errors.New("profile not found")

	// ErrInvalid is returned when a profile fails validation.
	ErrInvalid = errors.New("invalid profile")
)

// FileType is the format of an attached data file.
type FileType string

const (
	FileParquet FileType = "parquet"
	FileCSV     FileType = "csv"
	FileJSON    FileType = "json"
	FileAuto    FileType = "auto"
)

// AttachedFile is a data file exposed to SQL as a view named Alias.
type AttachedFile struct {
	ID    string   `json:"id" toml:"id"`
	Alias string   `json:"alias" toml:"alias"`
	Path  string   `json:"path" toml:"path"`
	Type  FileType `json:"type" toml:"type"`
}

// Profile is a named DuckDB target.
type Profile struct {
	ID            string         `json:"id" toml:"id"`
	Name          string         `json:"name" toml:"name"`
	Description   string         `json:"description,omitempty" toml:"description,omitempty"`
	DBPath        string         `json:"db_path" toml:"db_path"`
	ReadOnly      bool           `json:"read_only,omitempty" toml:"read_only,omitempty"`
	Extensions    []string       `json:"extensions,omitempty" toml:"extensions,omitempty"`
	AttachedFiles []AttachedFile `json:"attached_files,omitempty" toml:"attached_files,omitempty"`
	CreatedAt     time.Time      `json:"created_at" toml:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" toml:"updated_at"`
}

// IsMemory reports whether the profile targets an in-memory database.
func (p Profile) IsMemory() bool {
	return p.DBPath == "" || p.DBPath == MemoryPath
}

// Input holds the user-supplied fields of a new profile.
type Input struct {
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	DBPath        string         `json:"db_path"`
	ReadOnly      bool           `json:"read_only,omitempty"`
	Extensions    []string       `json:"extensions,omitempty"`
	AttachedFiles []AttachedFile `json:"attached_files,omitempty"`
}

// Update is a partial update; nil fields are left unchanged.
type Update struct {
	Name          *string         `json:"name,omitempty"`
	Description   *string         `json:"description,omitempty"`
	DBPath        *string         `json:"db_path,omitempty"`
	ReadOnly      *bool           `json:"read_only,omitempty"`
	Extensions    *[]string       `json:"extensions,omitempty"`
	AttachedFiles *[]AttachedFile `json:"attached_files,omitempty"`
}

func (u Update) apply(p *Profile) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.DBPath != nil {
		p.DBPath = *u.DBPath
	}
	if u.ReadOnly != nil {
		p.ReadOnly = *u.ReadOnly
	}
	if u.Extensions != nil {
		p.Extensions = *u.Extensions
	}
	if u.AttachedFiles != nil {
		p.AttachedFiles = *u.AttachedFiles
	}
}

var (
	identPattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	extensionPattern = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// ValidExtensionName reports whether name is safe to splice into INSTALL
// and LOAD statements.
func ValidExtensionName(name string) bool {
	return extensionPattern.MatchString(name)
}

// Validate checks the fields the engine relies on.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if strings.TrimSpace(p.DBPath) == "" {
		return fmt.Errorf("%w: db_path is required (use %q for in-memory)", ErrInvalid, MemoryPath)
	}
	if p.ReadOnly && p.IsMemory() {
		return fmt.Errorf("%w: an in-memory database cannot be read-only", ErrInvalid)
	}
	for _, ext := range p.Extensions {
		if !extensionPattern.MatchString(ext) {
			return fmt.Errorf("%w: extension name %q", ErrInvalid, ext)
		}
	}
	seen := make(map[string]bool)
	for _, f := range p.AttachedFiles {
		if !identPattern.MatchString(f.Alias) {
			return fmt.Errorf("%w: attached file alias %q is not a valid identifier", ErrInvalid, f.Alias)
		}
		if seen[strings.ToLower(f.Alias)] {
			return fmt.Errorf("%w: duplicate attached file alias %q", ErrInvalid, f.Alias)
		}
		seen[strings.ToLower(f.Alias)] = true
		if f.Path == "" {
			return fmt.Errorf("%w: attached file %q has no path", ErrInvalid, f.Alias)
		}
		switch f.Type {
		case FileParquet, FileCSV, FileJSON, FileAuto, "":
		default:
			return fmt.Errorf("%w: attached file %q has unknown type %q", ErrInvalid, f.Alias, f.Type)
		}
	}
	return nil
}
