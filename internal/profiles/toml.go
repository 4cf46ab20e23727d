package profiles

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
)

// bundle is the on-disk shape of an exported profile set.
type bundle struct {
	Profiles []Profile `toml:"profile"`
}

// ExportTOML writes the profiles with the given ids (all when ids is empty)
// to w as a TOML document of [[profile]] tables.
func (s *Store) ExportTOML(w io.Writer, ids ...string) error {
	var b bundle
	if len(ids) == 0 {
		b.Profiles = s.List()
	} else {
		for _, id := range ids {
			p, err := s.Find(id)
			if err != nil {
				return err
			}
			b.Profiles = append(b.Profiles, p)
		}
	}
	return toml.NewEncoder(w).Encode(b)
}

// ImportTOML reads [[profile]] tables from r. Profiles whose id already
// exists replace the stored one; profiles without an id get a new one.
// It returns the imported profiles.
func (s *Store) ImportTOML(r io.Reader) ([]Profile, error) {
	var b bundle
	if _, err := toml.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}

	imported := make([]Profile, 0, len(b.Profiles))
	for _, p := range b.Profiles {
		if p.ID == "" {
			created, err := s.Create(Input{
				Name:          p.Name,
				Description:   p.Description,
				DBPath:        p.DBPath,
				ReadOnly:      p.ReadOnly,
				Extensions:    p.Extensions,
				AttachedFiles: p.AttachedFiles,
			})
			if err != nil {
				return imported, err
			}
			imported = append(imported, created)
			continue
		}

		p.AttachedFiles = withFileIDs(p.AttachedFiles)
		if err := p.Validate(); err != nil {
			return imported, fmt.Errorf("profile %s: %w", p.ID, err)
		}
		now := s.now().UTC()
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		if err := s.put(p); err != nil {
			return imported, err
		}
		imported = append(imported, p)
	}
	return imported, nil
}
