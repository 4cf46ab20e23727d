package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wethinkt/go-orbitaldb/internal/profiles"
	"github.com/wethinkt/go-orbitaldb/internal/tui"
)

var (
	addDescription string
	addReadOnly    bool
	addExtensions  []string
	addAttach      []string
	exportOutput   string
	rmYes          bool
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List and manage connection profiles",
	Long: `Manage the DuckDB connection profiles stored in ~/.orbitaldb/profiles.json.

Profiles can be referenced by id or by name.

Examples:
  orbitaldb profiles list
  orbitaldb profiles add scratch :memory:
  orbitaldb profiles add sales ./sales.duckdb --read-only --ext httpfs
  orbitaldb profiles add trips :memory: --attach trips=./trips.parquet
  orbitaldb profiles export -o profiles.toml
  orbitaldb profiles import profiles.toml`,
	RunE: runProfilesList,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfilesList,
}

var profilesAddCmd = &cobra.Command{
	Use:   "add <name> <db-path|:memory:>",
	Short: "Create a profile",
	Args:  cobra.ExactArgs(2),
	RunE:  runProfilesAdd,
}

var profilesRmCmd = &cobra.Command{
	Use:     "rm <profile>...",
	Aliases: []string{"remove", "delete"},
	Short:   "Delete profiles",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runProfilesRm,
}

var profilesExportCmd = &cobra.Command{
	Use:   "export [profile]...",
	Short: "Export profiles as TOML (all when none given)",
	RunE:  runProfilesExport,
}

var profilesImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import profiles from a TOML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesImport,
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	return writeProfiles(cmd.OutOrStdout(), store.List(), outputJSON)
}

func writeProfiles(out io.Writer, list []profiles.Profile, asJSON bool) error {
	if asJSON {
		if list == nil {
			list = []profiles.Profile{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(list) == 0 {
		fmt.Fprintln(out, "No profiles. Create one with: orbitaldb profiles add <name> <db-path|:memory:>")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDATABASE\tMODE\tFILES\tID")
	for _, p := range list {
		mode := "read-write"
		if p.ReadOnly {
			mode = "read-only"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.Name, p.DBPath, mode, len(p.AttachedFiles), p.ID)
	}
	return w.Flush()
}

func runProfilesAdd(cmd *cobra.Command, args []string) error {
	files, err := parseAttachFlags(addAttach)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	p, err := store.Create(profiles.Input{
		Name:          args[0],
		Description:   addDescription,
		DBPath:        args[1],
		ReadOnly:      addReadOnly,
		Extensions:    addExtensions,
		AttachedFiles: files,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created profile %s (%s)\n", p.Name, p.ID)
	return nil
}

// parseAttachFlags parses alias=path[:type] values. A trailing :type is only
// taken when it names a known file type, so Windows drive letters and other
// colons in paths survive.
func parseAttachFlags(values []string) ([]profiles.AttachedFile, error) {
	var files []profiles.AttachedFile
	for _, v := range values {
		alias, path, ok := strings.Cut(v, "=")
		if !ok || alias == "" || path == "" {
			return nil, fmt.Errorf("invalid --attach %q: want alias=path[:type]", v)
		}
		typ := profiles.FileAuto
		if i := strings.LastIndex(path, ":"); i > 0 {
			switch t := profiles.FileType(strings.ToLower(path[i+1:])); t {
			case profiles.FileParquet, profiles.FileCSV, profiles.FileJSON, profiles.FileAuto:
				typ = t
				path = path[:i]
			}
		}
		files = append(files, profiles.AttachedFile{Alias: alias, Path: path, Type: typ})
	}
	return files, nil
}

func runProfilesRm(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	for _, ref := range args {
		p, err := store.Find(ref)
		if err != nil {
			return fmt.Errorf("%s: %w", ref, err)
		}
		if !rmYes && term.IsTerminal(int(os.Stdin.Fd())) {
			res, err := tui.Confirm(tui.ConfirmOptions{
				Prompt: fmt.Sprintf("Delete profile %q?", p.Name),
				Detail: "The database file itself is not touched.",
			})
			if err != nil {
				return err
			}
			if res != tui.ConfirmYes {
				fmt.Fprintf(cmd.OutOrStdout(), "Kept profile %s\n", p.Name)
				continue
			}
		}
		if err := store.Delete(p.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", p.Name)
	}
	return nil
}

func runProfilesExport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if exportOutput != "" && exportOutput != "-" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return store.ExportTOML(out, args...)
}

func runProfilesImport(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()
		in = f
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	imported, err := store.ImportTOML(in)
	if err != nil {
		return err
	}
	for _, p := range imported {
		fmt.Fprintf(cmd.OutOrStdout(), "Imported profile %s (%s)\n", p.Name, p.ID)
	}
	return nil
}
