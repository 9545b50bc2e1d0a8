package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/crosshatch/internal/directory"
)

// NewUIDsCommand creates the uids command, which prints the well-known
// identity table scenarios run against.
func NewUIDsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "uids",
		Short: "Print the well-known identity table",
		Long: `Print the fixed identity directory every scenario starts from.

Scenario files may register additional identities on top of this table
with an "identities:" section.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}
			return printUIDs(formatter)
		},
	}
}

type uidEntry struct {
	UID     int64  `json:"uid"`
	Package string `json:"package"`
}

func printUIDs(f *OutputFormatter) error {
	dir := directory.WellKnown()

	entries := make([]uidEntry, 0, dir.Len())
	for _, name := range dir.Names() {
		uid, ok := dir.IDByName(name)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("directory lost entry %q", name))
		}
		entries = append(entries, uidEntry{UID: uid, Package: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UID < entries[j].UID })

	if f.Format == "json" {
		return f.Success(entries)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-6s %s", "UID", "PACKAGE")
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n%-6d %s", e.UID, e.Package)
	}
	return f.Success(sb.String())
}
