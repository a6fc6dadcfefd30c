package cmd

import (
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
)

var versionExtended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// Version output must not depend on a loadable config.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionExtended, "extended", false, "Include build and dependency details")
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s %s\n", GetAppIdentity().BinaryName, versionInfo.Version)
	if !versionExtended {
		return nil
	}

	v := crucible.GetVersion()
	_, _ = fmt.Fprintf(out, "  commit:     %s\n", versionInfo.Commit)
	_, _ = fmt.Fprintf(out, "  built:      %s\n", versionInfo.BuildDate)
	_, _ = fmt.Fprintf(out, "  go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(out, "  gofulmen:   %s\n", v.Gofulmen)
	_, _ = fmt.Fprintf(out, "  crucible:   %s\n", v.Crucible)
	return nil
}
