package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// SetVersion records build information injected into main at link time
func SetVersion(v, c, t string) {
	version = v
	commit = c
	buildTime = t
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Version output needs no config
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("civshow %s (commit %s, built %s, %s/%s)\n", version, commit, buildTime, runtime.GOOS, runtime.GOARCH)
	},
}
