package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/aurora/cmd/gen"
	"github.com/luma/aurora/internal/meta"
)

var RootCmd = &cobra.Command{
	Use:   meta.Name,
	Short: "A client for the Discord gateway",
	Long: `A client for the Discord gateway

Aurora keeps one gateway session alive: it identifies, heartbeats and resumes
the session after transient disconnects.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.AddCommand(ConnectCmd)
	RootCmd.AddCommand(VersionCmd)
	RootCmd.AddCommand(gen.RootCmd)
}

// Execute runs the root command and exits non-zero when it fails.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
