package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/softvol/internal/version"
)

// CreateVersionCmd creates the version command.
func CreateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			info := version.Get()
			fmt.Printf("softvol %s (%s, built %s, %s)\n",
				info.Version, info.GitCommit, info.BuildDate, info.Platform)
			if info.BuildID != "unknown" {
				fmt.Printf("build id: %s\n", info.BuildID)
			}
		},
	}
}
