package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/gitmcp/internal/config"
	gitserver "github.com/HendryAvila/gitmcp/internal/server"
	"github.com/HendryAvila/gitmcp/internal/updater"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gitmcp version",
	Long: `Print the gitmcp version.

With --check, also ask GitHub for the latest release. Set GITHUB_TOKEN to
avoid the anonymous API rate limit.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "gitmcp %s\n", gitserver.Version)
	if !versionCheck {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()
	res := updater.NewChecker(ctx, cfg.Updates.Token, gitserver.Version, updateOptions...).Check(ctx, gitserver.Version)
	switch {
	case res.LatestVersion == "":
		return fmt.Errorf("could not determine the latest release")
	case res.UpdateAvailable:
		fmt.Fprintf(out, "Update available: %s -> %s\n%s\n", res.CurrentVersion, res.LatestVersion, res.ReleaseURL)
	default:
		fmt.Fprintf(out, "Latest release: %s\n", res.LatestVersion)
	}
	return nil
}
