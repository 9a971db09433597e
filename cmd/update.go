package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/s0up4200/civshow/config"
)

const releaseRepository = "s0up4200/civshow"

var (
	updateCheckOnly bool
	updateForce     bool
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update civshow to the latest release",
	Long:  `Check GitHub for a newer release of civshow and replace the running binary with it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = setupLogger(config.LoggingConfig{Level: "info", Format: "console", Color: true})
		return nil
	},
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "only report whether an update is available")
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "update even when running a development build")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	current, err := semver.ParseTolerant(version)
	if err != nil && !updateForce {
		return fmt.Errorf("cannot update development build %q, use --force to install the latest release", version)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(releaseRepository))
	if err != nil {
		return fmt.Errorf("failed to detect latest release: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s", releaseRepository)
	}

	newest, err := semver.ParseTolerant(latest.Version())
	if err != nil {
		return fmt.Errorf("invalid release version %q: %w", latest.Version(), err)
	}

	logger.Debug().
		Str("current", version).
		Str("latest", latest.Version()).
		Msg("Checked for updates")

	if !updateForce && newest.LTE(current) {
		fmt.Printf("civshow %s is up to date\n", version)
		return nil
	}

	if updateCheckOnly {
		fmt.Printf("Update available: %s -> %s\n%s\n", version, latest.Version(), latest.URL)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("failed to update binary: %w", err)
	}

	logger.Info().Str("version", latest.Version()).Str("path", exe).Msg("Updated civshow")
	fmt.Printf("Successfully updated to %s\n", latest.Version())
	return nil
}
