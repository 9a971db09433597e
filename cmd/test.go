package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/civshow/civitai"
)

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connection to the Civitai API",
	Long:  `Test the connection to the Civitai API and display a sample of the default feed.`,
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	fmt.Printf("Testing connection to Civitai at %s...\n", cfg.Civitai.URL)

	ctx := context.Background()
	if err := civitaiClient.TestConnection(ctx); err != nil {
		var apiErr *civitai.APIError
		if errors.As(err, &apiErr) && apiErr.IsUnauthorized() {
			return fmt.Errorf("connection refused, check civitai.api_key: %w", err)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	fmt.Println("✓ Connection successful!")

	defaults := cfg.Slideshow.Defaults
	result, err := civitaiClient.FetchMedia(ctx, defaults.Request(5))
	if err != nil {
		return err
	}

	var videos int
	for _, item := range result.Items {
		if item.IsVideo() {
			videos++
		}
	}

	fmt.Printf("\nDefault feed (%s):\n", defaults)
	fmt.Printf("- Sample items: %d (%d videos)\n", len(result.Items), videos)
	fmt.Printf("- More pages: %s\n", boolToStatus(result.HasMore))
	fmt.Printf("- API key: %s\n", boolToStatus(cfg.Civitai.APIKey != ""))

	if names := filters.ListFilters(); len(names) > 0 {
		fmt.Printf("\nView filter presets:\n")
		for _, name := range names {
			f, _ := filters.GetFilter(name)
			fmt.Printf("  • %s: %s\n", name, f.Expression())
		}
	}

	return nil
}

func boolToStatus(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
