package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/civshow/civitai"
	"github.com/s0up4200/civshow/filter"
)

var (
	listCursor string
	listPage   int
	listLimit  int
	listJSON   bool
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of media matching the filters",
	Long: `Fetch a single page of images and videos from Civitai and print it.
Use the printed cursor with --cursor to continue from where the page ended.`,
	RunE: runList,
}

func init() {
	addQueryFlags(listCmd)
	listCmd.Flags().StringVar(&listCursor, "cursor", "", "continue from a cursor returned by a previous page")
	listCmd.Flags().IntVar(&listPage, "page", 0, "fetch a page by number instead of by cursor")
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 0, "number of items to request (default from config)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print the page as JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	snapshot, err := filterSnapshot(cmd)
	if err != nil {
		return err
	}
	view, err := viewFilter()
	if err != nil {
		return err
	}

	req := snapshot.Request(listLimit)
	req.Cursor = listCursor
	req.Page = listPage

	logger.Info().Str("filters", snapshot.String()).Str("cursor", req.Cursor).Msg("Fetching media")

	ctx := context.Background()
	result, err := civitaiClient.FetchMedia(ctx, req)
	if err != nil {
		return err
	}

	items, err := filter.NewSelector().Select(ctx, view, result.Items)
	if err != nil {
		return err
	}
	result.Items = items

	if listJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(result)
	return nil
}

func printResult(result civitai.Result) {
	if len(result.Items) == 0 {
		fmt.Println("No media found matching the filter criteria.")
	} else {
		fmt.Printf("\nFound %d items:\n", len(result.Items))
		fmt.Println(strings.Repeat("-", 80))
		for _, item := range result.Items {
			fmt.Printf("• [%s] %s", item.Kind, item.URL)
			if item.NSFW {
				fmt.Printf(" [NSFW]")
			}
			fmt.Println()
			if item.Width > 0 && item.Height > 0 {
				fmt.Printf("  %dx%d  id %s\n", item.Width, item.Height, item.ID)
			}
		}
	}

	if result.HasMore {
		fmt.Printf("\nNext cursor: %s\n", result.NextCursor)
	} else {
		fmt.Println("\nNo more pages.")
	}
}
