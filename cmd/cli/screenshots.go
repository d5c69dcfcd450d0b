package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

func newScreenshotCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Download the screenshot from the last successful capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			return downloadTo(getClient(), "/dashboard_screenshot", output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "dashboard.png", "File to write")
	return cmd
}

func newDebugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Inspect debug screenshots taken on capture failures",
	}

	cmd.AddCommand(newDebugScreenshotCmd())
	cmd.AddCommand(newDebugListCmd())
	return cmd
}

func newDebugScreenshotCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Download the most recent debug screenshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return downloadTo(getClient(), "/debug_screenshot", output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "debug.png", "File to write")
	return cmd
}

func newDebugListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List retained debug screenshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				query.Set("offset", strconv.Itoa(offset))
			}

			body, err := getClient().Get("/api/v1/debug", query)
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}

			var resp PaginatedResponse[DebugEntry]
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"PATH", "URL"}
			var rows [][]string
			for _, e := range resp.Items {
				rows = append(rows, []string{e.Path, orDash(e.URL)})
			}
			printTable(headers, rows)
			printMessage(fmt.Sprintf("\nShowing %d of %d", len(resp.Items), resp.Total))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of entries")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of entries to skip")
	return cmd
}

// downloadTo writes the endpoint's body to path through a temporary file, so a failed
// download never leaves a truncated image behind.
func downloadTo(client *Client, endpoint, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dashctl-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := client.Download(endpoint, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if flagJSON {
		printJSON(map[string]interface{}{"path": path, "bytes": n})
		return nil
	}
	printMessage(fmt.Sprintf("Saved %s (%d bytes)", path, n))
	return nil
}
