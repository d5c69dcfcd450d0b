package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := getClient().Get("/health", nil)
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}

			var resp HealthResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			printMessage(fmt.Sprintf("%s (version %s)", resp.Status, orDash(resp.Version)))
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	var watch time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the capture status and the latest dashboard figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := getClient()
			if watch <= 0 {
				return showStatus(client, os.Stdout)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(watch)
			defer ticker.Stop()
			for {
				if err := showStatus(client, os.Stdout); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					fmt.Println()
				}
			}
		},
	}

	cmd.Flags().DurationVarP(&watch, "watch", "w", 0, "Refresh every interval until interrupted")
	return cmd
}

func showStatus(client *Client, out io.Writer) error {
	body, err := client.Get("/data", nil)
	if err != nil {
		return err
	}

	if flagJSON {
		printRawJSON(body)
		return nil
	}

	var resp DataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	renderStatus(out, resp)
	return nil
}

func renderStatus(out io.Writer, resp DataResponse) {
	fmt.Fprintf(out, "Status: %s\n", resp.Status)
	if resp.Data == nil {
		fmt.Fprintln(out, "No data captured yet.")
		return
	}

	fmt.Fprintf(out, "Updated: %s\n", orDash(resp.Data.UpdateTime))
	fmt.Fprintf(out, "Compared with: %s\n\n", orDash(resp.Data.ComparisonDate))

	headers := []string{"METRIC", "VALUE", "COMPARISON", "TREND"}
	var rows [][]string
	for _, m := range resp.Data.Metrics {
		rows = append(rows, []string{m.Name, orDash(m.Value), orDash(m.Comparison), orDash(m.Status)})
	}
	writeTable(out, headers, rows)
}
