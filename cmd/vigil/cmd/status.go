package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigil-dev/vigil/internal/config"
	"github.com/vigil-dev/vigil/internal/journal"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool
	var limit int

	cmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show the latest watch session from the journal",
		Long: `Display the most recent watch session recorded in the journal:
  - Session id, watched root, and running/stopped state
  - Delivered event counts per kind
  - The most recent delivered events`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runStatus(cmd, root, jsonOutput, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of recent events to show")

	return cmd
}

// statusInfo is the JSON shape of 'vigil status --json'.
type statusInfo struct {
	Session *journal.SessionStatus `json:"session"`
	Counts  map[string]int         `json:"counts,omitempty"`
	Recent  []journal.EventRecord  `json:"recent,omitempty"`
}

func runStatus(cmd *cobra.Command, root string, jsonOutput bool, limit int) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return err
	}

	jnl, err := journal.OpenReadOnly(cfg.JournalPath())
	if err != nil {
		return fmt.Errorf("no journal found in %s\nRun 'vigil watch' to create one", absRoot)
	}
	defer func() { _ = jnl.Close() }()

	session, err := jnl.LatestSession()
	if err != nil {
		return err
	}

	info := statusInfo{Session: session}
	if session != nil {
		if info.Counts, err = jnl.KindCounts(session.ID); err != nil {
			return err
		}
		if info.Recent, err = jnl.RecentEvents(session.ID, limit); err != nil {
			return err
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	out := cmd.OutOrStdout()
	if session == nil {
		_, _ = fmt.Fprintln(out, "journal is empty")
		return nil
	}

	_, _ = fmt.Fprintln(out, session.Describe())
	if len(info.Counts) > 0 {
		_, _ = fmt.Fprint(out, "counts:")
		for _, kind := range []string{"CREATED", "MODIFIED", "DELETED", "RENAMED"} {
			if n, ok := info.Counts[kind]; ok {
				_, _ = fmt.Fprintf(out, "  %s=%d", kind, n)
			}
		}
		_, _ = fmt.Fprintln(out)
	}
	if len(info.Recent) > 0 {
		_, _ = fmt.Fprintln(out, "recent:")
		for _, ev := range info.Recent {
			_, _ = fmt.Fprintf(out, "  %s %-8s %-7s %s\n",
				ev.DeliveredAt.Format(time.TimeOnly), ev.Kind, ev.FileType, ev.Path)
		}
	}
	return nil
}
