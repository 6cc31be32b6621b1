package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vigil-dev/vigil/internal/classify"
	"github.com/vigil-dev/vigil/internal/config"
	verrors "github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/internal/ignore"
	"github.com/vigil-dev/vigil/internal/journal"
	"github.com/vigil-dev/vigil/internal/lockfile"
	"github.com/vigil-dev/vigil/internal/ui"
	"github.com/vigil-dev/vigil/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var debounceMS int
	var noJournal bool
	var noColor bool
	var forcePolling bool

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Watch a directory and print debounced change events",
		Long: `Watch a directory tree recursively and print one line per delivered
event: timestamp, kind, file type, path.

Events are coalesced per path inside the debounce window, so a burst of
writes to one file produces a single event. Paths matching the ignore
patterns (and .gitignore, when enabled) are never delivered.

Watching stops on Ctrl-C, or when the watched root disappears.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runWatch(cmd, root, watchOptions{
				debounceMS:   debounceMS,
				noJournal:    noJournal,
				noColor:      noColor,
				forcePolling: forcePolling,
			})
		},
	}

	cmd.Flags().IntVar(&debounceMS, "debounce", -1, "Debounce window in milliseconds (0 disables coalescing)")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Do not record events in the journal")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&forcePolling, "poll", false, "Force the polling backend instead of native notifications")

	return cmd
}

type watchOptions struct {
	debounceMS   int
	noJournal    bool
	noColor      bool
	forcePolling bool
}

func runWatch(cmd *cobra.Command, root string, opts watchOptions) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return err
	}
	if opts.debounceMS >= 0 {
		cfg.DebounceWindowMS = opts.debounceMS
	}
	if opts.forcePolling {
		cfg.ForcePolling = true
	}

	// One watcher per root at a time.
	lock := lockfile.New(cfg.LockPath())
	if err := lock.TryAcquire(); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	rules := ignore.New(cfg.IgnorePatterns...)
	if cfg.RespectGitignore {
		gi := filepath.Join(absRoot, ".gitignore")
		if err := rules.LoadFile(gi, ""); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to load .gitignore", slog.String("error", err.Error()))
		}
	}

	classifier := classify.New(absRoot, rules)
	w := watcher.NewForRoot(classifier, watcher.Options{
		DebounceWindow:  cfg.DebounceWindow(),
		EventBufferSize: cfg.EventBufferSize,
		PollInterval:    cfg.PollInterval(),
	}, cfg.ForcePolling)

	renderer := ui.NewRenderer(cmd.OutOrStdout(), opts.noColor)

	var jnl *journal.Journal
	var sessionID string
	if cfg.Journal.Enabled && !opts.noJournal {
		jnl, err = journal.Open(cfg.JournalPath())
		if err != nil {
			return err
		}
		defer func() { _ = jnl.Close() }()
		sessionID, err = jnl.BeginSession(absRoot)
		if err != nil {
			return err
		}
		slog.Info("journal session started",
			slog.String("session", sessionID),
			slog.String("path", cfg.JournalPath()))
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stopReason := "interrupted"
	var lostErr error

	// A failing journal is logged once and abandoned rather than taking
	// the watcher down with it.
	var journalBroken atomic.Bool

	w.Subscribe(watcher.SubscriberFuncs{
		OnEvent: func(ev watcher.Event) {
			renderer.Event(ev)
			if jnl == nil || journalBroken.Load() {
				return
			}
			if err := jnl.RecordEvent(ev); err != nil {
				journalBroken.Store(true)
				slog.Error("journal write failed, journaling disabled",
					slog.String("error", err.Error()))
			}
		},
		OnLost: func(err error) {
			lostErr = err
			stopReason = "watch lost"
			renderer.Errorf("watch lost: %v", err)
			slog.Error("watch lost", slog.String("detail", verrors.FormatForLog(err)))
			cancel()
		},
	})

	if err := w.Start(ctx, absRoot); err != nil {
		if jnl != nil {
			_ = jnl.EndSession("start failed")
		}
		return err
	}

	slog.Info("watching",
		slog.String("root", absRoot),
		slog.Duration("debounce", cfg.DebounceWindow()))

	<-ctx.Done()

	if err := w.Stop(); err != nil {
		slog.Warn("watcher stop", slog.String("error", err.Error()))
	}
	if dropped := w.Dropped(); dropped > 0 {
		slog.Warn("events dropped under backpressure", slog.Uint64("count", dropped))
	}

	if jnl != nil && !journalBroken.Load() {
		if err := jnl.EndSession(stopReason); err != nil {
			slog.Warn("failed to close journal session", slog.String("error", err.Error()))
		}
	}

	return lostErr
}
