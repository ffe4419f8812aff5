package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/nextsync/internal/models"
)

var syncCmd = &cobra.Command{
	Use:   "sync [folder-id]",
	Short: "Run a sync pass",
	Long: `Sync runs one reconciliation pass: both sides are listed, divergence is
classified, convergent changes are applied, and conflicts are queued for
resolution. Without a folder id all enabled folders are synced.`,
	Example: `  nextsync sync
  nextsync sync 2f6c1a7e-...
  nextsync sync --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSyncCmd,
}

var syncWatch bool

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVarP(&syncWatch, "watch", "w", false,
		"Keep running, repeating passes on the configured scan interval")
}

func runSyncCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		printWarning("\nSync interrupted, cancelling...")
		cancel()
	}()

	if len(args) == 1 {
		return syncOne(ctx, args[0])
	}
	if syncWatch {
		return syncWatchLoop(ctx)
	}
	return syncAll(ctx)
}

func syncOne(ctx context.Context, folderID string) error {
	start := time.Now()
	entry, err := apiClient.Sync.ForceResync(ctx, folderID)
	if err != nil {
		return err
	}

	reportPass(folderID, entry, time.Since(start))
	return nil
}

func syncAll(ctx context.Context) error {
	start := time.Now()
	if err := apiClient.Sync.SyncAll(ctx); err != nil {
		return err
	}

	counts, err := apiClient.Sync.Counts()
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":           true,
			"duration":          time.Since(start).String(),
			"pending_conflicts": counts.PendingConflicts,
			"recent_errors":     counts.RecentErrors,
		})
		return nil
	}

	printSuccess("Sync finished in %s", time.Since(start).Round(time.Millisecond))
	if counts.PendingConflicts > 0 {
		printWarning("%d conflict(s) pending, run `nextsync status` to review", counts.PendingConflicts)
	}
	if counts.RecentErrors > 0 {
		printWarning("%d error(s) recorded, run `nextsync status --errors`", counts.RecentErrors)
	}
	return nil
}

func syncWatchLoop(ctx context.Context) error {
	printInfo("Watching: passes every %s (Ctrl-C to stop)", cfg.Sync.ScanInterval)

	if err := syncAll(ctx); err != nil {
		printWarning("Initial pass failed: %v", err)
	}

	apiClient.Sync.Start(ctx)
	defer apiClient.Sync.Stop()

	<-ctx.Done()
	return nil
}

func reportPass(folderID string, entry *models.SyncHistory, duration time.Duration) {
	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":    true,
			"folder_id":  folderID,
			"applied":    entry.Applied,
			"conflicted": entry.Conflicted,
			"errored":    entry.Errored,
			"duration":   duration.String(),
		})
		return
	}

	printSuccess("Pass complete in %s", duration.Round(time.Millisecond))
	printInfo("  applied:    %d", entry.Applied)
	printInfo("  conflicted: %d", entry.Conflicted)
	printInfo("  errored:    %d", entry.Errored)

	if entry.Conflicted > 0 {
		fmt.Println()
		printWarning("Run `nextsync status` to review pending conflicts")
	}
}
