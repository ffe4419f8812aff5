package main

import (
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past sync passes",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete history entries",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

var historyFolderID string

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyClearCmd)

	historyCmd.PersistentFlags().StringVarP(&historyFolderID, "folder", "f", "",
		"Limit to one folder id (default: all folders)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	entries, err := apiClient.Sync.History(historyFolderID)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(entries)
		return nil
	}

	if len(entries) == 0 {
		printInfo("No sync history yet.")
		return nil
	}

	folders := map[string]string{}
	if all, err := apiClient.Sync.ListFolders(); err == nil {
		for _, f := range all {
			folders[f.ID] = folderLabel(f)
		}
	}

	for _, e := range entries {
		label, ok := folders[e.FolderID]
		if !ok {
			label = e.FolderID
		}
		printInfo("%s  folder %s  applied=%d conflicted=%d errored=%d  (%s)",
			e.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			label,
			e.Applied, e.Conflicted, e.Errored,
			e.FinishedAt.Sub(e.StartedAt).Round(time.Millisecond),
		)
	}
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	if err := apiClient.Sync.ClearHistory(historyFolderID); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{"success": true})
	} else if historyFolderID == "" {
		printSuccess("History cleared")
	} else {
		printSuccess("History cleared for folder %s", historyFolderID)
	}
	return nil
}
