package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/nextsync/internal/models"
)

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage synced folder pairs",
}

var folderAddCmd = &cobra.Command{
	Use:   "add <local-path> <remote-path>",
	Short: "Configure a new folder pair",
	Example: `  nextsync folder add ~/Documents Documents
  nextsync folder add ./notes personal/notes`,
	Args: cobra.ExactArgs(2),
	RunE: runFolderAdd,
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured folder pairs",
	Args:  cobra.NoArgs,
	RunE:  runFolderList,
}

var folderRemoveCmd = &cobra.Command{
	Use:   "remove <folder-id>",
	Short: "Remove a folder pair",
	Long: `Remove deletes the pair's configuration and snapshots. Files on both
sides are left untouched; resolved conflict records stay in history.`,
	Args: cobra.ExactArgs(1),
	RunE: runFolderRemove,
}

var folderEnableCmd = &cobra.Command{
	Use:   "enable <folder-id>",
	Short: "Include a folder pair in sync passes",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setEnabled(args[0], true) },
}

var folderDisableCmd = &cobra.Command{
	Use:   "disable <folder-id>",
	Short: "Exclude a folder pair from sync passes",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setEnabled(args[0], false) },
}

func init() {
	rootCmd.AddCommand(folderCmd)
	folderCmd.AddCommand(folderAddCmd)
	folderCmd.AddCommand(folderListCmd)
	folderCmd.AddCommand(folderRemoveCmd)
	folderCmd.AddCommand(folderEnableCmd)
	folderCmd.AddCommand(folderDisableCmd)
}

func runFolderAdd(cmd *cobra.Command, args []string) error {
	folder, err := apiClient.Sync.AddFolder(args[0], args[1])
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(folder)
	} else {
		printSuccess("Added folder %s", folder.ID)
		printInfo("  local:  %s", folder.LocalPath)
		printInfo("  remote: %s", folder.RemotePath)
	}
	return nil
}

func runFolderList(cmd *cobra.Command, args []string) error {
	folders, err := apiClient.Sync.ListFolders()
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(folders)
		return nil
	}

	if len(folders) == 0 {
		printInfo("No folder pairs configured. Add one with `nextsync folder add`.")
		return nil
	}

	for _, f := range folders {
		state := "enabled"
		if !f.Enabled {
			state = "disabled"
		}
		lastRun := "never"
		if !f.LastRun.IsZero() {
			lastRun = f.LastRun.Local().Format("2006-01-02 15:04:05")
		}

		printInfo("%s  [%s, %s]", f.ID, state, f.Status)
		printInfo("  local:     %s", f.LocalPath)
		printInfo("  remote:    %s", f.RemotePath)
		printInfo("  last run:  %s", lastRun)
	}
	return nil
}

func runFolderRemove(cmd *cobra.Command, args []string) error {
	if err := apiClient.Sync.RemoveFolder(args[0]); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{"success": true, "folder_id": args[0]})
	} else {
		printSuccess("Removed folder %s", args[0])
	}
	return nil
}

func setEnabled(folderID string, enabled bool) error {
	if err := apiClient.Sync.SetFolderEnabled(folderID, enabled); err != nil {
		return err
	}

	verb := "enabled"
	if !enabled {
		verb = "disabled"
	}
	if jsonOutput {
		printJSON(map[string]interface{}{"success": true, "folder_id": folderID, "enabled": enabled})
	} else {
		printSuccess("Folder %s %s", folderID, verb)
	}
	return nil
}

// folderLabel shortens a folder reference for table-style output.
func folderLabel(f *models.FolderSyncInfo) string {
	if len(f.ID) > 8 {
		return fmt.Sprintf("%s…", f.ID[:8])
	}
	return f.ID
}
