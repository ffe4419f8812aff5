package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/nextsync/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending conflicts and recorded errors",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var statusErrorsOnly bool

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusErrorsOnly, "errors", false,
		"Show only recorded errors")
}

func runStatus(cmd *cobra.Command, args []string) error {
	conflicts, err := apiClient.Sync.Conflicts()
	if err != nil {
		return err
	}
	errDetails, err := apiClient.Sync.Errors()
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"conflicts": conflicts,
			"errors":    errDetails,
		})
		return nil
	}

	if !statusErrorsOnly {
		printConflicts(conflicts)
	}
	printErrorDetails(errDetails)

	if len(conflicts) == 0 && len(errDetails) == 0 {
		printSuccess("All folders in sync: no pending conflicts, no errors")
	}
	return nil
}

func printConflicts(conflicts []*models.SyncInfoDetail) {
	if len(conflicts) == 0 {
		return
	}

	header := color.New(color.Bold, color.FgYellow)
	header.Printf("Pending conflicts (%d)\n", len(conflicts))

	for _, c := range conflicts {
		printInfo("  %s  %s", c.ID, c.Path)
		printInfo("    type:     %s", c.Type)
		printInfo("    folder:   %s", c.FolderID)
		printInfo("    detected: %s", c.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	printInfo("Resolve with `nextsync resolve <detail-id> --local|--remote|--keep`")
}

func printErrorDetails(details []*models.SyncInfoDetail) {
	if len(details) == 0 {
		return
	}

	header := color.New(color.Bold, color.FgRed)
	header.Printf("Errors (%d)\n", len(details))

	for _, d := range details {
		path := d.Path
		if path == "" {
			path = "(pass)"
		}
		printInfo("  %s  %s", d.ID, path)
		printInfo("    %s", d.Message)
	}
}
