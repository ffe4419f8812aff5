package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/nextsync/internal/models"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <detail-id>...",
	Short: "Apply a resolution to pending conflicts",
	Long: `Resolve converges one or more conflicted items. Exactly one of --local,
--remote, or --keep must be given and applies to every listed detail.
--keep retains both copies and is only valid for conflicts where both
sides still have content.`,
	Example: `  nextsync resolve 7b1f... --remote
  nextsync resolve 7b1f... 90ac... --local
  nextsync resolve 7b1f... --keep`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

var (
	resolveLocal  bool
	resolveRemote bool
	resolveKeep   bool
)

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().BoolVar(&resolveLocal, "local", false,
		"Prefer the local version")
	resolveCmd.Flags().BoolVar(&resolveRemote, "remote", false,
		"Prefer the remote version")
	resolveCmd.Flags().BoolVar(&resolveKeep, "keep", false,
		"Keep both versions (remote copy renamed)")

	resolveCmd.MarkFlagsOneRequired("local", "remote", "keep")
	resolveCmd.MarkFlagsMutuallyExclusive("local", "remote", "keep")
}

func runResolve(cmd *cobra.Command, args []string) error {
	var solution models.ConflictSolution
	switch {
	case resolveLocal:
		solution = models.SolutionPreferLocal
	case resolveRemote:
		solution = models.SolutionPreferRemote
	case resolveKeep:
		solution = models.SolutionKeepAsIs
	}

	resolved, err := apiClient.Sync.ApplyResolutions(context.Background(), args, solution)

	if jsonOutput {
		out := map[string]interface{}{
			"resolved":  resolved,
			"requested": len(args),
			"solution":  string(solution),
		}
		if err != nil {
			out["error"] = err.Error()
		}
		printJSON(out)
		return err
	}

	if resolved > 0 {
		printSuccess("Resolved %d of %d conflict(s) as %s", resolved, len(args), solution)
	}
	if err != nil {
		return fmt.Errorf("some conflicts were not resolved: %w", err)
	}
	return nil
}
