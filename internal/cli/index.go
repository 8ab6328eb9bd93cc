package cli

import (
	"github.com/spf13/cobra"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/app"
)

var (
	rebuildForce    bool
	includeUploaded bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the policy knowledge index",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the knowledge index",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		if _, err := a.Index.Load(cmd.Context()); err != nil {
			return err
		}

		res, err := a.Service.RebuildIndex(cmd.Context(), rebuildForce, includeUploaded)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted knowledge index",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		if _, err := a.Index.Load(cmd.Context()); err != nil {
			return err
		}

		st, err := a.Service.IndexStatus(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(st)
	},
}

func init() {
	indexRebuildCmd.Flags().BoolVar(&rebuildForce, "force", false, "Rebuild even if the index is ready")
	indexRebuildCmd.Flags().BoolVar(&includeUploaded, "include-uploaded", false, "Include uploaded documents")
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexStatusCmd)
}
