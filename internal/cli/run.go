package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/app"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

var claimFile string

var runCmd = &cobra.Command{
	Use:   "run [claim_id]",
	Short: "Process a claim with the whole team and print the result",
	Long: `Process a claim with the whole team and print the JSON result.

The claim is either a sample claim id (see GET /api/v1/workflow/sample-claims)
or a JSON file passed with --file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claim, err := readClaim(args)
		if err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.LoadIndex(cmd.Context()); err != nil {
			return err
		}

		res, err := a.Service.ProcessClaim(cmd.Context(), claim)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var agentCmd = &cobra.Command{
	Use:   "agent <name> [claim_id]",
	Short: "Send a claim to a single worker",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		claim, err := readClaim(args[1:])
		if err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.LoadIndex(cmd.Context()); err != nil {
			return err
		}

		res, err := a.Service.RunAgent(cmd.Context(), args[0], claim)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	runCmd.Flags().StringVarP(&claimFile, "file", "f", "", "Claim JSON file")
	agentCmd.Flags().StringVarP(&claimFile, "file", "f", "", "Claim JSON file")
	watchCmd.Flags().StringVarP(&claimFile, "file", "f", "", "Claim JSON file")
}

// readClaim builds the claim from --file or a sample claim id.
func readClaim(args []string) (domain.Claim, error) {
	if claimFile != "" {
		data, err := os.ReadFile(claimFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", claimFile)
		}
		var claim domain.Claim
		if err := json.Unmarshal(data, &claim); err != nil {
			return nil, errors.Wrapf(err, "invalid claim JSON in %s", claimFile)
		}
		return claim, nil
	}
	if len(args) == 0 {
		return nil, errors.New("a claim id or --file is required")
	}
	return domain.Claim{"claim_id": args[0]}, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
