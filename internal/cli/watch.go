package cli

import (
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	v1 "github.com/yassinsws/microsoft-agent-hackathon/internal/transport/http/v1"
)

var serverAddr string

var watchCmd = &cobra.Command{
	Use:   "watch [claim_id]",
	Short: "Stream a run from a running server",
	Long: `Connects to the workflow stream of a running server, submits the claim
and prints every turn as it is merged.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claim, err := readClaim(args)
		if err != nil {
			return err
		}

		addr := strings.TrimRight(serverAddr, "/") + v1.StreamPath
		conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), addr, nil)
		if err != nil {
			return errors.Wrapf(err, "dial %s", addr)
		}
		defer conn.Close()

		if err := conn.WriteJSON(claim); err != nil {
			return errors.Wrap(err, "write claim")
		}

		for {
			var msg v1.StreamMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					return nil
				}
				return errors.Wrap(err, "read")
			}
			switch msg.Type {
			case v1.StreamTypeTurn:
				who := msg.Role
				if msg.WorkerName != "" {
					who = msg.WorkerName
				}
				fmt.Printf("\n[%s]\n%s\n", who, msg.Content)
			case v1.StreamTypeDone:
				decision := "none"
				if msg.FinalDecision != nil {
					decision = *msg.FinalDecision
				}
				fmt.Printf("\nrun %s finished: %s\n", msg.RunID, decision)
				return nil
			case v1.StreamTypeError:
				return errors.Errorf("run failed: %s", msg.Message)
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&serverAddr, "addr", "ws://localhost:8080", "Server address")
}
