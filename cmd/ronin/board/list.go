package board

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

const listWrapWidth = 72

func newListCmd(b *boardCmd) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every current message in posting order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := b.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			msgs, err := s.contract.ReadAllMessages(cmd.Context(), s.caller.ID())
			if err != nil {
				return err
			}

			if output == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(msgs)
			}

			for i, msg := range msgs {
				if i > 0 {
					fmt.Println()
				}
				fmt.Println(identity.Short(msg.Sender))
				wrapped := wordwrap.String(msg.Message, listWrapWidth)
				for _, line := range strings.Split(wrapped, "\n") {
					fmt.Printf("  %s\n", line)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}
