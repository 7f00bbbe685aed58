package board

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/RpGmAx/ronin-mission-5/cmd/ronin/tui"
	"github.com/RpGmAx/ronin-mission-5/internal/contract"
)

func newTUICmd(b *boardCmd) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse the board in a live terminal view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := b.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			fetch := func(ctx context.Context) ([]contract.Message, error) {
				return s.contract.ReadAllMessages(ctx, s.caller.ID())
			}
			return tui.Run(tui.New(cmd.Context(), fetch, s.contract.Owner()))
		},
	}
}
