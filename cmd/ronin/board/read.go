package board

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReadCmd(b *boardCmd) *cobra.Command {
	return &cobra.Command{
		Use:   "read <sender>",
		Short: "Read the message held by a sender (alias or public key hex)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := b.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			sender, err := b.resolveSender(cmd.Context(), s.cfg, args[0])
			if err != nil {
				return err
			}

			text, err := s.contract.ReadMessageFrom(cmd.Context(), s.caller.ID(), sender)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}
