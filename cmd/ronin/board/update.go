package board

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUpdateCmd(b *boardCmd) *cobra.Command {
	return &cobra.Command{
		Use:   "update [message]",
		Short: "Replace your message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readMessage(args)
			if err != nil {
				return err
			}

			s, err := b.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.contract.UpdateMessage(cmd.Context(), s.caller.ID(), text); err != nil {
				return err
			}
			fmt.Println("message updated")
			return nil
		},
	}
}
