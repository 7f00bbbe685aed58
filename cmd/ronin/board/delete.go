package board

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd(b *boardCmd) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete your message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := b.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.contract.DeleteMessage(cmd.Context(), s.caller.ID()); err != nil {
				return err
			}
			fmt.Println("message deleted")
			return nil
		},
	}
}
