package board

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

func newStatsCmd(b *boardCmd) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show storage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := b.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			st, err := s.contract.Stats(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("backend:        %s\n", st.BackendType)
			fmt.Printf("owner:          %s\n", identity.Short(s.contract.Owner()))
			fmt.Printf("records:        %d\n", st.Records)
			fmt.Printf("update entries: %d\n", st.UpdateEntries)
			fmt.Printf("delete entries: %d\n", st.DeleteEntries)
			return nil
		},
	}
}
