package board

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/RpGmAx/ronin-mission-5/internal/archive"
)

// archive exports both ledgers to S3, sealed so only the owner's key
// can open the snapshot. Owner only, like any other history read.
func newArchiveCmd(b *boardCmd) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Upload a sealed ledger snapshot to S3 (owner only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := b.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			updates, err := s.contract.UpdateHistory(cmd.Context(), s.caller.ID())
			if err != nil {
				return err
			}
			deletes, err := s.contract.DeleteHistory(cmd.Context(), s.caller.ID())
			if err != nil {
				return err
			}

			archiver, err := archive.New(cmd.Context(), s.cfg.Archive.Config)
			if err != nil {
				return err
			}

			key, err := archiver.Archive(cmd.Context(), &archive.Snapshot{
				Owner:     s.contract.Owner(),
				CreatedAt: time.Now().UnixMilli(),
				Updates:   updates,
				Deletes:   deletes,
			})
			if err != nil {
				return err
			}

			fmt.Println(key)
			return nil
		},
	}
}
