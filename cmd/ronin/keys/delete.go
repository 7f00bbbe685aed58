package keys

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDeleteCmd(v *viper.Viper) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <alias-or-pubkey>",
		Short: "Delete a key and its aliases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kr := openKeyring(v)

			key, err := kr.Load(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load key %q: %w", args[0], err)
			}

			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", key.PublicKey)
			}

			if err := kr.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("delete key: %w", err)
			}

			fmt.Printf("Deleted %s\n", key.PublicKey)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
