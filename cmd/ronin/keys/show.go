package keys

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newShowCmd(v *viper.Viper) *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "show <alias-or-pubkey>",
		Short: "Show details for one key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kr := openKeyring(v)

			key, err := kr.Load(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load key %q: %w", args[0], err)
			}

			if outputFmt == "json" {
				return writeJSON(os.Stdout, key.Metadata)
			}

			fmt.Printf("Public Key: %s\n", key.PublicKey)
			fmt.Printf("Created:    %s\n", key.Metadata.CreatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "output format (text, json)")
	return cmd
}
