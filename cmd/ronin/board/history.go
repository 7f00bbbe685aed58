package board

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

func newHistoryCmd(b *boardCmd) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Read the mutation ledgers (owner only)",
	}
	cmd.AddCommand(newHistoryUpdatesCmd(b), newHistoryDeletesCmd(b))
	return cmd
}

func newHistoryUpdatesCmd(b *boardCmd) *cobra.Command {
	var filter, output string

	cmd := &cobra.Command{
		Use:   "updates",
		Short: "Show the update ledger in append order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := b.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			entries, err := s.contract.SearchUpdates(cmd.Context(), s.caller.ID(), filter)
			if err != nil {
				return err
			}

			if output == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			for _, e := range entries {
				fmt.Printf("%s  %s\n", formatTimestamp(e.Timestamp), identity.Short(e.Sender))
				fmt.Printf("  - %s\n", e.OldMessage)
				fmt.Printf("  + %s\n", e.NewMessage)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", `CEL filter, e.g. 'new_message.contains("hello")'`)
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func newHistoryDeletesCmd(b *boardCmd) *cobra.Command {
	var filter, output string

	cmd := &cobra.Command{
		Use:   "deletes",
		Short: "Show the delete ledger in append order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := b.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			entries, err := s.contract.SearchDeletes(cmd.Context(), s.caller.ID(), filter)
			if err != nil {
				return err
			}

			if output == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			for _, e := range entries {
				fmt.Printf("%s  %s\n", formatTimestamp(e.Timestamp), identity.Short(e.Sender))
				fmt.Printf("  x %s\n", e.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", `CEL filter, e.g. 'timestamp > 1700000000000'`)
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func formatTimestamp(unixMilli int64) string {
	return time.UnixMilli(unixMilli).UTC().Format(time.RFC3339)
}
