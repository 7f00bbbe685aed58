package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RpGmAx/ronin-mission-5/cmd/ronin/board"
	"github.com/RpGmAx/ronin-mission-5/cmd/ronin/keys"
	"github.com/RpGmAx/ronin-mission-5/internal/config"
)

func main() {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "ronin",
		Short: "Single-message-per-identity board with owner-audited history",
	}

	config.BindCommonFlags(rootCmd, v)

	rootCmd.AddCommand(board.Commands(v)...)
	rootCmd.AddCommand(keys.Entrypoint(v))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newWhoamiCmd(v))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
