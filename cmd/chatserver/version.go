package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tieba-chat/internal/version"
)

// versionCmd 显示版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tieba-chat node %s\n", version.GetVersion())
	},
}
