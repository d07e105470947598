package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kg-road/roadrag/cmd/roadrag/internal"
	"github.com/kg-road/roadrag/pkg/version"
)

var versionOutput string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := internal.ParseOutputFormat(versionOutput)
		if err != nil {
			return err
		}
		if format == internal.FormatJSON {
			return internal.WriteJSON(cmd.OutOrStdout(), version.Info())
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", "text", "Output format (text|json)")
}
