package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/wlclean/internal/output"
	"github.com/jmylchreest/wlclean/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		if f == output.FormatText {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			return nil
		}
		return output.Encode(cmd.OutOrStdout(), f, version.Get())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().String("format", "text", "output format: text, json, yaml")
	rootCmd.Version = version.String()
}
