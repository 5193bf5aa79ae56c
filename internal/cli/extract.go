package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract memories from the recent conversation now",
		Args:  cobra.NoArgs,
		RunE:  runExtract,
	}

	RootCmd.AddCommand(cmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	client, _, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	report, err := client.ExtractMemories(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, report)
}
