package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "task [name]",
		Short: "Run one proactive task now",
		Long: "Runs a scheduled task once, for use from cron or for testing notifications.\n" +
			"Without a name, lists the available tasks.",
		Args: cobra.MaximumNArgs(1),
		RunE: runTask,
	}

	RootCmd.AddCommand(cmd)
}

func runTask(cmd *cobra.Command, args []string) error {
	client, _, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	scheduler, err := client.NewScheduler()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		for _, t := range scheduler.Tasks() {
			fmt.Fprintln(cmd.OutOrStdout(), t.Name)
		}
		return nil
	}
	return scheduler.RunOnce(cmd.Context(), args[0])
}
