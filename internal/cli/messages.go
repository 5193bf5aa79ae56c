package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	messagesCmd := &cobra.Command{
		Use:   "messages",
		Short: "Inspect the conversation log",
		Args:  cobra.NoArgs,
		RunE:  runMessages,
	}
	messagesCmd.Flags().IntP("limit", "l", 0, "Only the last N messages")

	rmCmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a message",
		Args:  cobra.ExactArgs(1),
		RunE:  runMessagesRm,
	}

	messagesCmd.AddCommand(rmCmd)
	RootCmd.AddCommand(messagesCmd)
}

func runMessages(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	client, _, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	messages, err := client.Messages(cmd.Context())
	if err != nil {
		return err
	}
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return printJSON(cmd, messages)
}

func runMessagesRm(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	client, _, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.DeleteMessage(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":"%d"}`+"\n", id)
	return nil
}
