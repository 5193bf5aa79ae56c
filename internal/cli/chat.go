package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moomina/companion-go/pkg/core"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the companion",
		Long: "Sends one message, or reads one message per line from stdin when no message is given.\n" +
			"With --image the file is shared and the message, if any, is its caption.",
		RunE: runChat,
	}
	cmd.Flags().String("image", "", "Path of an image to share")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	client, _, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	if imagePath, _ := cmd.Flags().GetString("image"); imagePath != "" {
		image, err := os.ReadFile(imagePath)
		if err != nil {
			return err
		}
		result, err := client.ChatWithImage(cmd.Context(), image, strings.Join(args, " "))
		printResult(out, client, result)
		return err
	}
	if len(args) > 0 {
		return chatTurn(cmd, client, out, strings.Join(args, " "))
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := chatTurn(cmd, client, out, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func chatTurn(cmd *cobra.Command, client *core.Client, out io.Writer, message string) error {
	result, err := client.Chat(cmd.Context(), message)
	printResult(out, client, result)
	return err
}

func printResult(out io.Writer, client *core.Client, result *core.ChatResult) {
	if result == nil {
		return
	}
	parts := result.Parts
	if len(parts) == 0 {
		parts = []string{result.Reply}
	}
	for _, part := range parts {
		fmt.Fprintf(out, "%s: %s\n", client.Config().Companion.Name, part)
	}
	if result.ImageURL != "" {
		fmt.Fprintf(out, "  [photo] %s\n", result.ImageURL)
	}
	fmt.Fprintf(out, "  (%s, energy %d)\n", result.Mood, result.Energy)
}
