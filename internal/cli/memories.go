package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	memoriesCmd := &cobra.Command{
		Use:     "memories",
		Aliases: []string{"mem"},
		Short:   "Manage stored memories",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List memories, newest first",
		Args:  cobra.NoArgs,
		RunE:  runMemoriesList,
	}

	addCmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Store a memory unless a similar one exists",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runMemoriesAdd,
	}
	addCmd.Flags().String("category", "general", "Category: preference, fact, person, event, emotion, general")
	addCmd.Flags().IntP("importance", "i", 5, "Importance from 1 to 10")

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Rank memories against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runMemoriesSearch,
	}
	searchCmd.Flags().IntP("limit", "l", 0, "Max results (default: top_k from config)")

	editCmd := &cobra.Command{
		Use:   "edit [id] [content]",
		Short: "Replace the content of a memory",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runMemoriesEdit,
	}

	rmCmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a memory",
		Args:  cobra.ExactArgs(1),
		RunE:  runMemoriesRm,
	}

	memoriesCmd.AddCommand(listCmd, addCmd, searchCmd, editCmd, rmCmd)
	RootCmd.AddCommand(memoriesCmd)
}

func runMemoriesList(cmd *cobra.Command, args []string) error {
	client, _, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	memories, err := client.ListMemories(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, memories)
}

func runMemoriesAdd(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	importance, _ := cmd.Flags().GetInt("importance")

	client, _, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	memory, err := client.AddMemory(cmd.Context(), strings.Join(args, " "), category, importance)
	if err != nil {
		return err
	}
	return printJSON(cmd, memory)
}

func runMemoriesSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	client, _, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	results, err := client.SearchMemories(cmd.Context(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "[]")
		return nil
	}
	return printJSON(cmd, results)
}

func runMemoriesEdit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	client, _, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.UpdateMemory(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":"%d"}`+"\n", id)
	return nil
}

func runMemoriesRm(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	client, _, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.DeleteMemory(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":"%d"}`+"\n", id)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
