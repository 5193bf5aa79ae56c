package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/moomina/companion-go/pkg/storage"
)

func init() {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the user profile",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the profile and the companion state",
		Args:  cobra.NoArgs,
		RunE:  runProfileShow,
	}

	setCmd := &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set one profile entry",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runProfileSet,
	}

	profileCmd.AddCommand(showCmd, setCmd)
	RootCmd.AddCommand(profileCmd)
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	client, _, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := cmd.Context()
	profile, err := client.Profile(ctx)
	if err != nil {
		return err
	}
	state, err := client.State(ctx)
	if err != nil {
		return err
	}
	delete(profile, storage.ProfileKeyPushToken)

	return printJSON(cmd, map[string]any{"profile": profile, "state": state})
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	client, _, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	key, value := args[0], strings.Join(args[1:], " ")
	if err := client.SetProfile(cmd.Context(), key, value); err != nil {
		return err
	}
	return printJSON(cmd, map[string]string{key: value})
}
