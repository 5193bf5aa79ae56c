package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/moomina/companion-go/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the proactive scheduler",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default: server.addr from config)")
	cmd.Flags().Bool("no-scheduler", false, "Disable proactive check-ins")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	noScheduler, _ := cmd.Flags().GetBool("no-scheduler")

	client, logger, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	cfg := client.Config()
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if cfg.Scheduler.Enabled && !noScheduler {
		scheduler, err := client.NewScheduler()
		if err != nil {
			return err
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			scheduler.Run(ctx)
		}()
		// Stop the scheduler before the client closes.
		defer func() {
			cancel()
			<-done
		}()
	}

	srv := server.New(client, cfg.Companion.Name, logger, server.WithUploadDir(cfg.Image.UploadDir))
	return srv.ListenAndServe(ctx, addr)
}
