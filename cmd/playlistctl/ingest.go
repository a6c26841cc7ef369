package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"playlist-rag-api/internal/domain/entity"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <playlist-url>",
	Short: "Download, transcribe and index a playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		tk, cleanup, err := loadToolkit(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		// 先订阅再启动，避免漏掉早期日志
		updates, cancel, err := tk.Coordinator.Watch(ctx)
		if err != nil {
			return err
		}
		defer cancel()

		run, err := tk.Coordinator.Start(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run %s started\n", run.ID)

		printed := 0
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case snap, ok := <-updates:
				if !ok {
					return fmt.Errorf("status stream closed")
				}
				if snap.RunID != run.ID {
					continue
				}
				// 日志有容量上限，被截断时从头打印
				if printed > len(snap.Log) {
					printed = 0
				}
				for _, line := range snap.Log[printed:] {
					fmt.Fprintln(out, line)
				}
				printed = len(snap.Log)

				if !snap.Phase.Terminal() {
					continue
				}
				fmt.Fprintln(out, snap.Message)
				if snap.Phase != entity.PhaseReady {
					return fmt.Errorf("ingest %s", snap.Phase)
				}
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
