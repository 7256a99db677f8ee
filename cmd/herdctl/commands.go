package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/herdwise/internal/app"
	"github.com/mamadbah2/herdwise/internal/backup"
	"github.com/mamadbah2/herdwise/internal/config"
	"github.com/mamadbah2/herdwise/internal/offline"
	"github.com/mamadbah2/herdwise/pkg/logger"
)

type rootOptions struct {
	envFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "herdctl",
		Short:         "Administer the local farm database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "path to a .env file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(newBackupCmd(opts), newQueueCmd(opts), newSyncCmd(opts))
	return root
}

// withApp loads configuration, wires the application and closes it when fn
// returns.
func withApp(ctx context.Context, opts *rootOptions, fn func(*app.App) error) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}

	log, err := logger.New(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(ctx, *cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	return fn(a)
}

func newBackupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or restore a full farm backup",
	}

	var out string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the farm as a JSON backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				if _, err := a.Farm.Bootstrap(cmd.Context()); err != nil {
					return err
				}
				data, err := backup.Marshal(a.Farm.Export())
				if err != nil {
					return err
				}
				if out == "" {
					_, err = cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write backup: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "backup written to %s\n", out)
				return nil
			})
		},
	}
	exportCmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")

	var confirm bool
	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace every collection with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}
			b, err := backup.Parse(raw)
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), opts, func(a *app.App) error {
				if _, err := a.Farm.Bootstrap(cmd.Context()); err != nil {
					return err
				}
				snap, err := a.Farm.Restore(cmd.Context(), b, confirm)
				if err != nil {
					return err
				}
				a.Farm.Wait()
				fmt.Fprintf(cmd.OutOrStdout(), "restored %d animals, %d transactions, %d tasks, %d camps, %d inventory items, %d events\n",
					len(snap.Animals), len(snap.Transactions), len(snap.Tasks), len(snap.Camps), len(snap.Inventory), len(snap.Events))
				return nil
			})
		},
	}
	importCmd.Flags().BoolVar(&confirm, "confirm", false, "confirm that all current data will be replaced")

	cmd.AddCommand(exportCmd, importCmd)
	return cmd
}

func newQueueCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the offline action queue",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List pending actions in replay order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				actions, err := a.Farm.PendingActions(cmd.Context())
				if err != nil {
					return err
				}
				return printActions(cmd.OutOrStdout(), actions)
			})
		},
	}

	var confirm bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every pending action",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return fmt.Errorf("refusing to drop queued actions without --confirm")
			}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				n, err := a.Queue.Count(cmd.Context())
				if err != nil {
					return err
				}
				if err := a.Farm.ClearQueue(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "dropped %d actions\n", n)
				return nil
			})
		},
	}
	clearCmd.Flags().BoolVar(&confirm, "confirm", false, "confirm that queued changes will be lost")

	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued actions to the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				result, err := a.Farm.SyncNow(cmd.Context())
				if err != nil {
					return err
				}
				if result.Offline {
					fmt.Fprintln(cmd.OutOrStdout(), "offline: nothing replayed")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d of %d actions (%d failed, %d abandoned, %d deferred, %d skipped) in %s\n",
					result.Applied, result.Attempted, result.Failed, result.Abandoned, result.Deferred, result.Skipped, result.Duration.Round(time.Millisecond))
				return nil
			})
		},
	}
}

func printActions(w io.Writer, actions []offline.Action) error {
	if len(actions) == 0 {
		_, err := fmt.Fprintln(w, "queue is empty")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tENTITY\tCREATED\tATTEMPTS\tLAST ERROR")
	for _, a := range actions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			a.ID, a.Kind, a.Entity, a.CreatedAt.Format(time.RFC3339), a.Attempts, a.LastError)
	}
	return tw.Flush()
}
