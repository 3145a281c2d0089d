package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/tunekit/tunekit/pkg/config"
	"github.com/tunekit/tunekit/pkg/stores"
)

var dbPath string

func newSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and restore parameter snapshots",
		Long: `Manage snapshots of a model's parameters in a SQLite database.

A snapshot records every leaf parameter of the model image. Restoring a
snapshot writes all of them back; it fails if the snapshot was taken from
another model.`,
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "tunekit.db", "snapshot database file")

	cmd.AddCommand(newSnapshotSaveCommand())
	cmd.AddCommand(newSnapshotListCommand())
	cmd.AddCommand(newSnapshotRestoreCommand())
	cmd.AddCommand(newSnapshotDeleteCommand())

	return cmd
}

// openStore opens and migrates the snapshot database.
func openStore(ctx context.Context, s *session) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{
		Path:    dbPath,
		Logger:  &s.logger,
		Metrics: s.metrics(),
	})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// withSnapshotSession opens the model and the database and runs fn inside
// a snapshot span.
func withSnapshotSession(ctx context.Context, op string, fn func(context.Context, *session, *stores.SQLiteStore) error) (err error) {
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	if s.tel != nil {
		var span trace.Span
		ctx, span = s.tel.Tracer.StartSnapshotSpan(ctx, s.image.Model, op)
		defer func() { endSpan(span, err) }()
	}

	store, err := openStore(ctx, s)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, s, store)
}

func newSnapshotSaveCommand() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the current parameters",
		Example: `  tunectl snapshot save --model controller.yaml --label "tuned on bench 2"`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshotSession(cmd.Context(), "save", func(ctx context.Context, s *session, store *stores.SQLiteStore) error {
				snap, err := store.SaveSnapshot(ctx, s.handle, label)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(snap)
				}
				fmt.Printf("Snapshot %s saved (%d parameters)\n", snap.ID, snap.Count)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "snapshot label")

	return cmd
}

func newSnapshotListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots of the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshotSession(cmd.Context(), "list", func(ctx context.Context, s *session, store *stores.SQLiteStore) error {
				snaps, err := store.ListSnapshots(ctx, s.image.Model, limit, 0)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(snaps)
				}
				if len(snaps) == 0 {
					fmt.Println("No snapshots found")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCREATED\tPARAMS\tLABEL")
				for _, snap := range snaps {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", snap.ID, snap.CreatedAt.Local().Format("2006-01-02 15:04:05"), snap.Count, snap.Label)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of snapshots to list (0 for all)")

	return cmd
}

func newSnapshotRestoreCommand() *cobra.Command {
	var (
		write  bool
		guards guardFlags
	)

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore parameters from a snapshot",
		Example: `  # Restore and persist into the model image
  tunectl snapshot restore 1f0c... --model controller.yaml --write`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshotSession(cmd.Context(), "restore", func(ctx context.Context, s *session, store *stores.SQLiteStore) error {
				guard, err := guards.guard(ctx, s, "snapshot")
				if err != nil {
					return err
				}
				var opts []config.BridgeOption
				if guard != nil {
					opts = append(opts, config.WithFilter(guard))
				}
				failures, err := store.RestoreSnapshot(ctx, s.handle, args[0], opts...)
				if err != nil {
					return err
				}
				if failures > 0 {
					return fmt.Errorf("%d of %d parameters could not be restored", failures, s.handle.Len())
				}

				log.Info().Str("snapshot", args[0]).Msg("Snapshot restored")
				if write {
					return s.save()
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "write the restored values back to the model image")
	guards.register(cmd)

	return cmd
}

func newSnapshotDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshotSession(cmd.Context(), "delete", func(ctx context.Context, s *session, store *stores.SQLiteStore) error {
				if err := store.DeleteSnapshot(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Snapshot %s deleted\n", args[0])
				return nil
			})
		},
	}

	return cmd
}
