package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/aescanero/dagocrew/pkg/ports"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored run state",
		Long: `Inspect the state snapshots of past runs. Run state outlives the process
only when REDIS_ADDR is set.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, closeApp, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer closeApp()
			return listRuns(cmd, storage)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the stored state of a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, closeApp, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer closeApp()

			state, err := storage.GetState(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get run %s: %w", args[0], err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		},
	})

	return cmd
}

func openStorage(cmd *cobra.Command) (ports.StateStorage, func(), error) {
	a, err := newApp(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	if !a.cfg.Redis.Enabled() {
		_ = a.close()
		return nil, nil, errors.New("run history requires REDIS_ADDR")
	}
	return a.storage, func() { _ = a.close() }, nil
}

// stateLister loads every stored state in one pass
type stateLister interface {
	ListStates(ctx context.Context) ([]*domain.RunState, error)
}

func listRuns(cmd *cobra.Command, storage ports.StateStorage) error {
	states, err := loadStates(cmd.Context(), storage)
	if err != nil {
		return err
	}

	sort.SliceStable(states, func(i, j int) bool {
		return states[i].CreatedAt.Before(states[j].CreatedAt)
	})
	w := cmd.OutOrStdout()
	for _, state := range states {
		writeRunLine(w, state)
	}
	return nil
}

func loadStates(ctx context.Context, storage ports.StateStorage) ([]*domain.RunState, error) {
	if lister, ok := storage.(stateLister); ok {
		states, err := lister.ListStates(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		return states, nil
	}

	ids, err := storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	states := make([]*domain.RunState, 0, len(ids))
	for _, id := range ids {
		state, err := storage.GetState(ctx, id)
		if errors.Is(err, domain.ErrStateNotFound) {
			// expired between List and GetState
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get run %s: %w", id, err)
		}
		states = append(states, state)
	}
	return states, nil
}

func writeRunLine(w io.Writer, state *domain.RunState) {
	name := state.CrewName
	if name == "" {
		name = "-"
	}
	fmt.Fprintf(w, "%-36s  %-9s  %-20s  %s\n",
		state.RunID, state.Status, state.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), name)
}
