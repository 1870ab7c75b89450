package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aescanero/dagocrew/internal/application/orchestrator"
	"github.com/aescanero/dagocrew/internal/crewfile"
	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <crew-file>",
		Short: "Check a crew definition and print its execution order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateCrew(cmd.OutOrStdout(), args[0])
		},
	}
}

func validateCrew(w io.Writer, path string) error {
	def, err := crewfile.LoadFile(path)
	if err != nil {
		return err
	}
	agents, tasks, err := def.Build()
	if err != nil {
		return fmt.Errorf("invalid crew file: %w", err)
	}

	crew, err := orchestrator.NewCrew(orchestrator.CrewConfig{
		Name:        def.Name,
		Agents:      agents,
		Tasks:       tasks,
		Process:     domain.Process(def.Process),
		Planning:    def.Planning,
		PlanningLLM: def.PlanningLLM,
		LLMClient:   offlineClient{},
	})
	if err != nil {
		return fmt.Errorf("invalid crew: %w", err)
	}

	name := def.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(w, "Crew: %s\n", name)
	fmt.Fprintf(w, "Planning: %t\n", crew.Planning())
	fmt.Fprintln(w, "Execution order:")
	for i, id := range crew.Order() {
		task, _ := crew.Task(id)
		line := fmt.Sprintf("  %d. %s (%s)", i+1, id, task.Agent.Role)
		if deps := crew.Graph().Dependencies(id); len(deps) > 0 {
			line += " after " + strings.Join(deps, ", ")
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "Terminal tasks: %s\n", strings.Join(crew.Graph().Terminal(), ", "))
	return nil
}

// offlineClient satisfies the crew's provider requirement for commands that
// never run a task
type offlineClient struct{}

func (offlineClient) Name() string { return "offline" }

func (offlineClient) GenerateCompletion(context.Context, *domain.LLMRequest) (*domain.LLMResponse, error) {
	return nil, errors.New("no completion provider is configured for this command")
}
