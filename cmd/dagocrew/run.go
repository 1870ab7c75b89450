package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aescanero/dagocrew/internal/application/orchestrator"
	"github.com/aescanero/dagocrew/internal/config"
	"github.com/aescanero/dagocrew/internal/crewfile"
	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runOptions struct {
	planning    bool
	planningLLM string
	verbose     bool
	inputs      []string
	inputsFile  string
	concurrency int
	jsonOutput  bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <crew-file>",
		Short: "Run a crew defined in a YAML or JSON file",
		Long: `Run a crew once per input set and print the final output.

Inputs fill {placeholders} in agent and task text. --input pairs apply to
every run; --inputs-file holds either one map or a list of maps, one run
per entry. Runs from an inputs list execute concurrently, bounded by
--concurrency.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrew(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.planning, "planning", false, "Plan the task order before each run")
	cmd.Flags().StringVar(&opts.planningLLM, "planning-llm", "", "Model used for planning (default from LLM_PLANNING_MODEL)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every task output")
	cmd.Flags().StringArrayVarP(&opts.inputs, "input", "i", nil, "Kickoff input as key=value (repeatable)")
	cmd.Flags().StringVar(&opts.inputsFile, "inputs-file", "", "YAML file with one input map or a list of them")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Concurrent runs for an inputs list (default from CREW_CONCURRENCY)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the crew outputs as JSON")

	return cmd
}

func runCrew(cmd *cobra.Command, path string, opts *runOptions) error {
	def, err := crewfile.LoadFile(path)
	if err != nil {
		return err
	}
	agents, tasks, err := def.Build()
	if err != nil {
		return fmt.Errorf("invalid crew file: %w", err)
	}

	inputSets, err := opts.inputSets(def.Inputs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	planning := def.Planning || opts.planning
	var target config.PlanningTarget
	if planning {
		if target, err = a.cfg.LLM.Planning(firstNonEmpty(opts.planningLLM, def.PlanningLLM)); err != nil {
			return err
		}
	}
	taskClient, planningClient, err := a.llmClients(planning, target)
	if err != nil {
		return err
	}

	crew, err := orchestrator.NewCrew(orchestrator.CrewConfig{
		Name:             def.Name,
		Agents:           agents,
		Tasks:            tasks,
		Process:          domain.Process(def.Process),
		Planning:         planning,
		PlanningLLM:      target.Model,
		Verbose:          def.Verbose || opts.verbose,
		LLMClient:        taskClient,
		PlanningClient:   planningClient,
		Model:            a.cfg.LLM.DefaultModel,
		Temperature:      a.cfg.LLM.DefaultTemperature,
		MaxTokens:        a.cfg.LLM.DefaultMaxTokens,
		ExecutionTimeout: a.cfg.Crew.ExecutionTimeout,
		EventBus:         a.eventBus,
		Storage:          a.storage,
		Metrics:          a.metrics,
		TracerProvider:   a.telemetry.TracerProvider(),
		Logger:           a.logger,
	})
	if err != nil {
		return fmt.Errorf("invalid crew: %w", err)
	}

	concurrency := opts.concurrency
	if concurrency <= 0 {
		concurrency = a.cfg.Crew.Concurrency
	}
	pool := orchestrator.NewPool(concurrency, a.metrics, a.logger)

	outputs, err := pool.KickoffForEach(ctx, crew, inputSets)
	if err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Crew.ShutdownTimeout)
		defer cancel()
		if shutdownErr := crew.Shutdown(shutdownCtx); shutdownErr != nil {
			a.logger.Error("crew shutdown error", zap.Error(shutdownErr))
		}
		return err
	}

	return printOutputs(cmd.OutOrStdout(), outputs, opts.jsonOutput)
}

// inputSets merges the crew file inputs, the inputs file and --input pairs
func (o *runOptions) inputSets(defaults map[string]string) ([]map[string]string, error) {
	overrides, err := parseInputs(o.inputs)
	if err != nil {
		return nil, err
	}

	sets := []map[string]string{{}}
	if o.inputsFile != "" {
		sets, err = crewfile.LoadInputs(o.inputsFile)
		if err != nil {
			return nil, err
		}
		if len(sets) == 0 {
			return nil, fmt.Errorf("inputs file %s is empty", o.inputsFile)
		}
	}

	merged := make([]map[string]string, len(sets))
	for i, set := range sets {
		m := make(map[string]string, len(defaults)+len(set)+len(overrides))
		for k, v := range defaults {
			m[k] = v
		}
		for k, v := range set {
			m[k] = v
		}
		for k, v := range overrides {
			m[k] = v
		}
		merged[i] = m
	}
	return merged, nil
}

// parseInputs parses key=value pairs
func parseInputs(pairs []string) (map[string]string, error) {
	inputs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid input %q, expected key=value", pair)
		}
		inputs[strings.TrimSpace(key)] = value
	}
	return inputs, nil
}

func printOutputs(w io.Writer, outputs []*domain.CrewOutput, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(outputs) == 1 {
			return enc.Encode(outputs[0])
		}
		return enc.Encode(outputs)
	}

	for i, out := range outputs {
		if len(outputs) > 1 {
			fmt.Fprintf(w, "=== run %d (%s) ===\n", i+1, out.RunID)
		}
		fmt.Fprintln(w, out.Raw)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
