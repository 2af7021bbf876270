package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zen-systems/crewgate/pkg/adapter"
	"github.com/zen-systems/crewgate/pkg/agent"
	"github.com/zen-systems/crewgate/pkg/config"
	"github.com/zen-systems/crewgate/pkg/dispatch"
	"github.com/zen-systems/crewgate/pkg/gate"
	"github.com/zen-systems/crewgate/pkg/router"
	"github.com/zen-systems/crewgate/pkg/task"
)

var (
	routingFile string
	agentsFile  string
	mockFlag    bool
	debugFlag   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "crewgate",
		Short: "Hierarchical task routing for multi-agent crews",
		Long: `Crewgate routes tasks to the right agent in a tiered crew: it
classifies each task into a domain, determines the hierarchy tier, and
selects an agent by successively relaxing the match criteria.`,
	}

	rootCmd.PersistentFlags().StringVar(&routingFile, "routing", "", "path to routing config file")
	rootCmd.PersistentFlags().StringVar(&agentsFile, "agents", "", "path to agent roster file")
	rootCmd.PersistentFlags().BoolVar(&mockFlag, "mock", false, "back every agent with the mock adapter")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(domainsCmd())
	rootCmd.AddCommand(agentsCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func routeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route [description]",
		Short: "Route a single task and show the decision",
		Long: `Classifies the task, determines its tier, and selects an agent
from the roster without executing anything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pool, _, err := buildRoutingParts()
			if err != nil {
				return err
			}

			r, err := router.NewHierarchicalRouter(cfg.RoutingConfig, router.WithDebug(debugFlag))
			if err != nil {
				return err
			}

			t := task.New(args[0])
			_, decision, err := r.RouteWithDecision(t, pool)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "task\t%s\n", t.ID)
			fmt.Fprintf(w, "mode\t%s\n", decision.Mode)
			fmt.Fprintf(w, "domain\t%s (score %.1f)\n", decision.Domain, decision.DomainScore)
			fmt.Fprintf(w, "tier\t%d\n", decision.Tier)
			fmt.Fprintf(w, "agent\t%s\n", decision.AgentRole)
			fmt.Fprintf(w, "match\t%s\n", decision.Relaxation)
			for _, reason := range decision.Reasons {
				fmt.Fprintf(w, "note\t%s\n", reason)
			}
			return w.Flush()
		},
	}
}

func batchCmd() *cobra.Command {
	var tasksetFile string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Route every task in a taskset and show the assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := loadTaskset(tasksetFile)
			if err != nil {
				return err
			}

			cfg, pool, _, err := buildRoutingParts()
			if err != nil {
				return err
			}

			r, err := router.NewHierarchicalRouter(cfg.RoutingConfig, router.WithDebug(debugFlag))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tDOMAIN\tTIER\tAGENT\tMATCH")
			for _, t := range ts.BuildTasks() {
				_, decision, err := r.RouteWithDecision(t, pool)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					t.ID, decision.Domain, decision.Tier, decision.AgentRole, decision.Relaxation)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&tasksetFile, "file", "f", "", "taskset manifest path (required)")

	return cmd
}

func statsCmd() *cobra.Command {
	var tasksetFile string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show routing statistics for a taskset",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := loadTaskset(tasksetFile)
			if err != nil {
				return err
			}

			cfg, pool, _, err := buildRoutingParts()
			if err != nil {
				return err
			}

			r, err := router.NewHierarchicalRouter(cfg.RoutingConfig)
			if err != nil {
				return err
			}

			stats, err := r.RoutingStats(ts.BuildTasks(), pool)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "tasks\t%d\n", stats.Total)
			fmt.Fprintln(w)

			fmt.Fprintln(w, "TIER\tCOUNT\tPERCENT")
			for tier := 1; tier <= 3; tier++ {
				fmt.Fprintf(w, "%d\t%d\t%.1f%%\n", tier, stats.TierCounts[tier], stats.TierPercents[tier])
			}
			fmt.Fprintln(w)

			fmt.Fprintln(w, "DOMAIN\tCOUNT")
			for _, name := range sortedKeys(stats.DomainCounts) {
				fmt.Fprintf(w, "%s\t%d\n", name, stats.DomainCounts[name])
			}
			fmt.Fprintln(w)

			fmt.Fprintln(w, "AGENT\tTASKS")
			for _, role := range sortedKeys(stats.AgentUtilization) {
				fmt.Fprintf(w, "%s\t%d\n", role, stats.AgentUtilization[role])
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&tasksetFile, "file", "f", "", "taskset manifest path (required)")

	return cmd
}

func domainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "Show the declared classification domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DOMAIN\tPRIORITY\tPATTERNS")

			rank := make(map[string]int, len(cfg.RoutingConfig.Priority))
			for i, name := range cfg.RoutingConfig.Priority {
				rank[name] = i + 1
			}

			for _, spec := range cfg.RoutingConfig.Domains {
				priority := "-"
				if p, ok := rank[spec.Name]; ok {
					priority = fmt.Sprintf("%d", p)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", spec.Name, priority, strings.Join(spec.Patterns, ", "))
			}
			return w.Flush()
		},
	}
}

func agentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "Show the agent roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			roster, err := loadRoster()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ROLE\tTIER\tSPECIALIZATION\tADAPTER\tMODEL\tSTATUS")
			for _, spec := range roster.Agents {
				status := "no key"
				if cfg.HasAdapter(spec.Adapter) || spec.Adapter == "mock" || mockFlag {
					status = "ready"
				}
				specialization := spec.Specialization
				if specialization == "" {
					specialization = "general"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
					spec.Role, spec.Tier, specialization, spec.Adapter, spec.Model, status)
			}
			return w.Flush()
		},
	}
}

func validateCmd() *cobra.Command {
	var tasksetFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate routing config, roster, and optionally a taskset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			roster, err := loadRoster()
			if err != nil {
				return err
			}

			var errs []error
			errs = append(errs, config.ValidateRoutingConfig(cfg.RoutingConfig)...)
			errs = append(errs, config.ValidateRoster(roster, cfg.RoutingConfig)...)

			if tasksetFile != "" {
				ts, err := dispatch.LoadTaskset(tasksetFile)
				if err != nil {
					errs = append(errs, err)
				} else if err := ts.Validate(); err != nil {
					errs = append(errs, err)
				}
			}

			if len(errs) == 0 {
				fmt.Println("Configuration is valid.")
				return nil
			}

			fmt.Fprintf(os.Stderr, "Found %d validation errors:\n", len(errs))
			for _, err := range errs {
				fmt.Fprintf(os.Stderr, "  - %s\n", err)
			}
			return fmt.Errorf("validation failed")
		},
	}

	cmd.Flags().StringVarP(&tasksetFile, "file", "f", "", "taskset manifest path to validate")

	return cmd
}

func runCmd() *cobra.Command {
	var tasksetFile string
	var outFlag string
	var gateFlag string
	var maxBudgetUSD float64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Route and execute a taskset",
		Long: `Routes every task in the taskset, executes each on its selected
agent, and writes an evidence bundle with the decision log.

Use --gate to enable the hollowcheck quality gate with automatic repair
when an output fails its checks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := loadTaskset(tasksetFile)
			if err != nil {
				return err
			}

			cfg, pool, adapters, err := buildRoutingParts()
			if err != nil {
				return err
			}

			r, err := router.NewHierarchicalRouter(cfg.RoutingConfig, router.WithDebug(debugFlag))
			if err != nil {
				return err
			}

			var gates []gate.Gate
			if gateFlag != "" {
				gates = append(gates, gate.NewHollowCheckGate("", gateFlag))
			}

			runner, err := dispatch.NewRunner(r, pool, adapters, cfg.RoutingConfig, gates...)
			if err != nil {
				return err
			}

			result, err := runner.Run(cmd.Context(), ts, dispatch.RunOptions{
				EvidenceDir:  outFlag,
				TasksetPath:  tasksetFile,
				MaxBudgetUSD: maxBudgetUSD,
				Logger: func(format string, logArgs ...any) {
					fmt.Fprintf(os.Stderr, format+"\n", logArgs...)
				},
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "Run complete. Evidence: %s\n", result.EvidenceDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&tasksetFile, "file", "f", "", "taskset manifest path (required)")
	cmd.Flags().StringVar(&outFlag, "out", "", "evidence output base directory")
	cmd.Flags().StringVar(&gateFlag, "gate", "", "enable hollowcheck gate with contract file")
	cmd.Flags().Float64Var(&maxBudgetUSD, "max-budget-usd", 0, "maximum USD budget for adapter calls (0 disables)")

	return cmd
}

func loadTaskset(path string) (*dispatch.Taskset, error) {
	if path == "" {
		return nil, fmt.Errorf("taskset file is required")
	}
	ts, err := dispatch.LoadTaskset(path)
	if err != nil {
		return nil, err
	}
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	return ts, nil
}

func loadConfig() (*config.Config, error) {
	if routingFile != "" {
		return config.LoadWithRoutingFile(routingFile)
	}
	return config.Load()
}

func loadRoster() (*config.AgentRoster, error) {
	if agentsFile != "" {
		return config.LoadRoster(agentsFile)
	}
	return config.LoadRosterWithFallback("configs/agents.yaml")
}

func buildRoutingParts() (*config.Config, []agent.Agent, map[string]adapter.Adapter, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	roster, err := loadRoster()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load roster: %w", err)
	}

	adapters, err := createAdapters(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	if mockFlag {
		// Back every roster entry with the mock adapter, keys or not.
		adapters = map[string]adapter.Adapter{"mock": adapter.NewMockAdapter()}
		for i := range roster.Agents {
			roster.Agents[i].Adapter = "mock"
		}
	}

	pool, err := agent.BuildPool(roster, adapters)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, pool, adapters, nil
}

func createAdapters(cfg *config.Config) (map[string]adapter.Adapter, error) {
	adapters := make(map[string]adapter.Adapter)

	if cfg.AnthropicAPIKey != "" {
		a, err := adapter.NewAnthropicAdapter(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic adapter: %w", err)
		}
		adapters["anthropic"] = a
	}

	if cfg.OpenAIAPIKey != "" {
		a, err := adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai adapter: %w", err)
		}
		adapters["openai"] = a
	}

	if cfg.GoogleAPIKey != "" {
		a, err := adapter.NewGoogleAdapter(cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create google adapter: %w", err)
		}
		adapters["google"] = a
	}

	if cfg.DeepSeekAPIKey != "" {
		a, err := adapter.NewDeepSeekAdapter(cfg.DeepSeekAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create deepseek adapter: %w", err)
		}
		adapters["deepseek"] = a
	}

	adapters["mock"] = adapter.NewMockAdapter()

	return adapters, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
