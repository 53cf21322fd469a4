package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhuxie0719/codeagent/agent"
	"github.com/zhuxie0719/codeagent/config"
	"github.com/zhuxie0719/codeagent/trajectory"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

var (
	flagTask      string
	flagConfig    string
	flagModel     string
	flagYolo      bool
	flagOutput    string
	flagCostLimit float64
	flagStepLimit int
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:           "codeagent",
	Short:         "Drive a language model through command-execute-observe turns",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent on a task",
	RunE:  runAgent,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <trajectory.json>",
	Short: "Summarize a saved trajectory",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectTrajectory,
}

func init() {
	runCmd.Flags().StringVarP(&flagTask, "task", "t", "", "task description (prompted if omitted)")
	runCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "YAML run configuration file")
	runCmd.Flags().StringVarP(&flagModel, "model", "m", "", "model name override")
	runCmd.Flags().BoolVarP(&flagYolo, "yolo", "y", false, "execute commands without confirmation")
	runCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "trajectory output path")
	runCmd.Flags().Float64Var(&flagCostLimit, "cost-limit", 0, "maximum cumulative cost (0 = unlimited)")
	runCmd.Flags().IntVar(&flagStepLimit, "step-limit", 0, "maximum steps (0 = unlimited)")
	runCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
}

func setupLogging() {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func runAgent(cmd *cobra.Command, args []string) error {
	setupLogging()
	// Missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	cfg := config.Default()
	if flagConfig != "" {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
	}
	if flagModel != "" {
		cfg.Model.ModelName = flagModel
	}
	if flagCostLimit > 0 {
		cfg.Agent.CostLimit = flagCostLimit
	}
	if flagStepLimit > 0 {
		cfg.Agent.StepLimit = flagStepLimit
	}
	if flagYolo {
		cfg.Interactive.Mode = agent.ModeYolo
	}

	task := flagTask
	if task == "" {
		var err error
		task, err = promptTask()
		if err != nil {
			return err
		}
	}
	if task == "" {
		return fmt.Errorf("no task given")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := cfg.Build(ctx)
	if err != nil {
		return err
	}
	defer components.Close()

	ia, err := agent.NewInteractive(components.Model, components.Environment, cfg.Agent, cfg.Interactive, &huhPrompter{})
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("codeagent") + "  " + task)
	outcome := ia.Run(ctx, task)

	if flagOutput != "" {
		traj := trajectory.New(ia.Agent, outcome)
		if err := traj.Save(flagOutput); err != nil {
			return err
		}
		fmt.Println("trajectory saved to " + flagOutput)
	}

	switch outcome.Status {
	case agent.StatusSubmitted:
		fmt.Println(successStyle.Render("submitted"))
		fmt.Println(outcome.Result)
	case agent.StatusLimitCost, agent.StatusLimitStep:
		fmt.Println(warnStyle.Render(string(outcome.Status)) + "  " + outcome.Result)
	default:
		return fmt.Errorf("run failed: %s", outcome.Result)
	}
	return nil
}

func inspectTrajectory(cmd *cobra.Command, args []string) error {
	setupLogging()
	traj, err := trajectory.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render("trajectory ") + traj.Info.RunID)
	fmt.Printf("format:   %s\n", traj.Format)
	fmt.Printf("task:     %s\n", traj.Info.Task)
	fmt.Printf("status:   %s\n", traj.Info.ExitStatus)
	fmt.Printf("model:    %s (%d calls, $%.4f)\n", traj.Info.Config.ModelType, traj.Info.ModelStats.NCalls, traj.Info.ModelStats.Cost)
	fmt.Printf("messages: %d\n", len(traj.Messages))
	if traj.Info.Submission != "" {
		fmt.Println(successStyle.Render("submission:"))
		fmt.Println(traj.Info.Submission)
	}
	return nil
}
