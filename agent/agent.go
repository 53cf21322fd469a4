// Package agent implements the execution loop driving a model through
// repeated propose-execute-observe turns until the model submits or a
// resource limit is reached.
//
// The wire protocol between model output and the loop is a single triple
// backtick code fence tagged bash: the assistant turn must contain exactly
// one, and its body is the command. A command whose output starts with the
// line COMPLETE_TASK_AND_SUBMIT_FINAL_OUTPUT ends the run; the remaining
// output is the submitted result.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"text/template"

	"github.com/zhuxie0719/codeagent/environment"
	"github.com/zhuxie0719/codeagent/model"
	"github.com/zhuxie0719/codeagent/retry"
)

// FinishSentinel ends the run when it appears as the first non-blank line of
// a command's output.
const FinishSentinel = "COMPLETE_TASK_AND_SUBMIT_FINAL_OUTPUT"

// Status tags the terminal state of a run. Limit statuses are designed
// outcomes, not faults.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusLimitCost Status = "limit_cost"
	StatusLimitStep Status = "limit_step"
	StatusError     Status = "error"
)

// RunOutcome is the terminal value of one run.
type RunOutcome struct {
	Status Status `json:"status"`
	Result string `json:"result"`
}

// Decision is the governor's verdict before a step.
type Decision int

const (
	Continue Decision = iota
	StopCost
	StopStep
)

// Limits is the cost/step governor. Zero values mean unlimited. Check is
// evaluated before each model call; a call that pushes cumulative cost over
// the ceiling still completes and its command still executes, the overshoot
// is caught before the next call.
type Limits struct {
	CostLimit float64 `yaml:"cost_limit"`
	StepLimit int     `yaml:"step_limit"`
}

// Check decides whether another step may start given cumulative cost and
// the governed step count.
func (l Limits) Check(cost float64, steps int) Decision {
	if l.CostLimit > 0 && cost >= l.CostLimit {
		return StopCost
	}
	if l.StepLimit > 0 && steps >= l.StepLimit {
		return StopStep
	}
	return Continue
}

const defaultSystemTemplate = `You are a helpful assistant that can interact with a computer to solve tasks.

Your response must contain EXACTLY ONE bash code block with ONE command (or commands chained with && or ;):

` + "```bash\nyour_command_here\n```" + `

Include a short thought before the command explaining your reasoning.
When the task is complete, run:

` + "```bash\necho " + FinishSentinel + "\n```" + `

followed in the same block by commands that print the final output.`

const defaultInstanceTemplate = `Please solve this task:

{{.Task}}

Respond with exactly one bash code block per turn.`

const defaultObservationTemplate = `Observation: command exited with code {{.ExitCode}}
{{.Output}}`

const defaultFormatErrorTemplate = `Please always provide EXACTLY ONE action in triple backticks, e.g.

` + "```bash\nls\n```" + `

Responses with zero or multiple code blocks cannot be executed.`

const defaultTimeoutTemplate = `The command timed out and was killed. Partial output before the timeout:
{{.Output}}`

// Config holds the recognized agent options. Templates use text/template
// syntax over templateData; empty templates fall back to the defaults above.
type Config struct {
	SystemTemplate      string  `yaml:"system_template"`
	InstanceTemplate    string  `yaml:"instance_template"`
	ObservationTemplate string  `yaml:"observation_template"`
	FormatErrorTemplate string  `yaml:"format_error_template"`
	TimeoutTemplate     string  `yaml:"timeout_template"`
	CostLimit           float64 `yaml:"cost_limit"`
	StepLimit           int     `yaml:"step_limit"`
	// CountFormatErrors selects whether protocol violations count toward
	// the step limit. When true the governed step count is the model call
	// count, so corrective re-prompts consume budget; when false only
	// executed commands count.
	CountFormatErrors bool `yaml:"count_format_errors"`
	// FormatErrorLimit caps consecutive protocol violations before the run
	// fails, preventing unproductive loops.
	FormatErrorLimit int `yaml:"format_error_limit"`
	// OutputLimit caps observation length in characters. Zero disables.
	OutputLimit int          `yaml:"output_limit"`
	Retry       retry.Policy `yaml:"-"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		SystemTemplate:      defaultSystemTemplate,
		InstanceTemplate:    defaultInstanceTemplate,
		ObservationTemplate: defaultObservationTemplate,
		FormatErrorTemplate: defaultFormatErrorTemplate,
		TimeoutTemplate:     defaultTimeoutTemplate,
		CountFormatErrors:   true,
		FormatErrorLimit:    5,
		OutputLimit:         30000,
		Retry:               retry.DefaultPolicy(),
	}
}

// templateData is the rendering context for all agent templates.
type templateData struct {
	Task        string
	Output      string
	ExitCode    int
	NModelCalls int
	ModelCost   float64
}

type templates struct {
	system      *template.Template
	instance    *template.Template
	observation *template.Template
	formatError *template.Template
	timeout     *template.Template
}

// Agent drives one run. An Agent is single-threaded: no two steps overlap,
// and the message history is owned exclusively by the run.
type Agent struct {
	model  model.Model
	env    environment.Environment
	config Config
	logger *slog.Logger
	tmpl   templates

	task         string
	messages     []model.Message
	execSteps    int
	formatErrors int

	// beforeExecute may veto a parsed command; a *Rejection becomes an
	// observation, any other error ends the run.
	beforeExecute func(ctx context.Context, command string) error
	// onSubmission may turn a submission into a follow-up task instead of
	// terminating.
	onSubmission func(ctx context.Context, result string) (followUp string, resume bool, err error)
}

// Option customizes an Agent.
type Option func(*Agent)

// WithLogger sets the agent's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// New builds an agent from a model, an environment, and a config. Zero-value
// config fields take their defaults.
func New(m model.Model, env environment.Environment, config Config, opts ...Option) (*Agent, error) {
	defaults := DefaultConfig()
	if config.SystemTemplate == "" {
		config.SystemTemplate = defaults.SystemTemplate
	}
	if config.InstanceTemplate == "" {
		config.InstanceTemplate = defaults.InstanceTemplate
	}
	if config.ObservationTemplate == "" {
		config.ObservationTemplate = defaults.ObservationTemplate
	}
	if config.FormatErrorTemplate == "" {
		config.FormatErrorTemplate = defaults.FormatErrorTemplate
	}
	if config.TimeoutTemplate == "" {
		config.TimeoutTemplate = defaults.TimeoutTemplate
	}
	if config.FormatErrorLimit <= 0 {
		config.FormatErrorLimit = defaults.FormatErrorLimit
	}
	if config.Retry.Multiplier == 0 {
		config.Retry = defaults.Retry
	}

	a := &Agent{
		model:  m,
		env:    env,
		config: config,
		logger: slog.Default().With("component", "agent"),
	}
	for _, opt := range opts {
		opt(a)
	}

	var err error
	if a.tmpl.system, err = parseTemplate("system", config.SystemTemplate); err != nil {
		return nil, err
	}
	if a.tmpl.instance, err = parseTemplate("instance", config.InstanceTemplate); err != nil {
		return nil, err
	}
	if a.tmpl.observation, err = parseTemplate("observation", config.ObservationTemplate); err != nil {
		return nil, err
	}
	if a.tmpl.formatError, err = parseTemplate("format_error", config.FormatErrorTemplate); err != nil {
		return nil, err
	}
	if a.tmpl.timeout, err = parseTemplate("timeout", config.TimeoutTemplate); err != nil {
		return nil, err
	}
	return a, nil
}

func parseTemplate(name, text string) (*template.Template, error) {
	t, err := template.New(name).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid %s template: %w", name, err)
	}
	return t, nil
}

// Messages returns the history accumulated so far. The caller must not
// mutate it while a run is in progress.
func (a *Agent) Messages() []model.Message {
	return a.messages
}

// Model returns the agent's model.
func (a *Agent) Model() model.Model {
	return a.model
}

// Environment returns the agent's execution backend.
func (a *Agent) Environment() environment.Environment {
	return a.env
}

// Task returns the task of the current or most recent run.
func (a *Agent) Task() string {
	return a.task
}

// Limits returns the governor built from the config.
func (a *Agent) Limits() Limits {
	return Limits{CostLimit: a.config.CostLimit, StepLimit: a.config.StepLimit}
}

var commandFence = regexp.MustCompile("(?s)```bash\n(.*?)\n```")

// ParseCommand extracts the single bash command from an assistant turn. A
// turn with zero or multiple fenced blocks is a *ProtocolViolation.
func ParseCommand(content string) (string, error) {
	matches := commandFence.FindAllStringSubmatch(content, -1)
	if len(matches) != 1 {
		return "", &ProtocolViolation{Actions: len(matches)}
	}
	return strings.TrimSpace(matches[0][1]), nil
}

// Run executes the loop for task until submission, a limit, or an error.
// The history always satisfies one user observation per assistant turn, so
// it is fully inspectable on every exit path.
func (a *Agent) Run(ctx context.Context, task string) RunOutcome {
	a.task = task
	// A fresh slice per run keeps histories handed out by Messages from
	// earlier runs intact.
	a.messages = nil
	a.execSteps = 0
	a.formatErrors = 0

	a.append(model.SystemMessage(a.render(a.tmpl.system, templateData{})))
	a.append(model.UserMessage(a.render(a.tmpl.instance, templateData{Task: task})))

	limits := a.Limits()
	for {
		if err := ctx.Err(); err != nil {
			return RunOutcome{Status: StatusError, Result: fmt.Sprintf("run canceled: %v", err)}
		}

		cost := a.model.Cost()
		switch limits.Check(cost, a.governedSteps()) {
		case StopCost:
			a.logger.Info("cost limit reached", "cost", cost, "limit", limits.CostLimit)
			return RunOutcome{Status: StatusLimitCost, Result: fmt.Sprintf("cost limit reached: %.2f >= %.2f", cost, limits.CostLimit)}
		case StopStep:
			a.logger.Info("step limit reached", "steps", a.governedSteps(), "limit", limits.StepLimit)
			return RunOutcome{Status: StatusLimitStep, Result: fmt.Sprintf("step limit reached: %d", limits.StepLimit)}
		}

		response, err := retry.Do(ctx, a.config.Retry, func(ctx context.Context) (model.Response, error) {
			return a.model.Query(ctx, a.messages)
		})
		if err != nil {
			return RunOutcome{Status: StatusError, Result: fmt.Sprintf("model query failed: %v", err)}
		}
		a.append(model.AssistantMessage(response.Content))

		command, err := ParseCommand(response.Content)
		if err != nil {
			a.formatErrors++
			a.logger.Warn("protocol violation", "consecutive", a.formatErrors, "error", err)
			a.append(model.UserMessage(a.renderUser(a.tmpl.formatError, templateData{})))
			if a.formatErrors >= a.config.FormatErrorLimit {
				return RunOutcome{Status: StatusError, Result: fmt.Sprintf("%d consecutive malformed responses: %v", a.formatErrors, err)}
			}
			continue
		}
		a.formatErrors = 0

		if a.beforeExecute != nil {
			if err := a.beforeExecute(ctx, command); err != nil {
				var rejection *Rejection
				if errors.As(err, &rejection) {
					a.append(model.UserMessage("Command not executed. " + rejection.Message))
					continue
				}
				a.append(model.UserMessage(fmt.Sprintf("Command not executed: %v", err)))
				return RunOutcome{Status: StatusError, Result: err.Error()}
			}
		}

		a.logger.Debug("executing command", "command", command)
		result, err := a.env.Execute(ctx, command)
		if err != nil {
			a.append(model.UserMessage(fmt.Sprintf("Command failed to execute: %v", err)))
			return RunOutcome{Status: StatusError, Result: fmt.Sprintf("environment failure: %v", err)}
		}

		if submitted, ok := submission(result.Output); ok && !result.TimedOut {
			if a.onSubmission != nil {
				followUp, resume, err := a.onSubmission(ctx, submitted)
				if err != nil {
					a.append(model.UserMessage(fmt.Sprintf("Submission aborted: %v", err)))
					return RunOutcome{Status: StatusError, Result: err.Error()}
				}
				if resume {
					a.append(model.UserMessage(followUp))
					a.execSteps++
					continue
				}
			}
			a.append(model.UserMessage(submitted))
			a.execSteps++
			a.logger.Info("task submitted", "steps", a.execSteps, "cost", a.model.Cost())
			return RunOutcome{Status: StatusSubmitted, Result: submitted}
		}

		a.append(model.UserMessage(a.observation(result)))
		a.execSteps++
	}
}

// governedSteps is the count the step limit is checked against, per the
// configured violation counting policy.
func (a *Agent) governedSteps() int {
	if a.config.CountFormatErrors {
		return a.model.CallCount()
	}
	return a.execSteps
}

func (a *Agent) observation(result environment.ExecutionResult) string {
	data := a.data(templateData{Output: result.Output, ExitCode: result.ExitCode})
	text := a.render(a.tmpl.observation, data)
	if result.TimedOut {
		text = a.render(a.tmpl.timeout, data)
	}
	return Truncate(text, a.config.OutputLimit)
}

// data fills in the model stats fields shared by every rendering.
func (a *Agent) data(d templateData) templateData {
	d.Task = a.task
	d.NModelCalls = a.model.CallCount()
	d.ModelCost = a.model.Cost()
	return d
}

func (a *Agent) render(t *template.Template, d templateData) string {
	var sb strings.Builder
	if err := t.Execute(&sb, a.data(d)); err != nil {
		a.logger.Error("template rendering failed", "template", t.Name(), "error", err)
		return d.Output
	}
	return sb.String()
}

func (a *Agent) renderUser(t *template.Template, d templateData) string {
	return Truncate(a.render(t, d), a.config.OutputLimit)
}

func (a *Agent) append(m model.Message) {
	a.messages = append(a.messages, m)
}

// submission reports whether output's first non-blank line is the finish
// sentinel; the remainder of the output is the submitted result.
func submission(output string) (string, bool) {
	trimmed := strings.TrimLeft(output, " \t\r\n")
	first, rest, found := strings.Cut(trimmed, "\n")
	if strings.TrimSpace(first) != FinishSentinel {
		return "", false
	}
	if !found {
		return "", true
	}
	return rest, true
}

// RenderTemplate renders a one-off template string against the agent's
// current task and model stats. Useful for custom prompt previews.
func (a *Agent) RenderTemplate(text string) (string, error) {
	t, err := parseTemplate("adhoc", text)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := t.Execute(&sb, a.data(templateData{})); err != nil {
		return "", err
	}
	return sb.String(), nil
}
