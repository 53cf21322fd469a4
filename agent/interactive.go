package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/zhuxie0719/codeagent/environment"
	"github.com/zhuxie0719/codeagent/model"
)

// Mode selects how an InteractiveAgent handles proposed commands.
type Mode string

const (
	// ModeConfirm asks the operator before every non-whitelisted command.
	ModeConfirm Mode = "confirm"
	// ModeYolo executes everything without asking.
	ModeYolo Mode = "yolo"
)

// Prompter collects one line of operator input. An empty reply means
// acceptance; implementations decide how the message is displayed.
type Prompter interface {
	Prompt(ctx context.Context, message string) (string, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, message string) (string, error)

func (f PrompterFunc) Prompt(ctx context.Context, message string) (string, error) {
	return f(ctx, message)
}

const helpText = `Press enter to run the command.
/y  switch to yolo mode (stop asking for confirmation)
/h  show this help
Any other text rejects the command; the text is sent to the model as feedback.`

// InteractiveConfig holds the options specific to the interactive variant.
// WhitelistActions are regular expressions; commands fully matched by any of
// them skip confirmation.
type InteractiveConfig struct {
	Mode             Mode     `yaml:"mode"`
	WhitelistActions []string `yaml:"whitelist_actions"`
}

// InteractiveAgent widens the loop's state machine with operator
// checkpoints: each command awaits confirmation (unless whitelisted or in
// yolo mode), and a submission offers the operator a follow-up task before
// the run terminates.
type InteractiveAgent struct {
	*Agent
	prompter  Prompter
	mode      Mode
	whitelist []*regexp.Regexp
}

// NewInteractive builds an interactive agent around the standard loop.
func NewInteractive(m model.Model, env environment.Environment, config Config, icfg InteractiveConfig, prompter Prompter, opts ...Option) (*InteractiveAgent, error) {
	if prompter == nil {
		return nil, fmt.Errorf("interactive agent requires a prompter")
	}
	inner, err := New(m, env, config, opts...)
	if err != nil {
		return nil, err
	}

	ia := &InteractiveAgent{
		Agent:    inner,
		prompter: prompter,
		mode:     icfg.Mode,
	}
	if ia.mode == "" {
		ia.mode = ModeConfirm
	}
	// Patterns are anchored at the start of the command only, so a prefix
	// rule like `git status.*` covers commands with trailing arguments.
	for _, pattern := range icfg.WhitelistActions {
		re, err := regexp.Compile("^(?:" + pattern + ")")
		if err != nil {
			return nil, fmt.Errorf("invalid whitelist pattern %q: %w", pattern, err)
		}
		ia.whitelist = append(ia.whitelist, re)
	}

	inner.beforeExecute = ia.confirm
	inner.onSubmission = ia.followUp
	return ia, nil
}

// Mode returns the current confirmation mode.
func (ia *InteractiveAgent) Mode() Mode {
	return ia.mode
}

func (ia *InteractiveAgent) confirm(ctx context.Context, command string) error {
	if ia.mode == ModeYolo || ia.whitelisted(command) {
		return nil
	}
	message := fmt.Sprintf("Proposed command:\n\n  %s\n\nPress enter to run it, /y for yolo mode, /h for help, or type a rejection reason.", command)
	for {
		input, err := ia.prompter.Prompt(ctx, message)
		if err != nil {
			return fmt.Errorf("confirmation prompt failed: %w", err)
		}
		switch strings.TrimSpace(input) {
		case "":
			return nil
		case "/y":
			ia.mode = ModeYolo
			ia.logger.Info("yolo mode enabled")
			return nil
		case "/h":
			message = helpText
		default:
			return &Rejection{Message: "The user rejected this command with the following feedback:\n" + input}
		}
	}
}

func (ia *InteractiveAgent) followUp(ctx context.Context, result string) (string, bool, error) {
	input, err := ia.prompter.Prompt(ctx, "The agent wants to finish. Press enter to accept the result, or type a follow-up task.")
	if err != nil {
		return "", false, fmt.Errorf("follow-up prompt failed: %w", err)
	}
	task := strings.TrimSpace(input)
	if task == "" {
		return "", false, nil
	}
	return "The task is not finished yet. Here is the follow-up request:\n" + task, true, nil
}

func (ia *InteractiveAgent) whitelisted(command string) bool {
	for _, re := range ia.whitelist {
		if re.MatchString(command) {
			return true
		}
	}
	return false
}
