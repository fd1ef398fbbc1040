package config

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// Prompter asks the setup wizard's questions.
type Prompter interface {
	// Select returns the index of the chosen item; cursor is preselected.
	Select(label string, items []string, cursor int) (int, error)
	// Input returns the entered text, or def when nothing is entered.
	Input(label, def string, validate func(string) error) (string, error)
}

// TerminalPrompter asks on the terminal.
type TerminalPrompter struct{}

func (TerminalPrompter) Select(label string, items []string, cursor int) (int, error) {
	p := promptui.Select{
		Label:     label,
		Items:     items,
		CursorPos: cursor,
	}
	idx, _, err := p.Run()
	return idx, err
}

func (TerminalPrompter) Input(label, def string, validate func(string) error) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  def,
		Validate: validate,
	}
	return p.Run()
}

var loopGuardChoices = []struct {
	Policy LoopGuardPolicy
	Label  string
}{
	{LoopGuardHeuristic, "heuristic (bot flags, own agents, \"bot\" in Teams sender names)"},
	{LoopGuardStrict, "strict (bot flags and own agents only)"},
}

// RunWizard asks for the main settings, starting from the defaults, and
// saves the result to path.
func RunWizard(p Prompter, path string, out io.Writer) (*Config, error) {
	fmt.Fprintln(out, "Welcome to relay! Let's configure the webhook server.")
	fmt.Fprintln(out)

	cfg := DefaultConfig()

	// 1. Port.
	port, err := p.Input("HTTP port", strconv.Itoa(cfg.Server.Port), validatePort)
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(strings.TrimSpace(port))

	// 2. Webhook path.
	hookPath, err := p.Input("Webhook path", cfg.Webhook.Path, validateWebhookPath)
	if err != nil {
		return nil, fmt.Errorf("webhook path: %w", err)
	}
	cfg.Webhook.Path = strings.TrimSpace(hookPath)

	// 3. Model endpoint.
	baseURL, err := p.Input("OpenAI-compatible API base URL", cfg.Model.BaseURL, validateHTTPURL)
	if err != nil {
		return nil, fmt.Errorf("model base url: %w", err)
	}
	cfg.Model.BaseURL = strings.TrimSpace(baseURL)

	// 4. Loop guard.
	items := make([]string, len(loopGuardChoices))
	cursor := 0
	for i, c := range loopGuardChoices {
		items[i] = c.Label
		if c.Policy == cfg.Webhook.LoopGuard {
			cursor = i
		}
	}
	idx, err := p.Select("Loop guard policy", items, cursor)
	if err != nil {
		return nil, fmt.Errorf("loop guard selection: %w", err)
	}
	cfg.Webhook.LoopGuard = loopGuardChoices[idx].Policy

	// 5. Slack signatures.
	if cfg.Webhook.VerifySlackSignatures, err = selectYesNo(p, "Require signed Slack requests?", cfg.Webhook.VerifySlackSignatures); err != nil {
		return nil, fmt.Errorf("signature selection: %w", err)
	}

	// 6. Dispatch mode.
	if cfg.Webhook.AsyncDispatch, err = selectYesNo(p, "Acknowledge webhooks before replying?", cfg.Webhook.AsyncDispatch); err != nil {
		return nil, fmt.Errorf("dispatch mode selection: %w", err)
	}
	if !cfg.Webhook.AsyncDispatch {
		fmt.Fprintln(out, "\nNote: Slack redelivers events not acknowledged within 3 seconds; slow replies may be posted twice.")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration saved to %s\n", path)
	fmt.Fprintln(out, "Add agents with: relay agents import <file.yaml>")
	return cfg, nil
}

func selectYesNo(p Prompter, label string, current bool) (bool, error) {
	cursor := 1
	if current {
		cursor = 0
	}
	idx, err := p.Select(label, []string{"yes", "no"}, cursor)
	if err != nil {
		return false, err
	}
	return idx == 0, nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}

func validateWebhookPath(s string) error {
	if !strings.HasPrefix(strings.TrimSpace(s), "/") {
		return fmt.Errorf("path must start with /")
	}
	return nil
}

func validateHTTPURL(s string) error {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}
