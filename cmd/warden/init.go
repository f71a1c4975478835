// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/warden-dev/warden/internal/config"
	"github.com/warden-dev/warden/internal/provider"
	"github.com/warden-dev/warden/internal/secrets"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// initHTTPClient is the HTTP client used for key validation.
// Exposed as a variable so tests can replace it.
var initHTTPClient = &http.Client{Timeout: 10 * time.Second}

const (
	providerKeySecret = "provider-api-key"
	webhookURLSecret  = "webhook-url"
)

// initWizardStep tracks which step of the wizard is active.
type initWizardStep int

const (
	stepProvider    initWizardStep = iota // select provider
	stepAPIKey                            // enter API key
	stepValidateKey                       // validating key (spinner)
	stepWebhook                           // optional alert webhook URL
	stepDone                              // wizard complete
	stepError                             // terminal error
)

// initResult holds the collected wizard configuration.
type initResult struct {
	Provider   string
	APIBase    string
	APIKey     string
	WebhookURL string
}

type (
	validationSuccessMsg struct{}
	validationErrorMsg   struct{ err error }
	configWrittenMsg     struct{ path string }
)

// initModel is the bubbletea model for the init wizard.
type initModel struct {
	step           initWizardStep
	providerIdx    int
	apiKeyInput    textinput.Model
	webhookInput   textinput.Model
	spinner        spinner.Model
	result         initResult
	validationErr  string
	configPath     string
	secretStore    secrets.Store
	errFinal       error
	skipValidation bool
	forceOverwrite bool
}

func newInitModel(store secrets.Store, apiBase string) initModel {
	apiKey := textinput.New()
	apiKey.Placeholder = "paste API key here"
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.EchoCharacter = '•'

	webhook := textinput.New()
	webhook.Placeholder = "https://hooks.slack.com/services/... (optional)"
	webhook.EchoMode = textinput.EchoPassword
	webhook.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return initModel{
		step:         stepProvider,
		apiKeyInput:  apiKey,
		webhookInput: webhook,
		spinner:      sp,
		secretStore:  store,
		result:       initResult{APIBase: apiBase},
	}
}

func (m initModel) Init() tea.Cmd {
	return nil
}

func (m initModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case validationSuccessMsg:
		m.step = stepWebhook
		m.validationErr = ""
		m.webhookInput.Focus()
		return m, textinput.Blink

	case validationErrorMsg:
		m.validationErr = msg.err.Error()
		m.step = stepAPIKey
		m.apiKeyInput.Focus()
		return m, nil

	case configWrittenMsg:
		m.step = stepDone
		m.configPath = msg.path
		return m, tea.Quit

	case error:
		m.step = stepError
		m.errFinal = msg
		return m, tea.Quit
	}

	return m.updateInputs(msg)
}

func (m initModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.step {
	case stepProvider:
		return m.handleProviderKey(msg)
	case stepAPIKey:
		return m.handleAPIKeyInput(msg)
	case stepWebhook:
		return m.handleWebhookInput(msg)
	}
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	return m, nil
}

func (m initModel) handleProviderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.providerIdx > 0 {
			m.providerIdx--
		}
	case "down", "j":
		if m.providerIdx < len(config.Providers)-1 {
			m.providerIdx++
		}
	case "enter":
		m.result.Provider = config.Providers[m.providerIdx]
		m.step = stepAPIKey
		m.validationErr = ""
		m.apiKeyInput.SetValue("")
		m.apiKeyInput.Focus()
		return m, textinput.Blink
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m initModel) handleAPIKeyInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		key := strings.TrimSpace(m.apiKeyInput.Value())
		if key == "" {
			m.validationErr = "API key must not be empty"
			return m, nil
		}
		m.result.APIKey = key
		m.validationErr = ""
		if m.skipValidation {
			return m.Update(validationSuccessMsg{})
		}
		m.step = stepValidateKey
		return m, tea.Batch(
			m.spinner.Tick,
			validateProviderKeyCmd(m.result),
		)
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.apiKeyInput, cmd = m.apiKeyInput.Update(msg)
	return m, cmd
}

func (m initModel) handleWebhookInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		url := strings.TrimSpace(m.webhookInput.Value())
		if url != "" && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
			m.validationErr = "webhook URL must start with http:// or https://"
			return m, nil
		}
		m.result.WebhookURL = url
		m.validationErr = ""
		return m, writeConfigCmd(m.result, m.secretStore, m.forceOverwrite)
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.webhookInput, cmd = m.webhookInput.Update(msg)
	return m, cmd
}

func (m initModel) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.step {
	case stepAPIKey:
		m.apiKeyInput, cmd = m.apiKeyInput.Update(msg)
	case stepWebhook:
		m.webhookInput, cmd = m.webhookInput.Update(msg)
	}
	return m, cmd
}

func (m initModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  Warden Setup  ") + "\n\n")

	switch m.step {
	case stepProvider:
		b.WriteString(promptStyle.Render("Step 1/2: Choose the model provider") + "\n\n")
		for i, p := range config.Providers {
			if i == m.providerIdx {
				b.WriteString(selectedStyle.Render("  > "+p) + "\n")
			} else {
				b.WriteString(dimStyle.Render("    "+p) + "\n")
			}
		}
		b.WriteString("\n" + dimStyle.Render("↑/↓ to navigate  enter to select  q to quit"))

	case stepAPIKey:
		b.WriteString(promptStyle.Render("Step 1/2: "+m.result.Provider+" API key") + "\n\n")
		b.WriteString(m.apiKeyInput.View() + "\n")
		if m.validationErr != "" {
			b.WriteString("\n" + errorStyle.Render("  "+m.validationErr) + "\n")
		}
		b.WriteString("\n" + dimStyle.Render("enter to continue  ctrl+c to quit"))

	case stepValidateKey:
		b.WriteString(m.spinner.View() + " Validating " + m.result.Provider + " API key…\n")

	case stepWebhook:
		b.WriteString(promptStyle.Render("Step 2/2: Alert webhook (Slack compatible)") + "\n\n")
		b.WriteString(m.webhookInput.View() + "\n")
		if m.validationErr != "" {
			b.WriteString("\n" + errorStyle.Render("  "+m.validationErr) + "\n")
		}
		b.WriteString("\n" + dimStyle.Render("enter to finish (leave empty to skip)  ctrl+c to quit"))

	case stepDone:
		b.WriteString(successStyle.Render("  Setup complete!  ") + "\n\n")
		if m.configPath != "" {
			b.WriteString(dimStyle.Render("Config written to: "+m.configPath) + "\n\n")
		}
		b.WriteString("Run " + promptStyle.Render("warden ask \"hello\"") + " to send a first request.\n")
		b.WriteString("Run " + promptStyle.Render("warden doctor") + " to verify setup.\n")

	case stepError:
		b.WriteString(errorStyle.Render("Setup failed: "+m.errFinal.Error()) + "\n")
	}

	return boxStyle.Render(b.String())
}

func validateProviderKeyCmd(result initResult) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := provider.ValidateKey(ctx, initHTTPClient, result.Provider, result.APIKey, result.APIBase); err != nil {
			return validationErrorMsg{err: err}
		}
		return validationSuccessMsg{}
	}
}

func writeConfigCmd(result initResult, store secrets.Store, forceOverwrite bool) tea.Cmd {
	return func() tea.Msg {
		path, err := storeSecretAndWriteConfig(result, store, forceOverwrite)
		if err != nil {
			return err
		}
		return configWrittenMsg{path: path}
	}
}

// GenerateConfigYAML produces a minimal warden.yaml from the wizard result.
// Credentials are referenced via keyring:// URIs; the values are stored
// separately by storeSecretAndWriteConfig.
func GenerateConfigYAML(result initResult) string {
	apiBase := result.APIBase
	if apiBase == "" {
		apiBase = defaultAPIBase(result.Provider)
	}

	var sb strings.Builder
	sb.WriteString("# Warden configuration, generated by warden init.\n")
	sb.WriteString("# See `warden doctor` to verify it.\n\n")

	sb.WriteString("provider:\n")
	fmt.Fprintf(&sb, "  name: %s\n", result.Provider)
	fmt.Fprintf(&sb, "  api_base: %q\n", apiBase)
	fmt.Fprintf(&sb, "  base_model: %q\n", defaultModelForProvider(result.Provider))
	fmt.Fprintf(&sb, "  api_key: %q\n", secrets.URI(secrets.DefaultService, providerKeySecret))
	if prefix := keyPrefixForProvider(result.Provider); prefix != "" {
		fmt.Fprintf(&sb, "  key_prefix: %q\n", prefix)
	}
	sb.WriteString("\n")

	sb.WriteString("storage:\n")
	sb.WriteString("  backend: jsonl\n\n")

	sb.WriteString("alerts:\n")
	sb.WriteString("  error_rate_pct: 10\n")
	sb.WriteString("  latency_p95_seconds: 5\n")
	sb.WriteString("  cost_per_hour_usd: 1\n")

	if result.WebhookURL != "" {
		sb.WriteString("\nnotify:\n")
		sb.WriteString("  webhook:\n")
		fmt.Fprintf(&sb, "    url: %q\n", secrets.URI(secrets.DefaultService, webhookURLSecret))
	}

	return sb.String()
}

// defaultModelForProvider returns a sensible default base model for a provider.
func defaultModelForProvider(p string) string {
	switch p {
	case "openai":
		return "gpt-4o-mini"
	case "gemini":
		return "gemini-2.5-flash"
	case "anthropic":
		return "claude-sonnet-4-5"
	default:
		return "default"
	}
}

func defaultAPIBase(p string) string {
	switch p {
	case "openai":
		return "https://api.openai.com/v1"
	case "gemini":
		return "https://generativelanguage.googleapis.com"
	case "anthropic":
		return "https://api.anthropic.com"
	default:
		return ""
	}
}

func keyPrefixForProvider(p string) string {
	switch p {
	case "openai":
		return "sk-"
	case "anthropic":
		return "sk-ant-"
	case "gemini":
		return "AIza"
	default:
		return ""
	}
}

// storeSecretAndWriteConfig saves credentials to the OS keyring and writes
// the config YAML to the default config path. An existing file is kept
// unless forceOverwrite is set.
func storeSecretAndWriteConfig(result initResult, store secrets.Store, forceOverwrite bool) (string, error) {
	cfgPath, err := configPathForWrite()
	if err != nil {
		return "", err
	}
	if !forceOverwrite {
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			return "", wardenerr.Errorf(wardenerr.CodeConfigAlreadyExists,
				"config file already exists at %s; use --force to overwrite", cfgPath)
		}
	}

	if err := store.Set(secrets.DefaultService, providerKeySecret, result.APIKey); err != nil {
		return "", wardenerr.Errorf(wardenerr.CodeSecretStoreFailure, "storing %s API key: %w", result.Provider, err)
	}
	if result.WebhookURL != "" {
		if err := store.Set(secrets.DefaultService, webhookURLSecret, result.WebhookURL); err != nil {
			return "", wardenerr.Errorf(wardenerr.CodeSecretStoreFailure, "storing webhook URL: %w", err)
		}
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", wardenerr.Errorf(wardenerr.CodeConfigWriteFailure, "creating config directory %s: %w", dir, err)
	}
	if err := os.WriteFile(cfgPath, []byte(GenerateConfigYAML(result)), 0o600); err != nil {
		return "", wardenerr.Errorf(wardenerr.CodeConfigWriteFailure, "writing config to %s: %w", cfgPath, err)
	}
	return cfgPath, nil
}

// configPathForWrite returns the config path init writes to. Tests override it.
var configPathForWrite = config.DefaultConfigPath

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard for Warden",
		Long: `Run an interactive wizard that walks you through:
  1. Choosing the model provider (OpenAI, Gemini, Anthropic) and its API key
  2. Optionally adding a Slack compatible webhook for alerts

Credentials are stored in the OS keyring and referenced via keyring:// URIs
in the config file. No secrets are written in plain text.`,
		RunE: runInit,
	}

	cmd.Flags().String("api-base", "", "endpoint base URL (for OpenAI compatible proxies)")
	cmd.Flags().Bool("skip-validation", false, "store the API key without checking it")
	cmd.Flags().Bool("force", false, "overwrite existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isTerminal(f) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(),
			"warden init requires an interactive terminal.\n"+
				"To configure Warden non-interactively, edit ~/.config/warden/warden.yaml and use `warden secret set`.")
		return wardenerr.New(wardenerr.CodeCLISetupFailure, "warden init: not an interactive terminal")
	}

	apiBase, _ := cmd.Flags().GetString("api-base")
	m := newInitModel(secretStoreFactory(), apiBase)
	m.skipValidation, _ = cmd.Flags().GetBool("skip-validation")
	m.forceOverwrite, _ = cmd.Flags().GetBool("force")

	finalModel, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return wardenerr.Errorf(wardenerr.CodeCLISetupFailure, "init wizard error: %w", err)
	}

	fm, ok := finalModel.(initModel)
	if !ok {
		return wardenerr.New(wardenerr.CodeCLISetupFailure, "unexpected model type after wizard")
	}
	if fm.errFinal != nil {
		return wardenerr.Errorf(wardenerr.CodeCLISetupFailure, "init failed: %w", fm.errFinal)
	}
	if fm.step == stepDone {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", fm.configPath)
	}
	return nil
}

// isTerminal reports whether f is a terminal file descriptor.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
