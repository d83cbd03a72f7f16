package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/tagus/gemini-agent/pkg/agent"
	"github.com/tagus/gemini-agent/pkg/config"
	"github.com/tagus/gemini-agent/pkg/interfaces"
	"github.com/tagus/gemini-agent/pkg/llm/gemini"
	"github.com/tagus/gemini-agent/pkg/llm/openai"
	"github.com/tagus/gemini-agent/pkg/logging"
	"github.com/tagus/gemini-agent/pkg/report"
	"github.com/tagus/gemini-agent/pkg/tools"
	"github.com/tagus/gemini-agent/pkg/tools/builtin"
	"github.com/tagus/gemini-agent/pkg/tracing"
	"github.com/tagus/gemini-agent/pkg/workspace"
)

const version = "0.1.0"

// modelFactory builds the model client for the configured provider
type modelFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger) (interfaces.Model, error)

// run executes the CLI and returns the process exit code
func run(args []string, stdout, stderr io.Writer, factory modelFactory) int {
	cmd := newRootCommand(stdout, stderr, factory)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand(stdout, stderr io.Writer, factory modelFactory) *cobra.Command {
	v := viper.New()
	var configFile, model string

	cmd := &cobra.Command{
		Use:   `agent-cli "your prompt here"`,
		Short: "AI coding agent confined to a working directory",
		Long: `agent-cli sends a prompt to an LLM and lets it read, list and write files
and run scripts inside the working directory until it produces an answer.`,
		Example:       `  agent-cli "How do I fix the calculator?" --verbose`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || strings.TrimSpace(strings.Join(args, " ")) == "" {
				return fmt.Errorf("a prompt is required\nUsage: %s", cmd.UseLine())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("model") {
				if cfg.Provider == config.ProviderOpenAI {
					cfg.OpenAI.Model = model
				} else {
					cfg.Gemini.Model = model
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runAgent(cmd.Context(), cfg, strings.Join(args, " "), stdout, stderr, factory)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.BoolP("verbose", "v", false, "print intermediate steps and debug logs")
	flags.StringVarP(&configFile, "config", "c", "", "path to a YAML config file")
	flags.StringP("provider", "p", config.ProviderGemini, "model provider (gemini or openai)")
	flags.StringVarP(&model, "model", "m", "", "model name")
	flags.StringP("dir", "d", ".", "working directory the agent is confined to")
	flags.Int("max-turns", agent.DefaultMaxTurns, "maximum number of model requests")
	flags.Float64P("temperature", "t", 0.7, "sampling temperature (0-2)")
	flags.StringP("format", "f", report.FormatText, "output format (text, markdown, json or yaml)")
	flags.StringP("output", "o", "", "write the result to a file instead of stdout")

	bindings := map[string]string{
		"verbose":     "verbose",
		"provider":    "provider",
		"dir":         "working_dir",
		"max-turns":   "max_turns",
		"temperature": "temperature",
		"format":      "output.format",
		"output":      "output.file",
	}
	for flag, key := range bindings {
		// BindPFlag only fails for a nil flag
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

func runAgent(ctx context.Context, cfg *config.Config, prompt string, stdout, stderr io.Writer, factory modelFactory) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(
		logging.WithWriter(stderr),
		logging.WithLevel(cfg.Logging.Level),
		logging.WithFormat(cfg.Logging.Format),
	)

	tracer, err := tracing.NewOTelTracer(ctx, tracing.OTelConfig{
		Enabled:           cfg.Tracing.Enabled,
		ServiceName:       cfg.Tracing.ServiceName,
		CollectorEndpoint: cfg.Tracing.CollectorEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			logger.Warn(ctx, "Failed to flush traces", map[string]interface{}{"error": err.Error()})
		}
	}()

	ws, err := workspace.New(cfg.WorkingDir)
	if err != nil {
		return err
	}

	registry := tools.NewRegistry(builtin.Defaults(builtin.Options{
		MaxFileChars:    cfg.Tools.MaxFileChars,
		ScriptTimeout:   cfg.Tools.ScriptTimeout,
		Interpreter:     cfg.Tools.Interpreter,
		ScriptExtension: cfg.Tools.ScriptExtension,
	})...)
	dispatcherOpts := []tools.DispatcherOption{tools.WithLogger(logger)}
	if tracer.Enabled() {
		dispatcherOpts = append(dispatcherOpts, tools.WithTracer(tracer))
	}
	dispatcher := tools.NewDispatcher(registry, ws, dispatcherOpts...)

	model, err := factory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if tracer.Enabled() {
		model = tracing.NewTracedModel(model, tracer)
	}

	agentOpts := []agent.Option{
		agent.WithModel(model),
		agent.WithDispatcher(dispatcher),
		agent.WithLogger(logger),
		agent.WithMaxTurns(cfg.MaxTurns),
		agent.WithTemperature(cfg.Temperature),
	}
	if tracer.Enabled() {
		agentOpts = append(agentOpts, agent.WithTracer(tracer))
	}
	if cfg.SystemPrompt != "" {
		agentOpts = append(agentOpts, agent.WithSystemPrompt(cfg.SystemPrompt))
	}
	if cfg.Verbose {
		agentOpts = append(agentOpts, agent.WithEventHandler(newVerbosePrinter(stdout).handle))
	}

	a, err := agent.NewAgent(agentOpts...)
	if err != nil {
		return err
	}

	logger.Debug(ctx, "Agent configured", map[string]interface{}{
		"provider":    model.Name(),
		"model":       model.GetModel(),
		"working_dir": ws.Root(),
		"functions":   registry.Names(),
	})

	result, runErr := a.Run(ctx, prompt)
	if result == nil {
		return runErr
	}

	rep := report.FromResult(prompt, result, runErr)
	if cfg.Verbose {
		rep.WithMessages(result.Messages)
	}
	if err := writeReport(rep, cfg, stdout); err != nil {
		return err
	}

	return runErr
}

func writeReport(rep *report.Report, cfg *config.Config, stdout io.Writer) error {
	if cfg.Output.File == "" {
		format := cfg.Output.Format
		if format == report.FormatText && isTerminal(stdout) {
			format = report.FormatMarkdown
		}
		return rep.Write(stdout, format)
	}
	f, err := os.Create(cfg.Output.File)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := rep.Write(f, cfg.Output.Format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newModel(ctx context.Context, cfg *config.Config, logger logging.Logger) (interfaces.Model, error) {
	active := cfg.Active()
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewClient(active.APIKey,
			openai.WithModel(active.Model),
			openai.WithBaseURL(active.BaseURL),
			openai.WithTimeout(cfg.RequestTimeout),
			openai.WithLogger(logger),
		), nil
	default:
		return gemini.NewClient(ctx, active.APIKey,
			gemini.WithModel(active.Model),
			gemini.WithBaseURL(active.BaseURL),
			gemini.WithTimeout(cfg.RequestTimeout),
			gemini.WithLogger(logger),
		)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
