package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/MilkTeaCat52/INVSC/client"
	"github.com/MilkTeaCat52/INVSC/controller"
	"github.com/MilkTeaCat52/INVSC/service"
	"github.com/MilkTeaCat52/INVSC/utils"
	"github.com/MilkTeaCat52/INVSC/view"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type cliFlags struct {
	apiKey      string
	model       string
	backend     string
	baseURL     string
	timeout     string
	structured  bool
	noCompile   bool
	noAction    bool
	json        bool
	force       bool
	verbose     bool
	noColor     bool
	configPath  string
	logLevel    string
	concurrency int
}

var (
	flags    cliFlags
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "invsc [flags] <source>...",
	Short: "The Invariant Scala Compiler",
	Long: `invsc submits each source file to an LLM examiner for a two-pass loop
invariant review, grades it on the Oxford scale and compiles it only when the
grade is alpha-beta or better.`,
	Version:       utils.Version(),
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCompile,
}

func init() {
	registerFlags(rootCmd)
}

func registerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&flags.apiKey, "api-key", "", "API key (or set OPENAI_API_KEY / INVSC_API_KEY)")
	f.StringVar(&flags.model, "model", "", "model to use (default gpt-4o, llama3.1 for ollama)")
	f.StringVar(&flags.backend, "backend", "", "backend: openai, langchain or ollama (default openai)")
	f.StringVar(&flags.baseURL, "base-url", "", "override the backend endpoint")
	f.StringVar(&flags.timeout, "timeout", "", "per-call timeout, e.g. 90s or 90 (default 120s)")
	f.BoolVar(&flags.structured, "structured", false, "request schema-constrained JSON for the judgement pass")
	f.BoolVar(&flags.noCompile, "no-compile", false, "only check invariants, skip the real compiler")
	f.BoolVar(&flags.noAction, "no-action", false, "skip the examiner's remarks")
	f.BoolVar(&flags.json, "json", false, "print the judgement as JSON")
	f.BoolVar(&flags.force, "force", false, "compile even when the grade is too low")
	f.BoolVar(&flags.verbose, "verbose", false, "show the examiner's analysis")
	f.BoolVar(&flags.noColor, "no-color", false, "disable coloured output")
	f.StringVar(&flags.configPath, "config", "", "config file (default .invsc.yaml or $XDG_CONFIG_HOME/invsc/config.yaml)")
	f.StringVar(&flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (default warn)")
	f.IntVar(&flags.concurrency, "concurrency", 0, "files graded in parallel (default min(NumCPU, 4))")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "invsc: error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func runCompile(cmd *cobra.Command, args []string) error {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	systemInfoService, err := service.NewSystemInfoService(flags.configPath)
	if err != nil {
		return err
	}

	logLevel := systemInfoService.GetLogLevel()
	if cmd.Flags().Changed("log-level") {
		logLevel = flags.logLevel
	}
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	backendCfg, err := backendConfig(cmd, systemInfoService.GetBackendConfig())
	if err != nil {
		return err
	}
	concurrency := systemInfoService.GetConcurrency()
	if cmd.Flags().Changed("concurrency") {
		concurrency = flags.concurrency
	}
	noColor := flags.noColor || systemInfoService.GetNoColor()

	promptBuilder := service.NewPromptBuilder()
	if dir := systemInfoService.GetPromptDir(); dir != "" {
		log.Debugf("Using prompt templates from %s", dir)
		promptBuilder = service.NewPromptBuilderFS(os.DirFS(dir), "")
	}

	// compiler chatter goes to stderr so --json output stays clean
	var compilerOut io.Writer = os.Stdout
	if flags.json {
		compilerOut = os.Stderr
	}

	judgementService := service.NewJudgementService(promptBuilder, client.NewLLMClient)
	compileController := controller.NewCompileController(
		judgementService,
		service.NewBatchService(judgementService, concurrency),
		service.NewFormatterService(noColor),
		service.NewGradeActionService(noColor),
		service.NewCompilerExecutor(systemInfoService.GetCompilers(), service.DefaultCompileTimeout, compilerOut, os.Stderr),
		os.Stdout, os.Stderr, noColor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Debugf("invsc %s, backend %s, model %s", utils.Version(), backendCfg.Backend, backendCfg.Model)
	exitCode = compileController.Run(ctx, view.CompileRequest{
		Sources:   args,
		Backend:   backendCfg,
		NoCompile: flags.noCompile,
		NoAction:  flags.noAction,
		JSON:      flags.json,
		Force:     flags.force,
		Verbose:   flags.verbose,
	})
	return nil
}

// backendConfig applies explicitly set flags over the configured values.
func backendConfig(cmd *cobra.Command, cfg view.BackendConfig) (view.BackendConfig, error) {
	changed := cmd.Flags().Changed
	if changed("api-key") {
		cfg.Credential = flags.apiKey
	}
	if changed("model") {
		cfg.Model = flags.model
	}
	if changed("backend") {
		cfg.Backend = view.BackendType(flags.backend)
	}
	if changed("base-url") {
		cfg.BaseURL = flags.baseURL
	}
	if changed("timeout") {
		timeout, err := service.ParseTimeout(flags.timeout)
		if err != nil {
			return cfg, fmt.Errorf("invalid --timeout value '%s': %w", flags.timeout, err)
		}
		cfg.Timeout = timeout
	}
	if changed("structured") {
		cfg.StructuredOutput = flags.structured
	}
	return cfg, nil
}
