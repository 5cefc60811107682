package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/interview-coach/internal/evaluator"
	"github.com/pavelanni/interview-coach/internal/events"
	"github.com/pavelanni/interview-coach/internal/handler"
	appI18n "github.com/pavelanni/interview-coach/internal/i18n"
	"github.com/pavelanni/interview-coach/internal/interview"
	"github.com/pavelanni/interview-coach/internal/llm"
	"github.com/pavelanni/interview-coach/internal/llm/prompts"
	"github.com/pavelanni/interview-coach/internal/model"
	"github.com/pavelanni/interview-coach/internal/questions"
	"github.com/pavelanni/interview-coach/internal/session"
	"github.com/pavelanni/interview-coach/internal/store"
)

func main() {
	// A missing .env is fine; keys may come from the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "coach",
		Short: "Interview coach: practice technical interviews with scored feedback",
	}

	serve := serveCmd()
	root.AddCommand(serve, interviewCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `coach --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// engineFlags registers the flags shared by every command that runs interviews.
func engineFlags(f *pflag.FlagSet) {
	f.String("db", "coach.db", "SQLite database path")
	f.StringP("questions", "q", "questions/questions.json", "Question corpus (JSON or YAML)")
	f.String("evaluator", evaluator.StrategyHeuristic, "Evaluation strategy (heuristic, remote)")
	f.String("llm-provider", "openai", "Remote evaluator provider (openai, gemini, anthropic, mock)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for the LLM provider (defaults to the provider's env variable)")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Duration("eval-timeout", evaluator.DefaultTimeout, "Bound on a single remote evaluation")
	f.String("prompt-variant", string(prompts.PromptStandard), "Grading prompt variant (strict, standard, lenient)")
	f.StringP("lang", "l", "en", "Feedback language (en, ru)")
	f.Uint64("seed", 0, "Seed for question selection and heuristic jitter (0 = random)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP interview API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	engineFlags(f)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export session summaries as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "coach.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("COACH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("coach")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/coach")
	v.AddConfigPath("/etc/coach")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// engine is the wired interview core shared by serve and interview.
type engine struct {
	db   *store.Store
	bank *questions.Bank
	orch *interview.Orchestrator
}

func (e *engine) Close() error {
	return e.db.Close()
}

func newEngine(ctx context.Context, v *viper.Viper) (*engine, error) {
	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}

	seed := v.GetUint64("seed")
	var rng *rand.Rand
	if seed != 0 {
		rng = rand.New(rand.NewPCG(seed, seed+1))
	}

	path := v.GetString("questions")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	bank, err := questions.Load(path, rng)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	changed, err := db.RecordCorpus(ctx, path, sha256sum(data))
	if err != nil {
		slog.Warn("record corpus fingerprint", "error", err)
	} else if changed {
		slog.Warn("question corpus changed since last run; stored sessions may reference old questions", "path", path)
	}

	promptVariant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(promptVariant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", promptVariant)
		promptVariant = string(prompts.PromptStandard)
	}
	cfg := model.InterviewConfig{
		Evaluator:     strings.ToLower(v.GetString("evaluator")),
		EvalTimeout:   v.GetDuration("eval-timeout"),
		PromptVariant: promptVariant,
		Seed:          seed,
	}

	var provider llm.Provider
	if cfg.Evaluator == evaluator.StrategyRemote {
		provider = newProvider(ctx, v)
	}
	eval := evaluator.New(cfg, provider)

	bus := events.NewBus()
	bus.SubscribeAll(events.LogSubscriber(slog.Default().With("component", "events")))

	orch := interview.New(bank, eval, session.NewManager(db), bus)

	slog.Info("interview engine ready",
		"questions", path,
		"domains", bank.Domains(),
		"evaluator", eval.Strategy(),
		"prompt_variant", promptVariant,
	)
	return &engine{db: db, bank: bank, orch: orch}, nil
}

// newProvider builds the remote evaluation provider. Failures are logged and
// leave remote evaluation unavailable, which degrades to heuristic scoring.
func newProvider(ctx context.Context, v *viper.Viper) llm.Provider {
	cfg := llm.Config{
		Provider: strings.ToLower(v.GetString("llm-provider")),
		BaseURL:  v.GetString("llm-url"),
		APIKey:   v.GetString("llm-key"),
		Model:    v.GetString("llm-model"),
	}
	p, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		slog.Warn("remote evaluator unavailable, using heuristic", "provider", cfg.Provider, "error", err)
		return nil
	}
	if c, ok := p.(*llm.Client); ok {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx); err != nil {
			slog.Warn("LLM health check failed", "url", cfg.BaseURL, "error", err)
		} else {
			slog.Info("LLM endpoint OK", "url", cfg.BaseURL, "model", cfg.Model)
		}
	}
	return p
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	eng, err := newEngine(cmd.Context(), v)
	if err != nil {
		return err
	}
	defer eng.Close()

	h := handler.New(eng.orch)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(v.GetString("lang")))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"lang", v.GetString("lang"),
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	records, err := db.ExportRecords(ctx)
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	export := model.SessionExport{
		ExportedAt: time.Now().UTC(),
		Count:      len(records),
		Sessions:   make([]model.Summary, 0, len(records)),
	}
	for _, rec := range records {
		export.Sessions = append(export.Sessions, interview.Summarize(rec))
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	slog.Info("exported sessions", "count", export.Count, "output", outPath)
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
