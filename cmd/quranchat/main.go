// Command quranchat is the CLI for the Quran chat engine.
// It provides an interactive chat, one-shot questions, the HTTP server and
// corpus import.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/qurani-maai/quranchat/core/corpus"
	"github.com/qurani-maai/quranchat/core/session"
	"github.com/qurani-maai/quranchat/core/sqlite"
	"github.com/qurani-maai/quranchat/internal/api"
	"github.com/qurani-maai/quranchat/internal/chat"
	"github.com/qurani-maai/quranchat/internal/config"
	"github.com/qurani-maai/quranchat/internal/importer"
	"github.com/qurani-maai/quranchat/internal/kvstore"
	"github.com/qurani-maai/quranchat/internal/logging"
	"github.com/qurani-maai/quranchat/internal/validation"
)

const version = "0.4.0"

// CLI defines the command-line interface for quranchat.
var CLI struct {
	// Global flags override the configuration file.
	Config    string `name:"config" short:"c" help:"Configuration file (YAML)" default:"quranchat.yaml" type:"path"`
	CorpusDir string `name:"corpus-dir" help:"Corpus directory" type:"path"`
	CorpusURL string `name:"corpus-url" help:"Corpus base URL (wins over --corpus-dir)"`
	Store     string `name:"store" help:"Session database path (:memory: for none)"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Log format (text, json)"`

	Chat     ChatCmd     `cmd:"" help:"Start an interactive chat"`
	Ask      AskCmd      `cmd:"" help:"Send one message and print the answer"`
	Serve    ServeCmd    `cmd:"" help:"Start the REST and websocket API server"`
	Import   ImportCmd   `cmd:"" help:"Import a Tanzil XML file into the corpus layout"`
	Sessions SessionsCmd `cmd:"" help:"List recent sessions"`
	Progress ProgressCmd `cmd:"" help:"Show reading progress"`
	Init     InitCmd     `cmd:"" help:"Write the effective configuration to the config file"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// ChatCmd runs the interactive chat.
type ChatCmd struct {
	New bool `help:"Start a new session instead of resuming the current one"`
}

func (c *ChatCmd) Run() error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	// Ctrl-C ends the process as usual; EOF or /quit ends the chat.
	ctx := context.Background()
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	r := &repl{engine: a.engine, in: os.Stdin, out: os.Stdout}
	return r.run(ctx, c.New)
}

// AskCmd sends one utterance to the current session.
type AskCmd struct {
	Text []string `arg:"" help:"Message text"`
	New  bool     `help:"Ask in a new session"`
	JSON bool     `name:"json" help:"Print the result as JSON"`
}

func (c *AskCmd) Run() error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sess, err := currentSession(a.engine, c.New)
	if err != nil {
		return err
	}
	res, err := a.engine.Handle(ctx, sess.ID, joinWords(c.Text))
	if err != nil {
		return err
	}
	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	renderResult(os.Stdout, res)
	return nil
}

// ServeCmd starts the API server.
type ServeCmd struct {
	Port int `help:"HTTP server port (overrides server.port)"`
}

func (c *ServeCmd) Run() error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	api.Version = version
	return api.Start(ctx, apiConfig(cfg), a.engine)
}

func apiConfig(cfg *config.Config) api.Config {
	return api.Config{
		Port:              cfg.Server.Port,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitBurst:    cfg.Server.RateLimitBurst,
		Auth: api.AuthConfig{
			Enabled: cfg.Server.APIKey != "",
			APIKey:  cfg.Server.APIKey,
		},
	}
}

// ImportCmd converts Tanzil XML into the corpus layout.
type ImportCmd struct {
	Path       string `arg:"" help:"Tanzil XML file (e.g. quran-uthmani.xml)" type:"existingfile"`
	Out        string `help:"Output directory (defaults to corpus.dir)" type:"path"`
	Commentary string `help:"Tanzil-format commentary or translation file" type:"existingfile"`
	XZ         bool   `name:"xz" help:"Store chapters as .json.xz"`
}

func (c *ImportCmd) Run() error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	out := c.Out
	if out == "" {
		out = cfg.Corpus.Dir
	}
	if err := validation.ValidatePath(out); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}

	doc, err := parseTanzil(c.Path)
	if err != nil {
		return err
	}
	opts := importer.Options{Compress: c.XZ}
	if c.Commentary != "" {
		if opts.Commentary, err = parseTanzil(c.Commentary); err != nil {
			return err
		}
	}

	report, err := importer.Write(context.Background(), out, doc, opts)
	if err != nil {
		return err
	}
	fmt.Printf("Imported: %s\n", c.Path)
	fmt.Printf("  Chapters: %d\n", report.Chapters)
	fmt.Printf("  Verses: %d\n", report.Verses)
	if report.Commentary > 0 {
		fmt.Printf("  Commentary records: %d\n", report.Commentary)
	}
	fmt.Printf("  Files: %d (+ %s)\n", len(report.Files), corpus.ChecksumsPath)
	fmt.Printf("Written to: %s\n", out)
	return nil
}

func parseTanzil(path string) (*importer.Document, error) {
	data, err := validation.ReadFileLimited(path, validation.MaxImportSize)
	if err != nil {
		return nil, fmt.Errorf("invalid input %s: %w", path, err)
	}
	if !importer.Detect(data) {
		return nil, fmt.Errorf("%s is not a Tanzil XML file", path)
	}
	return importer.Parse(bytes.NewReader(data))
}

// SessionsCmd lists the recent sessions, or every stored one with --all.
type SessionsCmd struct {
	All bool `help:"List every stored session, not only the recent ones"`
}

func (c *SessionsCmd) Run() error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	a, err := openApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	recent, err := a.engine.Recent()
	if err != nil {
		return err
	}
	current, _, _ := a.store.Current()
	if !c.All {
		renderRecent(os.Stdout, recent, current)
		return nil
	}
	ids, err := a.store.IDs()
	if err != nil {
		return err
	}
	renderAll(os.Stdout, ids, recent, current)
	return nil
}

// ProgressCmd prints reading progress.
type ProgressCmd struct{}

func (c *ProgressCmd) Run() error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	a, err := openApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.engine.Progress()
	if err != nil {
		return err
	}
	renderProgress(os.Stdout, p, a.engine.Chapters())
	return nil
}

// InitCmd writes the defaults, merged with any existing file and the
// global flags, to --config.
type InitCmd struct {
	Force bool `help:"Overwrite an existing configuration file"`
}

func (c *InitCmd) Run() error {
	if _, err := os.Stat(CLI.Config); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", CLI.Config)
	}
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	if err := cfg.Save(CLI.Config); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", CLI.Config)
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("quranchat version %s\n", version)
	fmt.Printf("session store: %s\n", sqlite.Driver())
	return nil
}

// Helper functions

// loadConfig reads the configuration file and applies the global flags.
// Interactive commands log to stderr so stdout carries only the chat.
func loadConfig(interactive bool) (*config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := logging.ParseLevel(cfg.Log.Level)
	format, _ := logging.ParseFormat(cfg.Log.Format)
	if interactive {
		logging.InitLoggerTo(os.Stderr, level, format)
	} else {
		logging.InitLogger(level, format)
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config) {
	if CLI.CorpusDir != "" {
		cfg.Corpus.Dir = CLI.CorpusDir
	}
	if CLI.CorpusURL != "" {
		cfg.Corpus.URL = CLI.CorpusURL
	}
	if CLI.Store != "" {
		cfg.Store.Path = CLI.Store
	}
	if CLI.LogLevel != "" {
		cfg.Log.Level = CLI.LogLevel
	}
	if CLI.LogFormat != "" {
		cfg.Log.Format = CLI.LogFormat
	}
}

// app holds the wired components behind every engine-backed command.
type app struct {
	engine *chat.Engine
	store  *session.Store
	kv     *kvstore.SQLite
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	src, err := openSource(cfg.Corpus)
	if err != nil {
		return nil, err
	}
	index, err := corpus.Open(ctx, src, corpus.Options{
		RequireManifest: cfg.Corpus.RequireManifest,
		CacheTTL:        cfg.Corpus.CacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}

	kv, err := kvstore.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	store := session.NewStore(kv, session.WithRecentCapacity(cfg.Chat.RecentCapacity))
	engine := chat.New(index, store, chat.WithSearchLimit(cfg.Chat.MaxSearchResults))
	return &app{engine: engine, store: store, kv: kv}, nil
}

func (a *app) Close() error {
	return a.kv.Close()
}

func openSource(cfg config.CorpusConfig) (corpus.Source, error) {
	if cfg.URL != "" {
		return corpus.NewHTTPSource(cfg.URL, nil)
	}
	return corpus.NewFileSource(os.DirFS(cfg.Dir)), nil
}

func currentSession(engine *chat.Engine, fresh bool) (*session.Session, error) {
	if fresh {
		return engine.Start(true)
	}
	return engine.Resume()
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("quranchat"),
		kong.Description("Quran chat - read, search and reflect on the Quran by conversation"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
