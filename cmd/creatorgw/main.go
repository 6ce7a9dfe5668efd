// Command creatorgw is the main entry point for the creator-analysis MCP
// tool gateway.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
	"golang.org/x/term"

	"github.com/MrWong99/creatorgw/internal/app"
	"github.com/MrWong99/creatorgw/internal/catalogue"
	"github.com/MrWong99/creatorgw/internal/config"
	"github.com/MrWong99/creatorgw/internal/mcp"
	"github.com/MrWong99/creatorgw/internal/observe"
	"github.com/MrWong99/creatorgw/internal/pricing"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCommand()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "creatorgw: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "creatorgw",
		Short:         "Creator-analysis tool gateway for AI agents",
		Long:          "creatorgw exposes creator-analysis tools over the Model Context Protocol and runs them as jobs on a remote job platform.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool catalogue over MCP (stdio or streamable HTTP)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringP("config", "c", "", "path to the YAML configuration file (optional; environment variables suffice)")
	serveCmd.Flags().String("env-file", ".env", "dotenv file loaded before the configuration")
	serveCmd.Flags().Duration("watch", 0, "reload the config file on change, polling at this interval as a fallback (0 disables)")
	serveCmd.Flags().String("transport", "", "override server.transport (stdio or streamable-http)")
	serveCmd.Flags().String("listen", "", "override server.listen_addr for streamable-http")
	root.AddCommand(serveCmd)

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools in the catalogue",
		Args:  cobra.NoArgs,
		RunE:  runTools,
	}
	toolsCmd.Flags().Bool("schema", false, "print each tool's input schema")
	root.AddCommand(toolsCmd)

	rateCmd := &cobra.Command{
		Use:   "ratecard",
		Short: "Price a rate card locally from known audience metrics",
		Args:  cobra.NoArgs,
		RunE:  runRateCard,
	}
	rateCmd.Flags().Float64("followers", 0, "follower count")
	rateCmd.Flags().Float64("engagement", 0, "engagement rate in percent (e.g. 3.5)")
	rateCmd.Flags().String("username", "", "creator username shown on the card")
	rateCmd.Flags().String("platform", "", "platform shown on the card")
	_ = rateCmd.MarkFlagRequired("followers")
	root.AddCommand(rateCmd)

	callCmd := &cobra.Command{
		Use:   "call TOOL [ARGS_JSON]",
		Short: "Call a tool on a running gateway",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runCall,
	}
	callCmd.Flags().String("url", "", "streamable-http endpoint, e.g. http://localhost:8080/mcp")
	callCmd.Flags().String("command", "", "command that starts a stdio gateway, e.g. \"creatorgw serve\"")
	callCmd.Flags().Duration("timeout", 15*time.Minute, "overall call timeout")
	callCmd.MarkFlagsMutuallyExclusive("url", "command")
	callCmd.MarkFlagsOneRequired("url", "command")
	root.AddCommand(callCmd)

	return root
}

// ── serve ─────────────────────────────────────────────────────────────────────

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	watch, _ := cmd.Flags().GetDuration("watch")

	// ── Logger ────────────────────────────────────────────────────────────────
	// stdout carries the stdio transport; everything else goes to stderr.
	var level slog.LevelVar
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), &level))

	// ── Environment ──────────────────────────────────────────────────────────
	loaded, err := config.LoadDotEnv(envFile)
	if err != nil {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	if !loaded {
		slog.Debug("no .env file found, using process environment", "path", envFile)
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %q not found: copy configs/example.yaml to get started", configPath)
		}
		return err
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}
	level.Set(app.SlogLevel(cfg.Server.LogLevel))

	slog.Info("creatorgw starting",
		"version", version,
		"config", configPath,
		"transport", cfg.Server.Transport,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
		Registerer:     reg,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	application, err := app.New(ctx, cfg,
		app.WithGatherer(reg),
		app.WithLevelVar(&level),
		app.WithVersion(version),
	)
	if err != nil {
		return fmt.Errorf("initialise application: %w", err)
	}

	// ── Config watcher (optional) ─────────────────────────────────────────────
	if configPath != "" && watch > 0 {
		w, err := config.NewWatcher(configPath, application.Reload, config.WithInterval(watch))
		if err != nil {
			return err
		}
		defer w.Stop()
		slog.Info("watching config for changes", "path", configPath, "interval", watch)
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cmd.ErrOrStderr(), cfg)
	if cfg.Server.Transport == mcp.TransportStdio && term.IsTerminal(int(os.Stdin.Fd())) {
		slog.Warn("stdio transport is reading from a terminal; start creatorgw from an MCP client or use --transport streamable-http")
	}

	slog.Info("server ready, press Ctrl+C to shut down")
	runErr := application.Run(ctx)

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	if runErr != nil {
		return runErr
	}
	slog.Info("goodbye")
	return nil
}

// applyServeFlags layers command-line overrides on top of the loaded config
// and validates the result again.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if !flags.Changed("transport") && !flags.Changed("listen") {
		return nil
	}
	if flags.Changed("transport") {
		v, _ := flags.GetString("transport")
		cfg.Server.Transport = mcp.Transport(strings.ToLower(strings.TrimSpace(v)))
	}
	if flags.Changed("listen") {
		cfg.Server.ListenAddr, _ = flags.GetString("listen")
	}
	config.ApplyDefaults(cfg)
	return config.Validate(cfg)
}

// ── tools ─────────────────────────────────────────────────────────────────────

func runTools(cmd *cobra.Command, _ []string) error {
	withSchema, _ := cmd.Flags().GetBool("schema")
	out := cmd.OutOrStdout()
	for _, d := range catalogue.List() {
		fmt.Fprintf(out, "%-28s %s\n", d.Name, d.Description)
		if withSchema {
			fmt.Fprintf(out, "%28s %s\n", "", d.InputSchema)
		}
	}
	return nil
}

// ── ratecard ──────────────────────────────────────────────────────────────────

func runRateCard(cmd *cobra.Command, _ []string) error {
	followers, _ := cmd.Flags().GetFloat64("followers")
	engagement, _ := cmd.Flags().GetFloat64("engagement")
	username, _ := cmd.Flags().GetString("username")
	platform, _ := cmd.Flags().GetString("platform")

	if followers < 0 {
		return fmt.Errorf("--followers must not be negative, got %v", followers)
	}

	card := pricing.PriceCard(pricing.Profile{
		Username:       username,
		Platform:       platform,
		Followers:      followers,
		EngagementRate: engagement,
	})
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(card)
}

// ── call ──────────────────────────────────────────────────────────────────────

func runCall(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	command, _ := cmd.Flags().GetString("command")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cc := mcp.ClientConfig{Transport: mcp.TransportStreamableHTTP, URL: url}
	if command != "" {
		cc = mcp.ClientConfig{Transport: mcp.TransportStdio, Command: command}
	}
	client, err := mcp.Connect(ctx, cc)
	if err != nil {
		return err
	}
	defer client.Close()

	var raw json.RawMessage
	if len(args) == 2 {
		if raw, err = readArgs(args[1]); err != nil {
			return err
		}
	}
	res, err := client.Call(ctx, args[0], raw)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Content)
	if res.IsError {
		return errors.New("tool reported an error")
	}
	return nil
}

// readArgs resolves a tool argument operand. "@path" reads the file at path;
// anything else is the arguments themselves. Both may be JSONC: comments and
// trailing commas are stripped before the arguments are sent.
func readArgs(operand string) (json.RawMessage, error) {
	data := []byte(operand)
	if path, ok := strings.CutPrefix(operand, "@"); ok {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read arguments: %w", err)
		}
	}
	out := jsonc.ToJSON(data)
	if !json.Valid(out) {
		return nil, fmt.Errorf("arguments are not valid JSON: %s", strings.TrimSpace(operand))
	}
	return out, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "╔═══════════════════════════════════════╗")
	fmt.Fprintln(w, "║        creatorgw - startup summary    ║")
	fmt.Fprintln(w, "╠═══════════════════════════════════════╣")
	printRow(w, "Transport", string(cfg.Server.Transport))
	if cfg.Server.Transport == mcp.TransportStreamableHTTP {
		printRow(w, "Listen addr", cfg.Server.ListenAddr+app.MCPPath)
		if cfg.Server.TLS != nil {
			printRow(w, "TLS", "enabled")
		}
	}
	if cfg.Server.MetricsAddr != "" {
		printRow(w, "Metrics addr", cfg.Server.MetricsAddr)
	}
	printRow(w, "Job provider", cfg.Provider.Name)
	printRow(w, "Tools", fmt.Sprint(len(catalogue.List())))
	printRow(w, "Job overrides", fmt.Sprint(len(cfg.Jobs)))
	fmt.Fprintln(w, "╚═══════════════════════════════════════╝")
}

func printRow(w io.Writer, label, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Fprintf(w, "║  %-14s  : %-19s ║\n", label, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
