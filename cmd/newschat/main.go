package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"newschat/internal/agent"
	"newschat/internal/client"
	"newschat/internal/core"
	"newschat/internal/server"
	"newschat/internal/session"
	"newschat/internal/transport"
	"newschat/internal/tui"
)

var (
	configFile string
	endpoint   string
	listenAddr string
)

var rootCmd = &cobra.Command{
	Use:   "newschat",
	Short: "Terminal client for the news chat service",
	Long: `newschat connects to a news chat server over WebSocket and renders the
conversation in the terminal. On first contact the server interviews you for
five preferences, then answers questions about current news.

Run without arguments to start the interactive client. Run "newschat serve"
to start a local server.`,
	SilenceUsage: true,
	RunE:         runClient,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local chat server",
	Long: `Starts the chat server: a WebSocket endpoint at /ws and a JSON health
check at /. With NEWSCHAT_OPENROUTER_API_KEY set, replies come from the news
agent; without it the server answers with a canned reply, which is enough to
exercise the client end to end.`,
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default newschat.yaml in the working directory)")
	rootCmd.Flags().StringVarP(&endpoint, "endpoint", "e", "", "WebSocket endpoint (overrides config)")
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := core.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}

	// The TUI owns the terminal, so logs go nowhere unless debugging.
	log := core.NopLogger()
	if cfg.LogLevel == "debug" {
		log = core.NewLogger(cfg.LogLevel)
	}

	participant := session.Participant{UserID: cfg.LocalUserID, Author: cfg.LocalAuthor}
	c := client.New(cfg.Endpoint, participant, transport.NewAdapter(log), log)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- c.Run(ctx)
	}()

	program := tea.NewProgram(tui.New(c), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		cancel()
		<-runErr
		return fmt.Errorf("run ui: %w", err)
	}

	cancel()
	if err := <-runErr; err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Endpoint, err)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := core.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	log := core.NewLogger(cfg.LogLevel)

	var responder agent.Agent
	if cfg.OpenRouterAPIKey != "" {
		llm, err := agent.NewClient(&agent.Config{
			APIKey: cfg.OpenRouterAPIKey,
			Model:  cfg.DefaultModel,
		})
		if err != nil {
			return err
		}
		var searcher agent.Searcher
		if cfg.ExaAPIKey != "" {
			searcher = agent.NewExaSearcher(cfg.ExaAPIKey, "")
		}
		responder = agent.New(llm, searcher, log)
	} else {
		log.Warn("no OpenRouter API key configured, answering with a canned reply")
		responder = &agent.MockAgent{Reply: "I'm running without a language model. Set NEWSCHAT_OPENROUTER_API_KEY to get real answers."}
	}

	srv, err := server.New(responder, log)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()
	log.Info("server listening", "addr", cfg.ListenAddr)

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
