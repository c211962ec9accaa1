package chatui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/tOgg1/matchchat/internal/chat"
	"github.com/tOgg1/matchchat/internal/config"
	"github.com/tOgg1/matchchat/internal/history"
	"github.com/tOgg1/matchchat/internal/logging"
	"github.com/tOgg1/matchchat/internal/transport"
)

// ErrNoTerminal is returned when the TUI is launched without a TTY.
var ErrNoTerminal = errors.New("matchchat TUI requires an interactive terminal; use the connections or history subcommands instead")

// RunOptions tunes a TUI launch.
type RunOptions struct {
	// Peer opens this conversation at start instead of the remembered one.
	Peer string

	// ContextPath overrides the remembered-peer file location.
	ContextPath string
}

// clients holds the network collaborators built from configuration.
type clients struct {
	jar     http.CookieJar
	history *history.Client
	socket  *transport.SocketChannel
}

func newClients(cfg *config.Config) (*clients, error) {
	jar, err := history.NewSessionJar(cfg.Server.BaseURL, cfg.Session.CookieName, cfg.Session.Cookie)
	if err != nil {
		return nil, fmt.Errorf("session cookie: %w", err)
	}
	historyClient, err := history.NewClient(history.ClientConfig{
		BaseURL: cfg.Server.BaseURL,
		Timeout: cfg.Server.HTTPTimeout,
		Jar:     jar,
	})
	if err != nil {
		return nil, err
	}
	return &clients{jar: jar, history: historyClient}, nil
}

func (c *clients) dialSocket(cfg *config.Config) error {
	socketURL, err := cfg.SocketURL()
	if err != nil {
		return err
	}
	socket, err := transport.NewSocketChannel(transport.SocketConfig{
		URL:               socketURL,
		Jar:               c.jar,
		DialTimeout:       cfg.Server.DialTimeout,
		ReconnectInterval: cfg.Server.ReconnectInterval,
		ReconnectMax:      cfg.Server.ReconnectMax,
	})
	if err != nil {
		return err
	}
	c.socket = socket
	return nil
}

// Run launches the interactive chat client.
func Run(ctx context.Context, cfg *config.Config, opts RunOptions) error {
	if !hasTTY() {
		return ErrNoTerminal
	}

	logFile, err := logging.OpenFile(cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       "json",
		Output:       logFile,
		EnableCaller: cfg.Logging.EnableCaller,
	})
	logger := logging.Component("chatui")

	c, err := newClients(cfg)
	if err != nil {
		return err
	}
	if err := c.dialSocket(cfg); err != nil {
		return err
	}
	defer c.socket.Close()

	if err := c.socket.Connect(ctx); err != nil {
		// Not fatal: the supervisor keeps retrying and the header shows offline.
		logger.Warn().Err(err).Msg("initial connect failed")
	}

	session, err := chat.NewSession(chat.Options{
		Identity:       cfg.Session.Identity,
		Channel:        c.socket,
		Fetcher:        c.history,
		InboxBuffer:    cfg.Chat.InboxBuffer,
		RequestTimeout: cfg.Server.HTTPTimeout,
	})
	if err != nil {
		return err
	}

	contexts := config.NewContextStore(opts.ContextPath)
	initial := opts.Peer
	if initial == "" {
		if saved, err := contexts.Load(); err == nil && !saved.IsEmpty() {
			initial = saved.PeerID
		}
	}

	model, err := NewModel(ModelConfig{
		Session:           session,
		Theme:             cfg.TUI.Theme,
		LoadMoreThreshold: cfg.Chat.LoadMoreThreshold,
		ContextStore:      contexts,
		InitialPeer:       initial,
	})
	if err != nil {
		session.Close()
		return err
	}
	defer model.Close()

	logger.Info().Str("identity", cfg.Session.Identity).Str("base_url", logging.RedactURL(cfg.Server.BaseURL)).Msg("starting")
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
