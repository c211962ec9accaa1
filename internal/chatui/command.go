package chatui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tOgg1/matchchat/internal/config"
	"github.com/tOgg1/matchchat/internal/logging"
	"github.com/tOgg1/matchchat/internal/models"
)

type rootFlags struct {
	configFile string
	baseURL    string
	identity   string
	theme      string
	logLevel   string
	peer       string
	jsonOutput bool
}

// Execute runs the matchchat command line.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd(version).ExecuteContext(ctx)
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "matchchat",
		Short:         "Terminal chat for your matches",
		Long:          "Bubbletea-based real-time chat client for the matches API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return Run(cmd.Context(), cfg, RunOptions{Peer: flags.peer})
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/matchchat/config.yaml)")
	pf.StringVar(&flags.baseURL, "base-url", "", "API base URL")
	pf.StringVar(&flags.identity, "identity", "", "your user id")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug|info|warn|error")
	cmd.Flags().StringVar(&flags.theme, "theme", "", "theme: default|high-contrast")
	cmd.Flags().StringVar(&flags.peer, "peer", "", "open this conversation on start")

	cmd.AddCommand(newConnectionsCmd(flags), newHistoryCmd(flags))
	return cmd
}

func newConnectionsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "List the people you can chat with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			c, err := newClients(cfg)
			if err != nil {
				return err
			}
			peers, err := c.history.Connections(cmd.Context())
			if err != nil {
				return err
			}
			return writeConnections(cmd.OutOrStdout(), peers, flags.jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "output JSON")
	return cmd
}

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "history <peer-id>",
		Short: "Print one page of a conversation, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			c, err := newClients(cfg)
			if err != nil {
				return err
			}
			msgs, err := c.history.FetchPage(cmd.Context(), args[0], page)
			if err != nil {
				return err
			}
			return writeHistory(cmd.OutOrStdout(), cfg.Session.Identity, msgs, flags.jsonOutput)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number, 1 is the newest")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "output JSON")
	return cmd
}

func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	loader := config.NewLoader()
	if flags.configFile != "" {
		loader.SetConfigFile(flags.configFile)
	}
	overrides := map[string]string{
		"base-url":  "server.base_url",
		"identity":  "session.identity",
		"theme":     "tui.theme",
		"log-level": "logging.level",
	}
	values := map[string]string{
		"base-url":  flags.baseURL,
		"identity":  flags.identity,
		"theme":     flags.theme,
		"log-level": flags.logLevel,
	}
	for flag, key := range overrides {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			loader.Set(key, values[flag])
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cmd.ErrOrStderr(),
		EnableCaller: cfg.Logging.EnableCaller,
	})
	if used := loader.ConfigFileUsed(); used != "" {
		log := logging.Component("config")
		log.Debug().Str("file", used).Msg("config loaded")
	}
	return cfg, nil
}

func writeConnections(out io.Writer, peers []models.Peer, asJSON bool) error {
	if asJSON {
		return writeJSON(out, peers)
	}
	rows := make([][]string, 0, len(peers))
	for _, p := range peers {
		age := ""
		if p.Age > 0 {
			age = strconv.Itoa(p.Age)
		}
		rows = append(rows, []string{p.ID, p.DisplayName(), age, p.Gender, oneLine(p.About, 48)})
	}
	return writeTable(out, []string{"ID", "NAME", "AGE", "GENDER", "ABOUT"}, rows)
}

func writeHistory(out io.Writer, self string, msgs []models.Message, asJSON bool) error {
	if asJSON {
		wire := make([]models.WireMessage, 0, len(msgs))
		for _, m := range msgs {
			wire = append(wire, models.ToWire(m))
		}
		return writeJSON(out, wire)
	}
	rows := make([][]string, 0, len(msgs))
	for _, m := range msgs {
		when := ""
		if !m.CreatedAt.IsZero() {
			when = m.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		from := m.FromID
		if m.Mine(self) {
			from = ownLabel
		}
		body := oneLine(m.Body, 80)
		if m.Deleted {
			body = "(deleted)"
		}
		rows = append(rows, []string{when, from, body})
	}
	return writeTable(out, []string{"TIME", "FROM", "MESSAGE"}, rows)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
