// Package cmd wires the finreports subcommands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/config"
	"github.com/yannmerakeb/nlp-financial-reports/internal/notify"
	"github.com/yannmerakeb/nlp-financial-reports/internal/store"
)

const defaultConfigPath = "configs/config.yml"

var (
	cfgFile string
	debug   bool
)

var RootCmd = &cobra.Command{
	Use:   "finreports",
	Short: "Evasive language analysis over annual report filings",
	Long: `finreports ingests 10-K style filings, segments them into passages,
scores each passage for evasive language with a TF-IDF baseline and an
embedding classifier trained on the same document-level split, and relates
document-level evasiveness to post-filing market reactions.`,
	SilenceUsage: true,
}

func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigPath, "Path to the YAML configuration file")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

// loadConfig resolves the effective configuration. The default path is
// allowed to be absent; an explicitly named file is not.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); err != nil {
		if os.IsNotExist(err) && cfgFile == defaultConfigPath {
			return config.Load("")
		}
		return nil, fmt.Errorf("config file %s: %w", cfgFile, err)
	}
	return config.Load(cfgFile)
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func openStore(cfg *config.Config, log *zap.Logger) (*store.Store, error) {
	return store.Open(store.Options{
		Driver:        cfg.Store.Driver,
		DSN:           cfg.Store.DSN,
		MigrationsDir: cfg.Store.MigrationsDir,
	}, log)
}

func newNotifier(cfg *config.Config, log *zap.Logger) (*notify.Notifier, error) {
	return notify.New(notify.Options{
		Enabled: cfg.Notify.Enabled,
		Token:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		ChatID:  cfg.Notify.TelegramChatID,
	}, log)
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
