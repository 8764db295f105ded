// Package notify pushes run outcomes to an operator chat over Telegram.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// Options configure the notifier. Endpoint defaults to the public Telegram
// API and exists for tests and proxies.
type Options struct {
	Enabled  bool
	Token    string
	ChatID   int64
	Endpoint string
}

// Notifier sends run notifications to a single chat. A nil Notifier is valid
// and ignores every call, so callers never need to branch on whether
// notifications are configured.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

// New creates a notifier, or (nil, nil) when notifications are disabled or no
// token is configured.
func New(opts Options, log *zap.Logger) (*Notifier, error) {
	if !opts.Enabled || opts.Token == "" {
		log.Info("run notifier disabled")
		return nil, nil
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(opts.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	log.Info("telegram bot authorized", zap.String("username", api.Self.UserName))

	return &Notifier{api: api, chatID: opts.ChatID, log: log}, nil
}

// RunCompleted reports a finished run with its headline metrics.
func (n *Notifier) RunCompleted(report *models.EvaluationReport) error {
	if n == nil {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, formatCompleted(report))
	if _, err := n.api.Send(msg); err != nil {
		n.log.Error("failed to send completion notice",
			zap.String("run_id", report.Run.RunID), zap.Error(err))
		return fmt.Errorf("send completion notice: %w", err)
	}

	n.log.Info("run notification sent", zap.String("run_id", report.Run.RunID))
	return nil
}

// RunFailed reports a run that aborted before producing a report.
func (n *Notifier) RunFailed(runID string, cause error) error {
	if n == nil {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, formatFailed(runID, cause))
	if _, err := n.api.Send(msg); err != nil {
		n.log.Error("failed to send failure notice",
			zap.String("run_id", runID), zap.Error(err))
		return fmt.Errorf("send failure notice: %w", err)
	}

	n.log.Info("failure notification sent", zap.String("run_id", runID))
	return nil
}

func formatCompleted(report *models.EvaluationReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ finreports run %s complete\n\n", report.Run.RunID)
	fmt.Fprintf(&b, "Documents: %d (skipped %d)\n", report.Run.Documents, report.Run.SkippedDocuments)
	fmt.Fprintf(&b, "Passages: %d (human %d, weak %d)\n\n",
		report.Run.Passages, report.Run.HumanLabeled, report.Run.WeakLabeled)

	for _, m := range report.Models {
		fmt.Fprintf(&b, "%s: ROC-AUC %.3f, F1 %.3f\n", m.Model, m.ROCAUC, m.F1)
	}
	if c := report.Comparison; c != nil {
		fmt.Fprintf(&b, "\n%s delta: %+.3f (p=%.3f, %d rounds)\n", c.Metric, c.Delta, c.PValue, c.Rounds)
	}
	for _, a := range report.Associations {
		fmt.Fprintf(&b, "%s/%s market association: effect %+.3f (p=%.3f)\n",
			a.Model, a.Test, a.EffectSize, a.PValue)
	}
	return b.String()
}

func formatFailed(runID string, cause error) string {
	return fmt.Sprintf("❌ finreports run %s failed\n\n%v", runID, cause)
}
