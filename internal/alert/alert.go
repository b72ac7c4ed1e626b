// Package alert notifies the shop operators about chat events worth a human look: sessions
// blocked for abuse and generated answers replaced after validation.
package alert

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// Level describes the urgency of an alert.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Alert is a notification to the operators.
type Alert struct {
	Level     Level
	Title     string
	Message   string
	Source    string // subsystem that raised it
	StoreSlug string
	SessionID string
	Fields    map[string]string
	Error     error
}

// Notifier sends alerts.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// LogNotifier logs alerts. It is the default when no webhook is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert").Logger()}
}

func (l *LogNotifier) Notify(_ context.Context, a Alert) error {
	ev := l.logger.Warn().
		Str("level", string(a.Level)).
		Str("title", a.Title).
		Str("message", a.Message).
		Str("source", a.Source).
		Str("store", a.StoreSlug).
		Str("session_id", a.SessionID)
	if len(a.Fields) > 0 {
		ev = ev.Interface("fields", a.Fields)
	}
	if a.Error != nil {
		ev = ev.Err(a.Error)
	}
	ev.Msg("alert")
	return nil
}

// SlackNotifier posts alerts to a Slack incoming webhook as Block Kit messages.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
	logger     zerolog.Logger
}

// NewSlackNotifier creates a notifier for an incoming webhook URL.
func NewSlackNotifier(webhookURL string, logger zerolog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "alert-slack").Logger(),
	}
}

// Notify sends the alert to Slack.
func (n *SlackNotifier) Notify(ctx context.Context, a Alert) error {
	msg := &slack.WebhookMessage{
		Text:   fmt.Sprintf("%s [%s] %s", levelEmoji(a.Level), a.Level, a.Title),
		Blocks: &slack.Blocks{BlockSet: Blocks(a)},
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.client, msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	n.logger.Info().Str("level", string(a.Level)).Str("title", a.Title).Msg("alert sent")
	return nil
}

// Blocks renders an alert as Slack Block Kit blocks: a headline, a field grid and a context line.
func Blocks(a Alert) []slack.Block {
	text := fmt.Sprintf("%s *%s*", levelEmoji(a.Level), a.Title)
	if a.Message != "" {
		text += "\n" + a.Message
	}
	blocks := []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
	}

	var fields []*slack.TextBlockObject
	if a.StoreSlug != "" {
		fields = append(fields, field("Store", a.StoreSlug))
	}
	if a.SessionID != "" {
		fields = append(fields, field("Session", a.SessionID))
	}
	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, field(k, a.Fields[k]))
	}
	if len(fields) > 10 {
		fields = fields[:10] // Slack's per-section limit
	}
	if len(fields) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(nil, fields, nil))
	}

	if a.Error != nil {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("```%v```", a.Error), false, false), nil, nil))
	}

	source := a.Source
	if source == "" {
		source = "storefront-chat"
	}
	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("%s · %s", source, a.Level), false, false)))
	return blocks
}

func field(name, value string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*%s*\n%s", name, value), false, false)
}

// MultiNotifier fans out to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

func NewMultiNotifier(ns ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: ns}
}

func (m *MultiNotifier) Notify(ctx context.Context, a Alert) error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, a); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// AsyncNotifier delivers alerts in the background so a slow webhook never delays a chat reply.
// At most maxInFlight deliveries run at once; further alerts are dropped and logged.
type AsyncNotifier struct {
	next    Notifier
	timeout time.Duration
	slots   chan struct{}
	wg      sync.WaitGroup
	logger  zerolog.Logger
}

// NewAsyncNotifier wraps next. Each delivery gets its own timeout, detached from the caller.
func NewAsyncNotifier(next Notifier, timeout time.Duration, maxInFlight int, logger zerolog.Logger) *AsyncNotifier {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AsyncNotifier{
		next:    next,
		timeout: timeout,
		slots:   make(chan struct{}, maxInFlight),
		logger:  logger.With().Str("component", "alert").Logger(),
	}
}

// Notify queues the alert and returns immediately.
func (n *AsyncNotifier) Notify(_ context.Context, a Alert) error {
	select {
	case n.slots <- struct{}{}:
	default:
		n.logger.Warn().Str("title", a.Title).Msg("alert dropped, too many in flight")
		return nil
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() { <-n.slots }()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.next.Notify(ctx, a); err != nil {
			n.logger.Error().Err(err).Str("title", a.Title).Msg("alert delivery failed")
		}
	}()
	return nil
}

// Wait blocks until queued deliveries finish.
func (n *AsyncNotifier) Wait() {
	n.wg.Wait()
}

func levelEmoji(l Level) string {
	switch l {
	case LevelCritical:
		return "🚨"
	case LevelWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}
