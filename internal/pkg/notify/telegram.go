// Package notify sends value alerts for stored comparisons.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Vodeneev/sharpedge/internal/pkg/config"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

// Min interval between two messages to the same chat; Telegram answers 429 at roughly 30/min.
const telegramSendInterval = 2 * time.Second

const queueSize = 100

var ErrQueueFull = errors.New("message queue is full")

// sender is the part of *tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type queuedMessage struct {
	text       string
	comparison *models.OddsComparison
	queuedAt   time.Time
}

// TelegramNotifier queues alerts and sends them from one goroutine, paced by telegramSendInterval.
type TelegramNotifier struct {
	bot      sender
	chatID   int64
	interval time.Duration

	mu       sync.Mutex
	lastSend time.Time

	queue     chan queuedMessage
	queueDone chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	stopOnce  sync.Once
}

// NewTelegramNotifier connects the bot and starts the sender.
func NewTelegramNotifier(cfg config.TelegramConfig) (*TelegramNotifier, error) {
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram bot_token and chat_id are required")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false

	n := newNotifier(bot, cfg.ChatID, telegramSendInterval)
	slog.Info("Telegram notifier initialized", "chat_id", cfg.ChatID, "bot", bot.Self.UserName)
	return n, nil
}

func newNotifier(bot sender, chatID int64, interval time.Duration) *TelegramNotifier {
	ctx, cancel := context.WithCancel(context.Background())
	n := &TelegramNotifier{
		bot:       bot,
		chatID:    chatID,
		interval:  interval,
		queue:     make(chan queuedMessage, queueSize),
		queueDone: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	go n.messageSender()
	return n
}

// QueueLen returns the number of alerts waiting to be sent.
func (n *TelegramNotifier) QueueLen() int {
	if n == nil {
		return 0
	}
	return len(n.queue)
}

// NotifyComparisons queues one alert per comparison whose EV is at least minEV.
// It never blocks: alerts that do not fit in the queue are dropped and counted.
func (n *TelegramNotifier) NotifyComparisons(ctx context.Context, rows []models.OddsComparison, minEV decimal.Decimal) (queued int, err error) {
	if n == nil {
		return 0, nil
	}
	dropped := 0
	for i := range rows {
		row := rows[i]
		if !row.ExpectedValue.IsPositive() || row.ExpectedValue.LessThan(minEV) {
			continue
		}
		msg := queuedMessage{text: formatValueAlert(row), comparison: &row, queuedAt: time.Now()}
		select {
		case <-n.ctx.Done():
			return queued, fmt.Errorf("notifier stopped")
		case <-ctx.Done():
			return queued, ctx.Err()
		case n.queue <- msg:
			queued++
		default:
			dropped++
		}
	}
	if dropped > 0 {
		slog.Warn("Telegram queue is full, dropping alerts", "dropped", dropped, "queued", queued)
		return queued, fmt.Errorf("%w: dropped %d alerts", ErrQueueFull, dropped)
	}
	return queued, nil
}

// Stop sends what is already queued and waits for the sender to exit.
func (n *TelegramNotifier) Stop() {
	if n == nil {
		return
	}
	n.stopOnce.Do(n.cancel)
	<-n.queueDone
}

func (n *TelegramNotifier) messageSender() {
	defer close(n.queueDone)
	for {
		select {
		case <-n.ctx.Done():
			for {
				select {
				case msg := <-n.queue:
					n.send(msg, false)
				default:
					return
				}
			}
		case msg := <-n.queue:
			n.send(msg, true)
		}
	}
}

// send waits out the pacing interval, unless the notifier is draining on Stop.
func (n *TelegramNotifier) send(msg queuedMessage, pace bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if pace {
		if wait := n.interval - time.Since(n.lastSend); wait > 0 {
			select {
			case <-n.ctx.Done():
			case <-time.After(wait):
			}
		}
	}

	tgMsg := tgbotapi.NewMessage(n.chatID, msg.text)
	tgMsg.ParseMode = tgbotapi.ModeMarkdownV2

	n.lastSend = time.Now()
	_, err := n.bot.Send(tgMsg)

	args := []any{"queue_length", len(n.queue), "delay", time.Since(msg.queuedAt)}
	if msg.comparison != nil {
		args = append(args, "market", msg.comparison.MarketKey.String(), "target_book", msg.comparison.TargetBook)
	}
	if err != nil {
		slog.Error("Telegram send failed", append(args, "error", err)...)
		return
	}
	slog.Debug("Telegram alert sent", args...)
}

func formatValueAlert(c models.OddsComparison) string {
	var b strings.Builder
	game := c.MarketKey.Game

	b.WriteString(fmt.Sprintf("*Value: %s EV*\n\n", escapeMarkdown(percent(c.ExpectedValue))))
	b.WriteString(fmt.Sprintf("*%s @ %s*\n", escapeMarkdown(game.AwayTeamID), escapeMarkdown(game.HomeTeamID)))

	market := fmt.Sprintf("%s | %s", titleCase(string(c.MarketKey.Type)), titleCase(string(c.MarketKey.Side)))
	if c.MarketKey.Line.Valid {
		market += " " + c.MarketKey.Line.Decimal.String()
	}
	if c.MarketKey.Period != "" {
		market += " | " + titleCase(string(c.MarketKey.Period))
	}
	b.WriteString(escapeMarkdown(market) + "\n\n")

	b.WriteString(escapeMarkdown(fmt.Sprintf("%s: %s (%s)", c.TargetBook, c.TargetPrice.StringFixed(2), americanString(c.TargetPriceAmerican))) + "\n")
	b.WriteString(escapeMarkdown(fmt.Sprintf("%s: %s / %s, fair %s", c.SharpBook, c.SharpPrice.StringFixed(2), c.SharpPriceOther.StringFixed(2), percent(c.FairProbability))) + "\n")
	b.WriteString(escapeMarkdown(fmt.Sprintf("Kelly %s, stake %s", percent(c.KellyFraction), percent(c.RecommendedStake))) + "\n")
	if !game.Start.IsZero() {
		b.WriteString(escapeMarkdown("Start: "+game.Start.UTC().Format("2006-01-02 15:04 UTC")) + "\n")
	}
	b.WriteString(escapeMarkdown(strings.ToUpper(string(game.League))))
	return b.String()
}

func percent(d decimal.Decimal) string {
	return d.Shift(2).StringFixed(2) + "%"
}

func americanString(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(0)
	}
	return d.StringFixed(0)
}

// titleCase turns an enum value such as FULL_GAME into "Full Game".
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)
	return replacer.Replace(text)
}
