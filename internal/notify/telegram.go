// Package notify delivers converted summaries to a Telegram chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"ghtracker/internal/config"
	"ghtracker/pkg/logx"
	"ghtracker/pkg/tghtml"
)

var ErrDisabled = errors.New("notify: telegram disabled")

// Dispatcher sends messages to one configured chat. A nil Dispatcher is a
// valid no-op (Telegram disabled); all methods are nil-safe.
type Dispatcher struct {
	bot     *tele.Bot
	chat    *tele.Chat
	limiter *rate.Limiter
	log     logx.Logger
}

// New returns (nil, nil) when Telegram is disabled in the config. Building
// the bot performs a getMe call, which doubles as a connection test.
func New(cfg config.TelegramConfig, proxyURL string, log logx.Logger) (*Dispatcher, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram chat_id %q: %w", cfg.ChatID, err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("proxy url: %w", err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
		log.Info("telegram using proxy", logx.String("proxy", u.Host))
	}

	bot, err := tele.NewBot(tele.Settings{Token: cfg.BotToken, Client: client})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	log.Info("telegram bot connected", logx.String("username", bot.Me.Username))

	return &Dispatcher{
		bot:  bot,
		chat: &tele.Chat{ID: chatID},
		// Telegram allows roughly one message per second per chat.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		log:     log,
	}, nil
}

func (d *Dispatcher) Enabled() bool { return d != nil }

// SendUpdate notifies about one repo's new activity. The Markdown summary is
// converted to Telegram HTML; if the channel still rejects the converted
// form, the original text is retried once as plain text.
func (d *Dispatcher) SendUpdate(ctx context.Context, repoName, summary string) error {
	html := "📦 <b>" + tghtml.Escape(repoName) + "</b> 更新\n\n" + tghtml.Convert(summary)
	plain := "📦 " + repoName + " 更新\n\n" + summary
	return d.send(ctx, html, plain)
}

// SendDigest delivers the combined cross-repo digest.
func (d *Dispatcher) SendDigest(ctx context.Context, digest string, repoCount int) error {
	header := fmt.Sprintf("📊 <b>GitHub 追踪日报</b> (%d个项目)\n\n", repoCount)
	plain := fmt.Sprintf("📊 GitHub 追踪日报 (%d个项目)\n\n", repoCount)
	return d.send(ctx, header+tghtml.Convert(digest), plain+digest)
}

// SendError reports a tracker-level failure to the chat.
func (d *Dispatcher) SendError(ctx context.Context, msg string) error {
	return d.send(ctx,
		"⚠️ <b>GitHub追踪助手错误</b>\n\n"+tghtml.Escape(msg),
		"⚠️ GitHub追踪助手错误\n\n"+msg)
}

func (d *Dispatcher) send(ctx context.Context, html, plain string) error {
	if d == nil {
		return ErrDisabled
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := d.bot.Send(d.chat, tghtml.Truncate(html, tghtml.MaxMessageLen), &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	})
	if err == nil {
		return nil
	}

	d.log.Warn("html message rejected; retrying as plain text", logx.Err(err))
	if werr := d.limiter.Wait(ctx); werr != nil {
		return werr
	}
	_, err = d.bot.Send(d.chat, tghtml.Truncate(plain, tghtml.MaxMessageLen), &tele.SendOptions{
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	d.log.Info("message sent as plain text after downgrade")
	return nil
}
