// Package bot holds the message-handling core: it turns incoming Telegram
// messages into rendered images and replies, applying the command, word
// limit, and acknowledgement behavior around the rendering pipeline.
package bot

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/negar-bot/negar/internal/config"
	"github.com/negar-bot/negar/internal/fontset"
	"github.com/negar-bot/negar/internal/layout"
	"github.com/negar-bot/negar/internal/render"
	"github.com/negar-bot/negar/internal/telegram"
)

// Replies are bilingual: Persian first, then English, separated by a blank
// line. The processing acknowledgement is Persian only.
const (
	replyStart = "سلام! متن خود را بفرستید تا آن را روی تصویر قرار دهم.\n\nHello! Send me your text and I will place it on an image."
	replyHelp  = "متن خود را بفرستید تا آن را روی تصویر قرار دهم.\n\nSend me your text and I will place it on an image."
	replyAck   = "در حال پردازش متن شما..."
	replyError = "متأسفانه در پردازش متن شما مشکلی پیش آمد. لطفاً دوباره تلاش کنید.\n\nSorry, there was an error processing your text. Please try again."
)

func replyWordLimit(max int) string {
	return fmt.Sprintf("متن شما بیش از حد مجاز %d کلمه است. لطفاً متن کوتاه‌تری را ارسال کنید.\n\nYour text exceeds the maximum limit of %d words. Please send a shorter text.", max, max)
}

func replyMultiImage(n int) string {
	return fmt.Sprintf("متن شما در %d تصویر قرار داده شده است.\n\nYour text has been placed on %d images.", n, n)
}

// ///////////////////////////////////////////////
// Dependencies
// ///////////////////////////////////////////////

// Sender is the outbound half of the Telegram client the handler needs.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
	SendPhoto(ctx context.Context, chatID int64, name string, photo []byte) error
}

// BackgroundSource supplies one background image per rendering run.
type BackgroundSource interface {
	Pick() (img image.Image, path string, err error)
}

// Handler processes one message at a time. It is not safe for concurrent
// use; the poller delivers updates sequentially.
type Handler struct {
	sender      Sender
	backgrounds BackgroundSource
	fonts       *fontset.Set
	cfg         *config.Config
	log         *slog.Logger
}

// New assembles a handler from its collaborators.
func New(sender Sender, backgrounds BackgroundSource, fonts *fontset.Set, cfg *config.Config, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{sender: sender, backgrounds: backgrounds, fonts: fonts, cfg: cfg, log: log}
}

// ///////////////////////////////////////////////
// Message Handling
// ///////////////////////////////////////////////

// HandleUpdate dispatches one update. Non-message and non-text updates are
// ignored. Processing failures are reported to the user and logged, never
// returned, so the poll loop keeps running.
func (h *Handler) HandleUpdate(ctx context.Context, upd telegram.Update) {
	if upd.Message == nil || upd.Message.Text == "" {
		return
	}
	h.HandleMessage(ctx, upd.Message)
}

// HandleMessage runs the full reply flow for one text message.
func (h *Handler) HandleMessage(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID
	text := msg.Text

	if strings.HasPrefix(text, "/") {
		h.handleCommand(ctx, chatID, text)
		return
	}

	if words := len(strings.Fields(text)); words > h.cfg.Behavior.MaxWords {
		h.reply(ctx, chatID, replyWordLimit(h.cfg.Behavior.MaxWords))
		return
	}

	if h.cfg.Behavior.SendAck {
		h.reply(ctx, chatID, replyAck)
	}
	if err := h.sender.SendChatAction(ctx, chatID, "upload_photo"); err != nil {
		h.log.Debug("chat action failed", "chat", chatID, "error", err)
	}

	if err := h.process(ctx, chatID, text); err != nil {
		h.log.Error("processing message failed", "chat", chatID, "error", err)
		h.reply(ctx, chatID, replyError)
	}
}

// handleCommand answers the two known commands; anything else starting
// with a slash is ignored.
func (h *Handler) handleCommand(ctx context.Context, chatID int64, text string) {
	switch strings.TrimSpace(text) {
	case "/start":
		h.reply(ctx, chatID, replyStart)
	case "/help":
		h.reply(ctx, chatID, replyHelp)
	}
}

// process renders text onto a background and sends the resulting images.
func (h *Handler) process(ctx context.Context, chatID int64, text string) error {
	bg, bgPath, err := h.backgrounds.Pick()
	if err != nil {
		return fmt.Errorf("picking background: %w", err)
	}

	bounds := bg.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	canvas := h.cfg.Canvas
	padTop := percentPx(height, canvas.TopPaddingPercent)
	padBottom := percentPx(height, canvas.BottomPaddingPercent)
	padSide := percentPx(width, canvas.SidePaddingPercent)

	res, err := layout.Layout(text, layout.Params{
		MaxWidth:      float64(width - 2*padSide),
		MaxHeight:     float64(height - padTop - padBottom),
		Sizes:         canvas.FontSizes,
		LineFactor:    canvas.LineHeightFactor,
		MaxPages:      canvas.MaxPages,
		EmphasisScale: canvas.EmphasisScale,
		Measurer:      h.fonts,
	})
	if err != nil {
		return fmt.Errorf("laying out text: %w", err)
	}

	images, err := render.Render(res, render.Options{
		Background:    bg,
		Fonts:         h.fonts,
		PadTop:        padTop,
		PadLeft:       padSide,
		PadRight:      padSide,
		EmphasisScale: canvas.EmphasisScale,
		RTL:           render.IsRTL(text),
		Stamp: render.StampOptions{
			Enabled: h.cfg.Stamp.Enabled,
			Corner:  h.cfg.Stamp.Corner,
			Size:    h.cfg.Stamp.Size,
		},
		JPEGQuality: canvas.JPEGQuality,
	})
	if err != nil {
		return fmt.Errorf("rendering: %w", err)
	}

	h.log.Info("rendered message",
		"chat", chatID, "background", bgPath,
		"font_size", res.FontSize, "pages", len(images))

	if len(images) > 1 {
		h.reply(ctx, chatID, replyMultiImage(len(images)))
	}

	for i, img := range images {
		name := fmt.Sprintf("page-%d.jpg", i+1)
		if err := h.sender.SendPhoto(ctx, chatID, name, img); err != nil {
			return fmt.Errorf("sending %s: %w", name, err)
		}
	}
	return nil
}

// reply sends a text message, logging a failure instead of propagating it.
func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if err := h.sender.SendMessage(ctx, chatID, text); err != nil {
		h.log.Warn("sending reply failed", "chat", chatID, "error", err)
	}
}

// percentPx converts a percentage of a pixel dimension to whole pixels.
func percentPx(dim int, percent float64) int {
	return int(float64(dim) * percent / 100)
}
