package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Brownie44l1/paddy-api/internal/diagnosis"
	"github.com/Brownie44l1/paddy-api/internal/model"
	"github.com/Brownie44l1/paddy-api/internal/preprocess"
)

const (
	msgStart = `🌾 Hi! Send me a photo of a rice leaf and I will tell you which disease it most likely has and how severe it looks.

Commands:
/help - how to take a good photo
/classes - diseases I know`

	msgHelp = `How to use:
1. Photograph a single leaf in daylight
2. Fill the frame with the leaf
3. Send it as a photo (not a document)`

	msgSendPhoto       = "📸 Please send a photo of the leaf."
	msgUnknownCommand  = "❓ Unknown command. Use /help."
	msgProcessing      = "⏳ Analyzing the leaf..."
	msgInvalidImage    = "⚠️ I could not read that image. Please try another photo."
	msgProcessingError = "⚠️ Something went wrong while analyzing the photo. Please try again."
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetFileDirectURL(fileID string) (string, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api     API
	service *diagnosis.Service
	http    *resty.Client
	logger  *slog.Logger
}

func NewBot(api API, service *diagnosis.Service, logger *slog.Logger) *Bot {
	return &Bot{
		api:     api,
		service: service,
		http:    resty.New(),
		logger:  logger,
	}
}

// Run processes updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.sendMessage(msg.Chat.ID, msgStart)
	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)
	case "classes":
		b.sendMessage(msg.Chat.ID, formatClasses(b.service.Classes()))
	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	b.sendMessage(msg.Chat.ID, msgProcessing)

	// the last size is the largest
	photo := msg.Photo[len(msg.Photo)-1]

	imageData, err := b.downloadFile(ctx, photo.FileID)
	if err != nil {
		b.logger.Error("error downloading photo", "chat", msg.Chat.ID, "error", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	result, err := b.service.Diagnose(ctx, bytes.NewReader(imageData))
	if err != nil {
		b.logger.Error("diagnosis failed", "chat", msg.Chat.ID, "error", err)
		if errors.Is(err, preprocess.ErrDecode) {
			b.sendMessage(msg.Chat.ID, msgInvalidImage)
		} else {
			b.sendMessage(msg.Chat.ID, msgProcessingError)
		}
		return
	}

	b.sendMessage(msg.Chat.ID, formatResult(result))
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	resp, err := b.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode())
	}

	return resp.Body(), nil
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("error sending message", "chat", chatID, "error", err)
	}
}

func displayName(class string) string {
	return strings.ReplaceAll(class, "_", " ")
}

func formatResult(r *diagnosis.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🦠 Disease: %s\n", displayName(r.Disease))
	fmt.Fprintf(&sb, "📊 Severity: %.1f%% (%s)", r.Severity, r.Level)
	if r.Mode == model.ModeTest {
		sb.WriteString("\n\n⚠️ Test mode: no trained model is loaded, this is a mock prediction.")
	}
	return sb.String()
}

func formatClasses(classes []string) string {
	var sb strings.Builder
	sb.WriteString("Known classes:")
	for _, c := range classes {
		sb.WriteString("\n• ")
		sb.WriteString(displayName(c))
	}
	return sb.String()
}
