package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	app "bioscan-bot/internal/application"
	"bioscan-bot/internal/container"
	"bioscan-bot/internal/domain/entity"
	"bioscan-bot/internal/domain/port"
)

const (
	msgStart = `👋 Hi! I count cells on microscopy images and triage the result.

📋 Modules:
/blood — RBC / WBC ratio on blood smears
/malaria — infected vs uninfected cells
/tumor — breast ultrasound segmentation
/features — tumor classification from 30 tabular features

/history — your recent reports
/help — how to use the bot
/cancel — cancel the current operation`

	msgHelp = `ℹ️ How to use the bot:

1️⃣ Choose a module: /blood, /malaria or /tumor
2️⃣ Send one or more images (photos or image files)
3️⃣ Send /done to get counts and the triage status

For tabular tumor classification send /features and then 30 numbers
separated by commas, semicolons or spaces, in the order of the
Wisconsin diagnostic dataset (radius_mean … fractal_dimension_worst).

` + entity.Advisory

	msgAwaitingImages   = "📸 %s selected. Send images, then /done to analyze."
	msgAwaitingFeatures = "🔢 Send 30 feature values separated by commas, semicolons or spaces."
	msgImageQueued      = "🖼 Image %d queued. Send more or /done."
	msgBatchFull        = "⚠️ Batch limit reached (%d images). Send /done to analyze."
	msgNoImages         = "📭 No images queued yet. Send at least one image first."
	msgCancelled        = "❌ Operation cancelled. Choose a module to start again."
	msgChooseModule     = "👉 Choose a module first: /blood, /malaria, /tumor or /features."
	msgUnknownCommand   = "❓ Unknown command. Use /help."
	msgProcessing       = "⏳ Analyzing %d image(s)..."
	msgBusy             = "⏳ Still analyzing the previous batch, please wait."
	msgNotImage         = "📎 Only image files are supported."
	msgInvalidFeatures  = "⚠️ %s\nPlease send exactly 30 numeric values."
	msgDownloadError    = "⚠️ Could not download the image. Please try again."
	msgProcessingError  = "⚠️ Analysis failed. Please try again later."
	msgModelUnavailable = "⚠️ The model is not available right now."
	msgHistoryError     = "⚠️ Could not load history."
)

var commandDomains = map[string]entity.Domain{
	"blood":   entity.DomainBlood,
	"malaria": entity.DomainMalaria,
	"tumor":   entity.DomainTumor,
}

var domainNames = map[entity.Domain]string{
	entity.DomainBlood:   "Blood cell detection",
	entity.DomainMalaria: "Malarial cell detection",
	entity.DomainTumor:   "Tumor segmentation",
}

// Bot представляет Telegram-бота
type Bot struct {
	api          *tgbotapi.BotAPI
	users        *app.UserService
	analysis     *app.AnalysisService
	tumor        *app.TumorService
	historyLimit int
	logger       *zap.Logger
	httpClient   *http.Client

	// download подменяется в тестах
	download func(ctx context.Context, fileID string) ([]byte, error)
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newBot(api, c, logger), nil
}

func newBot(api *tgbotapi.BotAPI, c *container.Container, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("authorized", zap.String("account", api.Self.UserName))

	b := &Bot{
		api:          api,
		users:        c.UserService,
		analysis:     c.AnalysisService,
		tumor:        c.TumorService,
		historyLimit: c.HistoryLimit,
		logger:       logger,
		httpClient:   http.DefaultClient,
	}
	b.download = b.downloadFile
	return b
}

// Run запускает основной цикл обработки сообщений до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
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

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}

	user, err := b.users.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.logger.Error("get user", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		return
	}

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg, user)
	case len(msg.Photo) > 0:
		photo := msg.Photo[len(msg.Photo)-1]
		b.handleImage(ctx, msg, user, photo.FileID, photo.FileUniqueID+".jpg")
	case msg.Document != nil:
		if !strings.HasPrefix(msg.Document.MimeType, "image/") {
			b.sendMessage(msg.Chat.ID, msgNotImage)
			return
		}
		b.handleImage(ctx, msg, user, msg.Document.FileID, msg.Document.FileName)
	case user.State == entity.StateAwaitingFeatures:
		b.handleFeatures(ctx, msg)
	case user.State == entity.StateAwaitingImages:
		b.sendMessage(msg.Chat.ID, fmt.Sprintf(msgAwaitingImages, domainNames[user.Domain]))
	default:
		b.sendMessage(msg.Chat.ID, msgChooseModule)
	}
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if user.State == entity.StateProcessing && msg.Command() != "help" {
		b.sendMessage(chatID, msgBusy)
		return
	}

	switch cmd := msg.Command(); cmd {
	case "start":
		b.analysis.Discard(userID)
		b.setState(ctx, userID, chatID, entity.StateMainMenu)
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "blood", "malaria", "tumor":
		domain := commandDomains[cmd]
		b.analysis.Discard(userID)
		if _, err := b.users.BeginAnalysis(ctx, userID, chatID, domain); err != nil {
			b.logger.Error("begin analysis", zap.Int64("user_id", userID), zap.Error(err))
			b.sendMessage(chatID, msgProcessingError)
			return
		}
		b.sendMessage(chatID, fmt.Sprintf(msgAwaitingImages, domainNames[domain]))

	case "features":
		b.analysis.Discard(userID)
		if _, err := b.users.BeginFeatureInput(ctx, userID, chatID); err != nil {
			b.logger.Error("begin feature input", zap.Int64("user_id", userID), zap.Error(err))
			b.sendMessage(chatID, msgProcessingError)
			return
		}
		b.sendMessage(chatID, msgAwaitingFeatures)

	case "done":
		b.handleDone(ctx, msg)

	case "history":
		reports, err := b.analysis.History(ctx, userID, b.historyLimit)
		if err != nil {
			b.logger.Error("load history", zap.Int64("user_id", userID), zap.Error(err))
			b.sendMessage(chatID, msgHistoryError)
			return
		}
		b.sendMessage(chatID, FormatHistory(reports))

	case "cancel":
		b.analysis.Discard(userID)
		if _, err := b.users.Cancel(ctx, userID, chatID); err != nil {
			b.logger.Error("cancel", zap.Int64("user_id", userID), zap.Error(err))
		}
		b.sendMessage(chatID, msgCancelled)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// handleImage скачивает снимок и кладёт его в пачку пользователя
func (b *Bot) handleImage(ctx context.Context, msg *tgbotapi.Message, user *entity.User, fileID, name string) {
	chatID := msg.Chat.ID
	if user.State != entity.StateAwaitingImages {
		if user.State == entity.StateProcessing {
			b.sendMessage(chatID, msgBusy)
		} else {
			b.sendMessage(chatID, msgChooseModule)
		}
		return
	}

	data, err := b.download(ctx, fileID)
	if err != nil {
		b.logger.Warn("download image", zap.String("file_id", fileID), zap.Error(err))
		b.sendMessage(chatID, msgDownloadError)
		return
	}

	n, err := b.analysis.AcceptImage(ctx, msg.From.ID, chatID, port.Image{ID: name, Data: data})
	switch {
	case errors.Is(err, app.ErrBatchFull):
		b.sendMessage(chatID, fmt.Sprintf(msgBatchFull, n))
	case errors.Is(err, app.ErrNotAwaitingImages):
		b.sendMessage(chatID, msgChooseModule)
	case err != nil:
		b.logger.Error("accept image", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		b.sendMessage(chatID, msgProcessingError)
	default:
		b.sendMessage(chatID, fmt.Sprintf(msgImageQueued, n))
	}
}

// handleDone запускает анализ накопленной пачки
func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if n := b.analysis.PendingCount(userID); n > 0 {
		b.sendMessage(chatID, fmt.Sprintf(msgProcessing, n))
	}

	report, err := b.analysis.Finish(ctx, userID, chatID)
	switch {
	case errors.Is(err, app.ErrNotAwaitingImages):
		b.sendMessage(chatID, msgChooseModule)
	case errors.Is(err, app.ErrEmptyBatch):
		b.sendMessage(chatID, msgNoImages)
	case errors.Is(err, app.ErrDetectorNotConfigured):
		b.sendMessage(chatID, msgModelUnavailable)
	case err != nil:
		b.logger.Error("analyze batch", zap.Int64("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, msgProcessingError)
	default:
		b.sendMessage(chatID, FormatAnalysisReport(report))
	}
}

// handleFeatures разбирает 30 признаков и классифицирует опухоль
func (b *Bot) handleFeatures(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	features, err := ParseFeatures(msg.Text)
	var report *entity.TumorReport
	if err == nil {
		report, err = b.tumor.Classify(ctx, features)
	}

	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr):
		b.sendMessage(chatID, fmt.Sprintf(msgInvalidFeatures, verr.Error()))
		return
	case errors.Is(err, app.ErrPredictorNotConfigured):
		b.sendMessage(chatID, msgModelUnavailable)
	case err != nil:
		b.logger.Error("classify tumor", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		b.sendMessage(chatID, msgProcessingError)
	default:
		b.sendMessage(chatID, FormatTumorReport(report))
	}
	b.setState(ctx, msg.From.ID, chatID, entity.StateMainMenu)
}

func (b *Bot) setState(ctx context.Context, userID, chatID int64, state entity.UserState) {
	if _, err := b.users.SetState(ctx, userID, chatID, state); err != nil {
		b.logger.Error("set state", zap.Int64("user_id", userID), zap.String("state", string(state)), zap.Error(err))
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
