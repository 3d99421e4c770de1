package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"bioscan-bot/internal/container"
	"bioscan-bot/internal/domain/entity"
	"bioscan-bot/internal/domain/port"
	"bioscan-bot/internal/infrastructure/storage"
)

const (
	testUserID int64 = 7
	testChatID int64 = 70
)

// fakeTelegram отвечает на getMe и sendMessage и запоминает отправленные тексты.
type fakeTelegram struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bioscan","username":"bioscan_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		f.mu.Lock()
		f.sent = append(f.sent, r.FormValue("text"))
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":70,"type":"private"}}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"not found"}`))
	}
}

func (f *fakeTelegram) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type stubDetector struct {
	classIDs map[string][]int
}

func (d *stubDetector) Detect(_ context.Context, _ entity.Domain, img port.Image) ([]entity.Detection, error) {
	var out []entity.Detection
	for _, id := range d.classIDs[img.ID] {
		out = append(out, entity.Detection{ClassID: id, Confidence: 0.9, SourceImageID: img.ID})
	}
	return out, nil
}

func newTestBot(t *testing.T, deps container.Deps) (*Bot, *fakeTelegram) {
	t.Helper()

	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint("test-token", srv.URL+"/bot%s/%s")
	require.NoError(t, err)

	if deps.Users == nil {
		deps.Users = storage.NewMemoryUserRepository()
	}
	b := newBot(api, container.New(deps), nil)
	b.download = func(_ context.Context, fileID string) ([]byte, error) {
		if fileID == "broken" {
			return nil, errors.New("telegram unavailable")
		}
		return []byte(fileID), nil
	}
	return b, fake
}

func command(name string) *tgbotapi.Message {
	text := "/" + name
	return &tgbotapi.Message{
		Text:     text,
		From:     &tgbotapi.User{ID: testUserID},
		Chat:     &tgbotapi.Chat{ID: testChatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func textMessage(s string) *tgbotapi.Message {
	return &tgbotapi.Message{Text: s, From: &tgbotapi.User{ID: testUserID}, Chat: &tgbotapi.Chat{ID: testChatID}}
}

func photo(fileID string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From:  &tgbotapi.User{ID: testUserID},
		Chat:  &tgbotapi.Chat{ID: testChatID},
		Photo: []tgbotapi.PhotoSize{{FileID: "thumb"}, {FileID: fileID, FileUniqueID: fileID}},
	}
}

func TestBot_BloodBatch(t *testing.T) {
	det := &stubDetector{classIDs: map[string][]int{
		"a.jpg": {0, 0, 0, 0, 1},
		"b.jpg": {0, 0, 0, 0},
	}}
	b, fake := newTestBot(t, container.Deps{Detector: det})
	ctx := context.Background()

	b.handleMessage(ctx, command("blood"))
	require.Contains(t, fake.last(), "Blood cell detection selected")

	b.handleMessage(ctx, photo("a"))
	require.Equal(t, "🖼 Image 1 queued. Send more or /done.", fake.last())
	b.handleMessage(ctx, photo("b"))
	require.Equal(t, "🖼 Image 2 queued. Send more or /done.", fake.last())

	b.handleMessage(ctx, command("done"))
	out := fake.last()
	require.Contains(t, out, "RBC: 8")
	require.Contains(t, out, "WBC: 1")
	require.Contains(t, out, "RBC/WBC ratio: 8.00")
	require.Contains(t, out, "Status: normal range")

	user, err := b.users.Get(ctx, testUserID, testChatID)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
}

func TestBot_PhotoWithoutModule(t *testing.T) {
	b, fake := newTestBot(t, container.Deps{Detector: &stubDetector{}})

	b.handleMessage(context.Background(), photo("a"))

	require.Equal(t, msgChooseModule, fake.last())
	require.Zero(t, b.analysis.PendingCount(testUserID))
}

func TestBot_DownloadFailure(t *testing.T) {
	b, fake := newTestBot(t, container.Deps{Detector: &stubDetector{}})
	ctx := context.Background()

	b.handleMessage(ctx, command("malaria"))
	b.handleMessage(ctx, photo("broken"))

	require.Equal(t, msgDownloadError, fake.last())
	require.Zero(t, b.analysis.PendingCount(testUserID))
}

func TestBot_DoneWithoutImages(t *testing.T) {
	b, fake := newTestBot(t, container.Deps{Detector: &stubDetector{}})
	ctx := context.Background()

	b.handleMessage(ctx, command("done"))
	require.Equal(t, msgChooseModule, fake.last())

	b.handleMessage(ctx, command("tumor"))
	b.handleMessage(ctx, command("done"))
	require.Equal(t, msgNoImages, fake.last())
}

func TestBot_CancelDropsBatch(t *testing.T) {
	b, fake := newTestBot(t, container.Deps{Detector: &stubDetector{}})
	ctx := context.Background()

	b.handleMessage(ctx, command("blood"))
	b.handleMessage(ctx, photo("a"))
	require.Equal(t, 1, b.analysis.PendingCount(testUserID))

	b.handleMessage(ctx, command("cancel"))

	require.Equal(t, msgCancelled, fake.last())
	require.Zero(t, b.analysis.PendingCount(testUserID))
}

func TestBot_DocumentMustBeImage(t *testing.T) {
	b, fake := newTestBot(t, container.Deps{Detector: &stubDetector{}})
	ctx := context.Background()

	b.handleMessage(ctx, command("blood"))
	msg := textMessage("")
	msg.Document = &tgbotapi.Document{FileID: "doc", FileName: "report.pdf", MimeType: "application/pdf"}
	b.handleMessage(ctx, msg)

	require.Equal(t, msgNotImage, fake.last())
}

func TestBot_FeaturesValidation(t *testing.T) {
	b, fake := newTestBot(t, container.Deps{})
	ctx := context.Background()

	b.handleMessage(ctx, command("features"))
	require.Equal(t, msgAwaitingFeatures, fake.last())

	b.handleMessage(ctx, textMessage("1, 2, 3"))
	require.Contains(t, fake.last(), "expected 30 values, got 3")

	// после ошибки пользователь может повторить ввод
	user, err := b.users.Get(ctx, testUserID, testChatID)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingFeatures, user.State)

	values := strings.TrimSpace(strings.Repeat("1 ", entity.FeatureCount))
	b.handleMessage(ctx, textMessage(values))
	require.Equal(t, msgModelUnavailable, fake.last())
}

func TestBot_HistoryWithoutStore(t *testing.T) {
	b, fake := newTestBot(t, container.Deps{})

	b.handleMessage(context.Background(), command("history"))

	require.Contains(t, fake.last(), "No reports yet")
}

func TestBot_UnknownCommand(t *testing.T) {
	b, fake := newTestBot(t, container.Deps{})

	b.handleMessage(context.Background(), command("check"))

	require.Equal(t, msgUnknownCommand, fake.last())
}
