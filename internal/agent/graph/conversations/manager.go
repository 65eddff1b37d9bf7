package conversations

import (
	"context"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Chative-medical-agent/server/internal/agent/model"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

// ImagePlaceholder replaces inline image payloads in stored history.
const ImagePlaceholder = "[圖表已省略]"

var inlineImage = regexp.MustCompile(`data:image/[a-zA-Z0-9.+-]+;base64,[A-Za-z0-9+/=]+`)

type MessagesManager struct {
	store model.SessionStore
}

func NewMessagesManager(store model.SessionStore) *MessagesManager {
	return &MessagesManager{store: store}
}

// Load returns the stored history for a user, empty if none.
func (mm *MessagesManager) Load(ctx context.Context, userID string) ([]*schema.Message, error) {
	history, err := mm.store.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []*schema.Message{}
	}
	return history, nil
}

// Record stores one exchange. The assistant text is scrubbed of inline image
// payloads first; the caller keeps the original.
func (mm *MessagesManager) Record(ctx context.Context, userID, userMsg, assistantMsg string) error {
	if err := mm.store.Append(ctx, userID,
		schema.UserMessage(userMsg),
		schema.AssistantMessage(ScrubImages(assistantMsg), nil),
	); err != nil {
		return err
	}

	if history, err := mm.store.History(ctx, userID); err == nil {
		logx.Info().Str("user_id", userID).Int("history_len", len(history)).Msg("Session updated")
	}
	return nil
}

// ScrubImages swaps every base64 image payload for ImagePlaceholder.
func ScrubImages(text string) string {
	return inlineImage.ReplaceAllString(text, ImagePlaceholder)
}

// LastAssistantContent returns the most recent assistant turn, or "".
func LastAssistantContent(messages []*schema.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m == nil {
			continue
		}
		if m.Role == schema.Assistant {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}
