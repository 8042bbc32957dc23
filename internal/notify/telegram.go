package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// Telegram posts messages to a channel through the Bot API.
type Telegram struct {
	token   string
	channel string
	baseURL string
	http    *http.Client
}

type sendMessageReq struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// NewTelegram returns a notifier for the bot token and channel id.
func NewTelegram(token, channel string) *Telegram {
	return &Telegram{
		token:   token,
		channel: channel,
		baseURL: telegramAPI,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the notifier at another Bot API host.
func (t *Telegram) WithBaseURL(u string) *Telegram {
	t.baseURL = u
	return t
}

// Notify sends msg as an HTML message to the configured channel.
func (t *Telegram) Notify(ctx context.Context, msg Message) error {
	body, err := json.Marshal(sendMessageReq{
		ChatID:                t.channel,
		Text:                  msg.HTML(),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram: encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
