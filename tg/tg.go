package tg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultAPI = "https://api.telegram.org"

type tgMsg struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// Sender posts plain text messages to a fixed set of chats.
type Sender struct {
	api     string
	token   string
	chatIDs []int64
	client  *http.Client
}

func NewSender(botToken string, chatIDs []int64) *Sender {
	return &Sender{
		api:     defaultAPI,
		token:   botToken,
		chatIDs: chatIDs,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers text to every chat; one failing chat does not stop the rest.
func (s *Sender) Send(ctx context.Context, text string) error {
	var errs []error
	for _, id := range s.chatIDs {
		if err := s.SendMessage(ctx, id, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Sender) SendMessage(ctx context.Context, chatID int64, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.api, "/"), s.token)

	data, err := json.Marshal(tgMsg{ChatID: chatID, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("telegram api returned status %s: %s", res.Status, body)
	}

	return nil
}
