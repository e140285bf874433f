package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Payload is the generic webhook body: the verdict line split out so
// consumers can filter without parsing the text.
type Payload struct {
	Verdict string `json:"verdict"`
	Body    string `json:"body"`
}

// DiscordPayload represents the structure for Discord Webhooks
type DiscordPayload struct {
	Content string `json:"content"`
	// We could add embeds for fancier display, but content is safest for now.
}

// Mirror posts the same verdict body to an HTTP webhook alongside the mail,
// so a chat channel can follow the signal. Best effort: the orchestrator
// logs failures and never fails the run over them.
type Mirror struct {
	url      string
	provider string
	client   *http.Client
}

func NewMirror(url, provider string) *Mirror {
	if provider == "" {
		provider = "generic"
	}
	return &Mirror{
		url:      url,
		provider: provider,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (m *Mirror) Post(ctx context.Context, body string) error {
	var payload []byte
	var err error

	if m.provider == "discord" {
		payload, err = json.Marshal(DiscordPayload{Content: body})
	} else {
		verdict, _, _ := strings.Cut(body, "\n")
		payload, err = json.Marshal(Payload{Verdict: verdict, Body: body})
	}
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "docwatch/1.0")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook responded with status: %d", resp.StatusCode)
	}
	return nil
}
