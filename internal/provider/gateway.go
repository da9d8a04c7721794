package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Zvi-Yafi/family-notify-sub001/config"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"
)

// GatewayProvider posts messages as JSON to an HTTP messaging gateway.
// SMS, WhatsApp, push and voice gateways all share this shape.
type GatewayProvider struct {
	channel domain.Channel
	cfg     config.GatewayConfig
	client  *http.Client
}

var _ Provider = (*GatewayProvider)(nil)

type gatewayRequest struct {
	Channel  domain.Channel `json:"channel"`
	From     string         `json:"from,omitempty"`
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Body     string         `json:"body"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type gatewayResponse struct {
	MessageID string `json:"messageId"`
	ID        string `json:"id"`
	Error     string `json:"error"`
}

func NewGatewayProvider(channel domain.Channel, cfg config.GatewayConfig, client *http.Client) *GatewayProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &GatewayProvider{channel: channel, cfg: cfg, client: client}
}

func (p *GatewayProvider) Channel() domain.Channel {
	return p.channel
}

func (p *GatewayProvider) IsConfigured() bool {
	return p.cfg.URL != ""
}

func (p *GatewayProvider) Send(ctx context.Context, opts SendOptions) SendResult {
	if !p.IsConfigured() {
		return Failed(NotConfiguredError(p.channel))
	}

	payload, err := json.Marshal(gatewayRequest{
		Channel: p.channel,
		From:    p.cfg.Sender,
		To:      opts.To,
		Subject: opts.Subject,
		Body:    opts.Body,
		Metadata: map[string]any{
			"itemType": opts.ItemType,
			"itemId":   opts.ItemID,
		},
	})
	if err != nil {
		return Failed(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return Failed(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Failed(fmt.Errorf("%w: %w", types.ErrProviderFailure, err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var decoded gatewayResponse
	_ = json.Unmarshal(body, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := decoded.Error
		if reason == "" {
			reason = resp.Status
		}
		return Failed(fmt.Errorf("%w: %s gateway: %s", types.ErrProviderFailure, p.channel, reason))
	}

	messageID := decoded.MessageID
	if messageID == "" {
		messageID = decoded.ID
	}

	return SendResult{Success: true, MessageID: messageID}
}
