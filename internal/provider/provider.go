// Package provider holds the per-channel senders used by dispatch.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/config"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"
)

type SendOptions struct {
	To       string
	Subject  string
	Body     string
	ItemType domain.ItemType
	ItemID   string
}

type SendResult struct {
	Success   bool
	MessageID string
	Error     string
}

func Failed(err error) SendResult {
	return SendResult{Success: false, Error: err.Error()}
}

// Provider sends one message on one channel. Send never panics on
// transport errors; they come back as an unsuccessful result.
type Provider interface {
	Channel() domain.Channel
	IsConfigured() bool
	Send(ctx context.Context, opts SendOptions) SendResult
}

// NotConfiguredError is the error recorded for a channel with no usable provider.
func NotConfiguredError(channel domain.Channel) error {
	return fmt.Errorf("%s %w", channel, types.ErrProviderNotConfigured)
}

type Registry struct {
	providers map[domain.Channel]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[domain.Channel]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Channel()] = p
	}
	return r
}

// Get returns the provider of channel, or nil when none is registered.
func (r *Registry) Get(channel domain.Channel) Provider {
	return r.providers[channel]
}

// Configured lists the channels whose provider can send.
func (r *Registry) Configured() []domain.Channel {
	out := make([]domain.Channel, 0, len(r.providers))
	for _, c := range domain.Channels {
		if p, ok := r.providers[c]; ok && p.IsConfigured() {
			out = append(out, c)
		}
	}
	return out
}

// NewRegistryFromConfig registers a provider for every channel. Channels
// without credentials get an adapter that reports itself unconfigured.
func NewRegistryFromConfig(cfg config.ProvidersConfig, timeout time.Duration) *Registry {
	client := &http.Client{Timeout: timeout}

	return NewRegistry(
		NewSMTPProvider(cfg.Email),
		NewGatewayProvider(domain.ChannelSMS, cfg.SMS, client),
		NewGatewayProvider(domain.ChannelWhatsApp, cfg.WhatsApp, client),
		NewGatewayProvider(domain.ChannelPush, cfg.Push, client),
		NewGatewayProvider(domain.ChannelVoiceCall, cfg.Voice, client),
	)
}
