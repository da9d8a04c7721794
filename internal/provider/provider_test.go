package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/config"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayProvider(t *testing.T) {
	t.Run("posts json and returns the gateway message id", func(t *testing.T) {
		var got gatewayRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(map[string]string{"messageId": "sm-1"})
		}))
		defer srv.Close()

		p := NewGatewayProvider(domain.ChannelSMS, config.GatewayConfig{URL: srv.URL, APIKey: "secret", Sender: "Family"}, srv.Client())
		res := p.Send(context.Background(), SendOptions{To: "+15550001", Subject: "Dinner", Body: "Sunday 7pm", ItemType: domain.ItemAnnouncement, ItemID: "a1"})

		require.True(t, res.Success)
		assert.Equal(t, "sm-1", res.MessageID)
		assert.Equal(t, "+15550001", got.To)
		assert.Equal(t, "Family", got.From)
		assert.Equal(t, "Sunday 7pm", got.Body)
		assert.Equal(t, domain.ChannelSMS, got.Channel)
	})

	t.Run("non-2xx is an unsuccessful result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"carrier down"}`))
		}))
		defer srv.Close()

		p := NewGatewayProvider(domain.ChannelWhatsApp, config.GatewayConfig{URL: srv.URL}, srv.Client())
		res := p.Send(context.Background(), SendOptions{To: "+15550002", Body: "hi"})

		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "carrier down")
	})

	t.Run("context deadline is honoured", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		p := NewGatewayProvider(domain.ChannelPush, config.GatewayConfig{URL: srv.URL}, srv.Client())
		res := p.Send(ctx, SendOptions{To: "device-token", Body: "hi"})
		assert.False(t, res.Success)
	})
}

func TestUnconfiguredProviders(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		want     string
	}{
		{"email", NewSMTPProvider(config.SMTPConfig{}), "EMAIL provider is not configured"},
		{"sms", NewGatewayProvider(domain.ChannelSMS, config.GatewayConfig{}, nil), "SMS provider is not configured"},
		{"voice", NewGatewayProvider(domain.ChannelVoiceCall, config.GatewayConfig{}, nil), "VOICE_CALL provider is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.False(t, tt.provider.IsConfigured())
			res := tt.provider.Send(context.Background(), SendOptions{To: "x", Body: "y"})
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Error)
		})
	}
}

func TestRegistryFromConfig(t *testing.T) {
	r := NewRegistryFromConfig(config.ProvidersConfig{
		SMS: config.GatewayConfig{URL: "http://sms.local"},
	}, time.Second)

	for _, c := range domain.Channels {
		require.NotNil(t, r.Get(c), c)
	}
	assert.Equal(t, []domain.Channel{domain.ChannelSMS}, r.Configured())
}
