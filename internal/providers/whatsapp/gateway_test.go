package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arusnet/arus/internal/config"
)

func TestSendMessagePostsToGateway(t *testing.T) {
	var gotAuth string
	var gotBody sendRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, "kunci-gateway")
	err := gw.SendMessage(context.Background(), "6281234567890", "Tagihan Agustus sudah terbit")
	require.NoError(t, err)

	assert.Equal(t, "kunci-gateway", gotAuth)
	assert.Equal(t, "6281234567890", gotBody.Phone)
	assert.Equal(t, "Tagihan Agustus sudah terbit", gotBody.Message)
}

func TestSendMessageSurfacesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, "salah")
	err := gw.SendMessage(context.Background(), "6281234567890", "halo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")

	err = gw.SendMessage(context.Background(), "", "halo")
	assert.Error(t, err)
}

func TestNewFromConfigSelectsProvider(t *testing.T) {
	var cfg config.Config

	_, ok := NewFromConfig(cfg).(*NoOpProvider)
	assert.True(t, ok)

	cfg.WhatsApp.GatewayURL = "https://gateway.example.id/send"
	cfg.WhatsApp.APIKey = "kunci-gateway"
	_, ok = NewFromConfig(cfg).(*GatewayProvider)
	assert.True(t, ok)
}
