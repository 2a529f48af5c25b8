package imapmail

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/providers"
)

func testProvider(t *testing.T, imap, smtp *httptest.Server) *Provider {
	t.Helper()

	provider, err := New(&models.ProviderConfig{
		ID:       "imap-1",
		Provider: models.ProviderIMAP,
		IMAPHost: "mail.internal",
		IMAPPort: 993,
		SMTPHost: "mail.internal",
		SMTPPort: 587,
		Username: "rosa",
		Password: "secret",
	}, slog.Default())
	require.NoError(t, err)

	if imap != nil {
		provider.IMAPBaseURL = imap.URL
	}

	if smtp != nil {
		provider.SMTPBaseURL = smtp.URL
	}

	return provider
}

func TestNew_RequiresBothHostsAndCredentials(t *testing.T) {
	_, err := New(&models.ProviderConfig{IMAPHost: "mail.internal", Username: "rosa"}, slog.Default())
	require.ErrorIs(t, err, ErrConfigIncomplete)
}

func TestSyncMessages_UIDCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rosa", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "/mailboxes/INBOX/messages", r.URL.Path)

		if r.URL.Query().Get("since_uid") == "0" {
			json.NewEncoder(w).Encode(messagePage{
				Messages: []wireMessage{
					{UID: 101, From: "ana@acme.test", Subject: "Hi", Flags: []string{`\Seen`}, Date: "2026-05-01T08:00:00Z"},
					{UID: 102, From: "bob@acme.test", Subject: "Re: Hi", Flags: []string{`\Flagged`}, Date: "2026-05-01T09:00:00Z"},
				},
				NextUID: 102,
				HasMore: true,
			})

			return
		}

		assert.Equal(t, "102", r.URL.Query().Get("since_uid"))
		json.NewEncoder(w).Encode(messagePage{
			Messages: []wireMessage{{UID: 103, From: "cle@acme.test", Date: "2026-05-01T10:00:00Z"}},
		})
	}))
	defer server.Close()

	provider := testProvider(t, server, nil)

	first, err := provider.SyncMessages(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, first.Messages, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "102", first.NextCursor)

	assert.Equal(t, "101", first.Messages[0].ID)
	assert.True(t, first.Messages[0].Read)
	assert.False(t, first.Messages[0].Starred)
	assert.True(t, first.Messages[1].Starred)
	assert.Equal(t, "2026-05-01T08:00:00Z", first.Messages[0].SentAt.Format("2006-01-02T15:04:05Z07:00"))

	second, err := provider.SyncMessages(context.Background(), first.NextCursor)
	require.NoError(t, err)
	require.Len(t, second.Messages, 1)
	assert.False(t, second.HasMore)
	assert.Empty(t, second.NextCursor)
}

func TestSyncMessages_RejectsMalformedCursor(t *testing.T) {
	provider := testProvider(t, nil, nil)

	_, err := provider.SyncMessages(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid imap cursor")
}

func TestSyncMessages_UnauthorizedMapsToAuthFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testProvider(t, server, nil).SyncMessages(context.Background(), "")
	require.ErrorIs(t, err, providers.ErrAuthFailed)
}

func TestSendEmail_UsesSMTPBridge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/send", r.URL.Path)

		var outgoing models.OutgoingEmail
		require.NoError(t, json.NewDecoder(r.Body).Decode(&outgoing))
		assert.Equal(t, []string{"dia@acme.test"}, outgoing.To)

		json.NewEncoder(w).Encode(map[string]string{"message_id": "<msg-1@mail.internal>"})
	}))
	defer server.Close()

	id, err := testProvider(t, nil, server).SendEmail(context.Background(), models.OutgoingEmail{
		To:      []string{"dia@acme.test"},
		Subject: "Report",
	})
	require.NoError(t, err)
	assert.Equal(t, "<msg-1@mail.internal>", id)
}

func TestMarkRead_SetsSeenFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/mailboxes/INBOX/messages/101/flags", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, `\Seen`, payload["flag"])
		assert.Equal(t, true, payload["set"])

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	require.NoError(t, testProvider(t, server, nil).MarkRead(context.Background(), "101", true))
}

func TestProvider_DoesNotRefreshTokens(t *testing.T) {
	var p providers.Provider = testProvider(t, nil, nil)

	_, ok := p.(providers.TokenRefresher)
	assert.False(t, ok)
}
