package m365mail

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

func testProvider(t *testing.T, server *httptest.Server) *Provider {
	t.Helper()

	provider, err := New(&models.ProviderConfig{
		ID:           "m365-1",
		Provider:     models.ProviderM365Mail,
		AccessToken:  "token-1",
		RefreshToken: "refresh-1",
	}, slog.Default())
	require.NoError(t, err)

	provider.BaseURL = server.URL
	provider.TokenURL = server.URL + "/token"

	return provider
}

func graphAddress(address string) graphRecipient {
	var r graphRecipient
	r.EmailAddress.Address = address

	return r
}

func TestSyncMessages_NextLinkCursor(t *testing.T) {
	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/me/messages":
			message := graphMessage{
				ID:             "msg-1",
				ConversationID: "thread-1",
				Subject:        "Quarterly numbers",
				IsRead:         true,
				From:           func() *graphRecipient { a := graphAddress("cfo@acme.test"); return &a }(),
				ToRecipients:   []graphRecipient{graphAddress("rosa@acme.test")},
				SentDateTime:   "2026-06-01T12:00:00Z",
			}
			message.Flag = &struct {
				FlagStatus string `json:"flagStatus"`
			}{FlagStatus: "flagged"}

			json.NewEncoder(w).Encode(graphMessagePage{
				Value:    []graphMessage{message},
				NextLink: server.URL + "/next-page",
			})
		case "/next-page":
			json.NewEncoder(w).Encode(graphMessagePage{
				Value: []graphMessage{{ID: "msg-2"}},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	provider := testProvider(t, server)

	first, err := provider.SyncMessages(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, first.Messages, 1)
	assert.True(t, first.HasMore)
	assert.Equal(t, server.URL+"/next-page", first.NextCursor)

	message := first.Messages[0]
	assert.Equal(t, "thread-1", message.ThreadID)
	assert.Equal(t, "cfo@acme.test", message.From)
	assert.Equal(t, []string{"rosa@acme.test"}, message.To)
	assert.True(t, message.Read)
	assert.True(t, message.Starred)

	second, err := provider.SyncMessages(context.Background(), first.NextCursor)
	require.NoError(t, err)
	require.Len(t, second.Messages, 1)
	assert.False(t, second.HasMore)
}

func TestSyncMessages_HTMLBodyKeepsPreviewAsText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		message := graphMessage{ID: "msg-3", BodyPreview: "plain preview"}
		message.Body = &struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		}{ContentType: "html", Content: "<p>rich</p>"}

		json.NewEncoder(w).Encode(graphMessagePage{Value: []graphMessage{message}})
	}))
	defer server.Close()

	result, err := testProvider(t, server).SyncMessages(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, "<p>rich</p>", result.Messages[0].HTMLBody)
	assert.Equal(t, "plain preview", result.Messages[0].TextBody)
}

func TestSendEmail_PostsGraphPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me/sendMail", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		message, ok := payload["message"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Hello", message["subject"])
		assert.Equal(t, true, payload["saveToSentItems"])

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	id, err := testProvider(t, server).SendEmail(context.Background(), models.OutgoingEmail{
		To:       []string{"rosa@acme.test"},
		Subject:  "Hello",
		TextBody: "Hi there",
	})
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestRefreshToken_RotatesRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "token-2",
			"refresh_token": "refresh-2",
			"expires_in":    3600,
		})
	}))
	defer server.Close()

	provider := testProvider(t, server)

	creds, err := provider.RefreshToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", creds.AccessToken)
	assert.Equal(t, "refresh-2", creds.RefreshToken)
	assert.Equal(t, "refresh-2", provider.config.RefreshToken)
}

func TestMarkRead_PatchesIsRead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/me/messages/msg-1", r.URL.Path)

		var payload map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.True(t, payload["isRead"])

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	require.NoError(t, testProvider(t, server).MarkRead(context.Background(), "msg-1", true))
}

func TestSync_AuthFailureSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testProvider(t, server).SyncMessages(context.Background(), "")
	require.ErrorIs(t, err, providers.ErrAuthFailed)
}
