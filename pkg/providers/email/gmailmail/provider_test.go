package gmailmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/providers"
)

func testProvider(t *testing.T, server *httptest.Server) *Provider {
	t.Helper()

	provider, err := New(&models.ProviderConfig{
		ID:           "gmail-1",
		Provider:     models.ProviderGmail,
		AccessToken:  "token-1",
		RefreshToken: "refresh-1",
	}, slog.Default())
	require.NoError(t, err)

	provider.BaseURL = server.URL
	provider.TokenURL = server.URL + "/token"

	return provider
}

// b64url encodes the way Gmail serves body data: base64url, no
// padding.
func b64url(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func fullMessage(id string) map[string]any {
	return map[string]any{
		"id":           id,
		"threadId":     "thread-" + id,
		"labelIds":     []string{"UNREAD", "STARRED", "IMPORTANT"},
		"snippet":      "snippet text",
		"internalDate": "1767225600000",
		"payload": map[string]any{
			"mimeType": "multipart/alternative",
			"headers": []map[string]string{
				{"name": "From", "value": "ana@acme.test"},
				{"name": "To", "value": "rosa@acme.test, bob@acme.test"},
				{"name": "Subject", "value": "Plans"},
			},
			"parts": []map[string]any{
				{
					"mimeType": "text/plain",
					"body":     map[string]string{"data": b64url("plain body")},
				},
				{
					"mimeType": "text/html",
					"body":     map[string]string{"data": b64url("<p>html body</p>")},
				},
			},
		},
	}
}

func TestSyncMessages_TwoPhaseFetch(t *testing.T) {
	var listCalls, fetchCalls int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		switch {
		case r.URL.Path == "/users/me/messages":
			listCalls++
			json.NewEncoder(w).Encode(map[string]any{
				"messages":      []map[string]string{{"id": "m1"}, {"id": "m2"}},
				"nextPageToken": "tok-2",
			})
		case strings.HasPrefix(r.URL.Path, "/users/me/messages/"):
			fetchCalls++
			assert.Equal(t, "full", r.URL.Query().Get("format"))

			id := strings.TrimPrefix(r.URL.Path, "/users/me/messages/")
			json.NewEncoder(w).Encode(fullMessage(id))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	result, err := testProvider(t, server).SyncMessages(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, listCalls)
	assert.Equal(t, 2, fetchCalls)
	require.Len(t, result.Messages, 2)
	assert.True(t, result.HasMore)
	assert.Equal(t, "tok-2", result.NextCursor)

	message := result.Messages[0]
	assert.Equal(t, "m1", message.ID)
	assert.Equal(t, "thread-m1", message.ThreadID)
	assert.Equal(t, "ana@acme.test", message.From)
	assert.Equal(t, []string{"rosa@acme.test", "bob@acme.test"}, message.To)
	assert.Equal(t, "Plans", message.Subject)
	assert.Equal(t, "plain body", message.TextBody)
	assert.Equal(t, "<p>html body</p>", message.HTMLBody)
	assert.False(t, message.Read)
	assert.True(t, message.Starred)
	assert.Equal(t, []string{"IMPORTANT"}, message.Labels)
	assert.Equal(t, int64(1767225600000), message.SentAt.UnixMilli())
}

func TestExtractBodies_AcceptsUnpaddedAndPaddedData(t *testing.T) {
	// "Hi Ada!" is 7 bytes, so its base64url form needs padding that
	// Gmail never sends.
	text, _ := extractBodies(messagePart{
		MimeType: "text/plain",
		Body:     partBody{Data: "SGkgQWRhIQ"},
	})
	assert.Equal(t, "Hi Ada!", text)

	text, html := extractBodies(messagePart{
		MimeType: "multipart/alternative",
		Parts: []messagePart{
			{MimeType: "text/plain", Body: partBody{Data: "SGkgQWRhIQ=="}},
			{MimeType: "text/html", Body: partBody{Data: b64url("<b>Hi Ada!</b>")}},
		},
	})
	assert.Equal(t, "Hi Ada!", text)
	assert.Equal(t, "<b>Hi Ada!</b>", html)
}

func TestSyncMessages_EmptyMailbox(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	result, err := testProvider(t, server).SyncMessages(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, result.Messages)
	assert.False(t, result.HasMore)
}

func TestSendEmail_EncodesRFC822(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/me/messages/send", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		raw, err := base64.URLEncoding.DecodeString(payload["raw"])
		require.NoError(t, err)

		message := string(raw)
		assert.Contains(t, message, "To: rosa@acme.test\r\n")
		assert.Contains(t, message, "Subject: Hello\r\n")
		assert.Contains(t, message, "Content-Type: text/plain")
		assert.True(t, strings.HasSuffix(message, "the body"))

		json.NewEncoder(w).Encode(map[string]string{"id": "sent-1"})
	}))
	defer server.Close()

	id, err := testProvider(t, server).SendEmail(context.Background(), models.OutgoingEmail{
		To:       []string{"rosa@acme.test"},
		Subject:  "Hello",
		TextBody: "the body",
	})
	require.NoError(t, err)
	assert.Equal(t, "sent-1", id)
}

func TestMarkRead_TogglesUnreadLabel(t *testing.T) {
	var lastPayload map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/me/messages/m1/modify", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastPayload))
		fmt.Fprint(w, "{}")
	}))
	defer server.Close()

	provider := testProvider(t, server)

	require.NoError(t, provider.MarkRead(context.Background(), "m1", true))
	assert.Equal(t, []string{"UNREAD"}, lastPayload["removeLabelIds"])

	require.NoError(t, provider.MarkRead(context.Background(), "m1", false))
	assert.Equal(t, []string{"UNREAD"}, lastPayload["addLabelIds"])
}

func TestRefreshToken_KeepsRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"access_token": "token-2", "expires_in": 3599})
	}))
	defer server.Close()

	creds, err := testProvider(t, server).RefreshToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", creds.AccessToken)
	assert.Equal(t, "refresh-1", creds.RefreshToken)
}

func TestSyncMessages_AuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := testProvider(t, server).SyncMessages(context.Background(), "")
	require.ErrorIs(t, err, providers.ErrAuthFailed)
}
