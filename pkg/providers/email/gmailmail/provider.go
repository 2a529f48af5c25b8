// Package gmailmail adapts the Gmail v1 API to the provider contract.
// Sync is two-phase: a message-id listing page followed by one metadata
// fetch per id. The cursor is Gmail's opaque nextPageToken.
package gmailmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/providers"
)

const (
	defaultBaseURL  = "https://gmail.googleapis.com/gmail/v1"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	pageSize        = 50
)

var ErrConfigIncomplete = errors.New("gmail config requires access token and refresh token")

type Provider struct {
	BaseURL  string
	TokenURL string

	config *models.ProviderConfig
	client *http.Client
	logger *slog.Logger
}

func New(config *models.ProviderConfig, logger *slog.Logger) (*Provider, error) {
	if config.AccessToken == "" || config.RefreshToken == "" {
		return nil, ErrConfigIncomplete
	}

	return &Provider{
		BaseURL:  defaultBaseURL,
		TokenURL: defaultTokenURL,
		config:   config,
		client:   providers.NewHTTPClient(),
		logger:   logger.With("provider", models.ProviderGmail),
	}, nil
}

func Factory(config *models.ProviderConfig, logger *slog.Logger) (providers.Provider, error) {
	return New(config, logger)
}

func (p *Provider) Connect(ctx context.Context) error {
	var profile struct {
		EmailAddress string `json:"emailAddress"`
	}

	endpoint := p.BaseURL + "/users/me/profile"

	if err := providers.DoJSON(ctx, p.client, http.MethodGet, endpoint, p.authorize, nil, &profile); err != nil {
		return err
	}

	p.logger.Debug("Connected to Gmail", "account", profile.EmailAddress)

	return nil
}

func (p *Provider) Disconnect(_ context.Context) error {
	p.client.CloseIdleConnections()

	return nil
}

type messageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

type messageList struct {
	Messages      []messageRef `json:"messages"`
	NextPageToken string       `json:"nextPageToken,omitempty"`
}

type partBody struct {
	Data string `json:"data,omitempty"`
}

type messagePart struct {
	MimeType string        `json:"mimeType"`
	Body     partBody      `json:"body"`
	Parts    []messagePart `json:"parts,omitempty"`
}

type wireMessage struct {
	ID           string   `json:"id"`
	ThreadID     string   `json:"threadId"`
	LabelIDs     []string `json:"labelIds"`
	Snippet      string   `json:"snippet"`
	InternalDate string   `json:"internalDate"`
	Payload      struct {
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
		messagePart
	} `json:"payload"`
}

func (p *Provider) SyncMessages(ctx context.Context, cursor string) (*providers.EmailSyncResult, error) {
	endpoint := fmt.Sprintf("%s/users/me/messages?maxResults=%d", p.BaseURL, pageSize)
	if cursor != "" {
		endpoint += "&pageToken=" + url.QueryEscape(cursor)
	}

	var page messageList

	if err := providers.DoJSON(ctx, p.client, http.MethodGet, endpoint, p.authorize, nil, &page); err != nil {
		return nil, err
	}

	messages := make([]models.EmailMessage, 0, len(page.Messages))

	for _, ref := range page.Messages {
		message, err := p.fetchMessage(ctx, ref.ID)
		if err != nil {
			return nil, err
		}

		messages = append(messages, *message)
	}

	return &providers.EmailSyncResult{
		Messages:   messages,
		NextCursor: page.NextPageToken,
		HasMore:    page.NextPageToken != "",
	}, nil
}

func (p *Provider) fetchMessage(ctx context.Context, id string) (*models.EmailMessage, error) {
	endpoint := fmt.Sprintf("%s/users/me/messages/%s?format=full", p.BaseURL, url.PathEscape(id))

	var wire wireMessage

	if err := providers.DoJSON(ctx, p.client, http.MethodGet, endpoint, p.authorize, nil, &wire); err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", id, err)
	}

	message := p.normalize(wire)

	return &message, nil
}

// SendEmail builds an RFC 822 message and posts it base64url-encoded,
// which is the only send shape Gmail accepts.
func (p *Provider) SendEmail(ctx context.Context, email models.OutgoingEmail) (string, error) {
	payload := map[string]string{
		"raw": base64.URLEncoding.EncodeToString([]byte(buildRFC822(email))),
	}

	var sent messageRef

	endpoint := p.BaseURL + "/users/me/messages/send"

	if err := providers.DoJSON(ctx, p.client, http.MethodPost, endpoint, p.authorize, payload, &sent); err != nil {
		return "", err
	}

	return sent.ID, nil
}

// MarkRead toggles the UNREAD label.
func (p *Provider) MarkRead(ctx context.Context, messageID string, read bool) error {
	payload := map[string][]string{}
	if read {
		payload["removeLabelIds"] = []string{"UNREAD"}
	} else {
		payload["addLabelIds"] = []string{"UNREAD"}
	}

	endpoint := fmt.Sprintf("%s/users/me/messages/%s/modify", p.BaseURL, url.PathEscape(messageID))

	return providers.DoJSON(ctx, p.client, http.MethodPost, endpoint, p.authorize, payload, nil)
}

func (p *Provider) RefreshToken(ctx context.Context) (*models.RefreshedCredentials, error) {
	payload := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": p.config.RefreshToken,
	}
	if clientID := os.Getenv("HELIX_GOOGLE_CLIENT_ID"); clientID != "" {
		payload["client_id"] = clientID
		payload["client_secret"] = os.Getenv("HELIX_GOOGLE_CLIENT_SECRET")
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}

	if err := providers.DoJSON(ctx, p.client, http.MethodPost, p.TokenURL, nil, payload, &token); err != nil {
		return nil, err
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access token")
	}

	p.config.AccessToken = token.AccessToken
	p.logger.Info("Refreshed Gmail access token", "expires_in", token.ExpiresIn)

	return &models.RefreshedCredentials{
		ProviderID:   p.config.ID,
		AccessToken:  token.AccessToken,
		RefreshToken: p.config.RefreshToken,
	}, nil
}

func (p *Provider) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.config.AccessToken)
}

func (p *Provider) normalize(wire wireMessage) models.EmailMessage {
	message := models.EmailMessage{
		ID:       wire.ID,
		ThreadID: wire.ThreadID,
		TextBody: wire.Snippet,
		Read:     true,
	}

	for _, label := range wire.LabelIDs {
		switch label {
		case "UNREAD":
			message.Read = false
		case "STARRED":
			message.Starred = true
		default:
			message.Labels = append(message.Labels, label)
		}
	}

	for _, header := range wire.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "from":
			message.From = header.Value
		case "to":
			message.To = splitAddressList(header.Value)
		case "cc":
			message.Cc = splitAddressList(header.Value)
		case "subject":
			message.Subject = header.Value
		case "in-reply-to":
			message.InReplyTo = header.Value
		}
	}

	if text, html := extractBodies(wire.Payload.messagePart); text != "" || html != "" {
		if text != "" {
			message.TextBody = text
		}

		message.HTMLBody = html
	}

	if millis, err := strconv.ParseInt(wire.InternalDate, 10, 64); err == nil {
		received := time.UnixMilli(millis).UTC()
		message.SentAt = received
		message.ReceivedAt = &received
	}

	return message
}

// extractBodies walks the MIME part tree for the first text/plain and
// text/html leaves.
func extractBodies(part messagePart) (text, html string) {
	// Gmail serves body data base64url-encoded without padding.
	decode := func(data string) string {
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return ""
		}

		return string(decoded)
	}

	switch part.MimeType {
	case "text/plain":
		return decode(part.Body.Data), ""
	case "text/html":
		return "", decode(part.Body.Data)
	}

	for _, child := range part.Parts {
		childText, childHTML := extractBodies(child)
		if text == "" {
			text = childText
		}

		if html == "" {
			html = childHTML
		}
	}

	return text, html
}

func splitAddressList(raw string) []string {
	var out []string

	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

func buildRFC822(email models.OutgoingEmail) string {
	var b strings.Builder

	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(email.To, ", "))

	if len(email.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(email.Cc, ", "))
	}

	if len(email.Bcc) > 0 {
		fmt.Fprintf(&b, "Bcc: %s\r\n", strings.Join(email.Bcc, ", "))
	}

	fmt.Fprintf(&b, "Subject: %s\r\n", email.Subject)

	if email.HTMLBody != "" {
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(email.HTMLBody)
	} else {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(email.TextBody)
	}

	return b.String()
}
