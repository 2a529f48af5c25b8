// Package m365mail adapts Microsoft Graph mail endpoints to the
// provider contract. The cursor is Graph's @odata.nextLink URL.
package m365mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/providers"
)

const (
	defaultBaseURL  = "https://graph.microsoft.com/v1.0"
	defaultTokenURL = "https://login.microsoftonline.com/common/oauth2/v2.0/token"
	pageSize        = 50
)

var ErrConfigIncomplete = errors.New("m365 mail config requires access token and refresh token")

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
		logger:   logger.With("provider", models.ProviderM365Mail),
	}, nil
}

func Factory(config *models.ProviderConfig, logger *slog.Logger) (providers.Provider, error) {
	return New(config, logger)
}

func (p *Provider) Connect(ctx context.Context) error {
	var me struct {
		Mail string `json:"mail"`
	}

	if err := providers.DoJSON(ctx, p.client, http.MethodGet, p.BaseURL+"/me", p.authorize, nil, &me); err != nil {
		return err
	}

	p.logger.Debug("Connected to Microsoft 365 mail", "account", me.Mail)

	return nil
}

func (p *Provider) Disconnect(_ context.Context) error {
	p.client.CloseIdleConnections()

	return nil
}

type graphRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
		Name    string `json:"name,omitempty"`
	} `json:"emailAddress"`
}

type graphMessage struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId,omitempty"`
	Subject        string `json:"subject,omitempty"`
	BodyPreview    string `json:"bodyPreview,omitempty"`
	Body           *struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body,omitempty"`
	From         *graphRecipient  `json:"from,omitempty"`
	ToRecipients []graphRecipient `json:"toRecipients,omitempty"`
	CcRecipients []graphRecipient `json:"ccRecipients,omitempty"`
	IsRead       bool             `json:"isRead"`
	Categories   []string         `json:"categories,omitempty"`
	Flag         *struct {
		FlagStatus string `json:"flagStatus"`
	} `json:"flag,omitempty"`
	SentDateTime     string `json:"sentDateTime,omitempty"`
	ReceivedDateTime string `json:"receivedDateTime,omitempty"`
}

type graphMessagePage struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink,omitempty"`
}

func (p *Provider) SyncMessages(ctx context.Context, cursor string) (*providers.EmailSyncResult, error) {
	endpoint := cursor
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/me/messages?$top=%d", p.BaseURL, pageSize)
	}

	var page graphMessagePage

	if err := providers.DoJSON(ctx, p.client, http.MethodGet, endpoint, p.authorize, nil, &page); err != nil {
		return nil, err
	}

	messages := make([]models.EmailMessage, 0, len(page.Value))
	for _, item := range page.Value {
		messages = append(messages, normalize(item))
	}

	return &providers.EmailSyncResult{
		Messages:   messages,
		NextCursor: page.NextLink,
		HasMore:    page.NextLink != "",
	}, nil
}

func (p *Provider) SendEmail(ctx context.Context, email models.OutgoingEmail) (string, error) {
	message := map[string]any{
		"subject":      email.Subject,
		"toRecipients": recipients(email.To),
	}

	if len(email.Cc) > 0 {
		message["ccRecipients"] = recipients(email.Cc)
	}

	if len(email.Bcc) > 0 {
		message["bccRecipients"] = recipients(email.Bcc)
	}

	if email.HTMLBody != "" {
		message["body"] = map[string]string{"contentType": "html", "content": email.HTMLBody}
	} else {
		message["body"] = map[string]string{"contentType": "text", "content": email.TextBody}
	}

	payload := map[string]any{
		"message":         message,
		"saveToSentItems": true,
	}

	// Graph's sendMail answers 202 with an empty body, so there is no
	// upstream message id to return.
	if err := providers.DoJSON(ctx, p.client, http.MethodPost, p.BaseURL+"/me/sendMail", p.authorize, payload, nil); err != nil {
		return "", err
	}

	return "", nil
}

func (p *Provider) MarkRead(ctx context.Context, messageID string, read bool) error {
	endpoint := fmt.Sprintf("%s/me/messages/%s", p.BaseURL, url.PathEscape(messageID))

	return providers.DoJSON(ctx, p.client, http.MethodPatch, endpoint, p.authorize, map[string]bool{"isRead": read}, nil)
}

func (p *Provider) RefreshToken(ctx context.Context) (*models.RefreshedCredentials, error) {
	payload := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": p.config.RefreshToken,
	}
	if clientID := os.Getenv("HELIX_M365_CLIENT_ID"); clientID != "" {
		payload["client_id"] = clientID
		payload["client_secret"] = os.Getenv("HELIX_M365_CLIENT_SECRET")
	}

	var token struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}

	if err := providers.DoJSON(ctx, p.client, http.MethodPost, p.TokenURL, nil, payload, &token); err != nil {
		return nil, err
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access token")
	}

	p.config.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		p.config.RefreshToken = token.RefreshToken
	}

	p.logger.Info("Refreshed Microsoft access token", "expires_in", token.ExpiresIn)

	return &models.RefreshedCredentials{
		ProviderID:   p.config.ID,
		AccessToken:  p.config.AccessToken,
		RefreshToken: p.config.RefreshToken,
	}, nil
}

func (p *Provider) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.config.AccessToken)
}

func normalize(item graphMessage) models.EmailMessage {
	message := models.EmailMessage{
		ID:       item.ID,
		ThreadID: item.ConversationID,
		Subject:  item.Subject,
		Labels:   item.Categories,
		Read:     item.IsRead,
	}

	if item.Body != nil {
		if item.Body.ContentType == "html" {
			message.HTMLBody = item.Body.Content
			message.TextBody = item.BodyPreview
		} else {
			message.TextBody = item.Body.Content
		}
	} else {
		message.TextBody = item.BodyPreview
	}

	if item.From != nil {
		message.From = item.From.EmailAddress.Address
	}

	for _, recipient := range item.ToRecipients {
		message.To = append(message.To, recipient.EmailAddress.Address)
	}

	for _, recipient := range item.CcRecipients {
		message.Cc = append(message.Cc, recipient.EmailAddress.Address)
	}

	if item.Flag != nil && item.Flag.FlagStatus == "flagged" {
		message.Starred = true
	}

	if sent, err := time.Parse(time.RFC3339, item.SentDateTime); err == nil {
		message.SentAt = sent
	}

	if received, err := time.Parse(time.RFC3339, item.ReceivedDateTime); err == nil {
		message.ReceivedAt = &received
	}

	return message
}

func recipients(addresses []string) []map[string]any {
	out := make([]map[string]any, 0, len(addresses))
	for _, address := range addresses {
		out = append(out, map[string]any{
			"emailAddress": map[string]string{"address": address},
		})
	}

	return out
}
