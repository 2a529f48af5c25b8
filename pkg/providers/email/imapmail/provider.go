// Package imapmail adapts a self-hosted IMAP/SMTP HTTP bridge to the
// provider contract. Auth is HTTP basic against the mailbox account, so
// there is no token refresh. The cursor is the highest IMAP UID already
// seen, printed as a decimal string; UIDs only grow within a mailbox,
// which makes them a stable resume point.
package imapmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/providers"
)

const (
	pageSize       = 50
	defaultMailbox = "INBOX"
)

var ErrConfigIncomplete = errors.New("imap config requires imap host, smtp host, username and password")

type Provider struct {
	// IMAPBaseURL and SMTPBaseURL point at the bridge; tests override
	// them with a local server.
	IMAPBaseURL string
	SMTPBaseURL string

	config *models.ProviderConfig
	client *http.Client
	logger *slog.Logger
}

func New(config *models.ProviderConfig, logger *slog.Logger) (*Provider, error) {
	if config.IMAPHost == "" || config.SMTPHost == "" || config.Username == "" || config.Password == "" {
		return nil, ErrConfigIncomplete
	}

	imapBase := config.IMAPHost
	if config.IMAPPort != 0 {
		imapBase = fmt.Sprintf("%s:%d", config.IMAPHost, config.IMAPPort)
	}

	smtpBase := config.SMTPHost
	if config.SMTPPort != 0 {
		smtpBase = fmt.Sprintf("%s:%d", config.SMTPHost, config.SMTPPort)
	}

	return &Provider{
		IMAPBaseURL: "https://" + imapBase,
		SMTPBaseURL: "https://" + smtpBase,
		config:      config,
		client:      providers.NewHTTPClient(),
		logger:      logger.With("provider", models.ProviderIMAP),
	}, nil
}

func Factory(config *models.ProviderConfig, logger *slog.Logger) (providers.Provider, error) {
	return New(config, logger)
}

func (p *Provider) mailboxURL() string {
	return fmt.Sprintf("%s/mailboxes/%s", p.IMAPBaseURL, url.PathEscape(defaultMailbox))
}

func (p *Provider) Connect(ctx context.Context) error {
	var status struct {
		Messages    int `json:"messages"`
		UIDValidity int `json:"uid_validity"`
	}

	if err := providers.DoJSON(ctx, p.client, http.MethodGet, p.mailboxURL(), p.authorize, nil, &status); err != nil {
		return err
	}

	p.logger.Debug("Connected to IMAP bridge", "messages", status.Messages)

	return nil
}

func (p *Provider) Disconnect(_ context.Context) error {
	p.client.CloseIdleConnections()

	return nil
}

type wireMessage struct {
	UID       int64    `json:"uid"`
	MessageID string   `json:"message_id"`
	InReplyTo string   `json:"in_reply_to,omitempty"`
	From      string   `json:"from"`
	To        []string `json:"to,omitempty"`
	Cc        []string `json:"cc,omitempty"`
	Subject   string   `json:"subject,omitempty"`
	TextBody  string   `json:"text_body,omitempty"`
	HTMLBody  string   `json:"html_body,omitempty"`
	Flags     []string `json:"flags,omitempty"`
	Date      string   `json:"date"`
}

type messagePage struct {
	Messages []wireMessage `json:"messages"`
	NextUID  int64         `json:"next_uid"`
	HasMore  bool          `json:"has_more"`
}

func (p *Provider) SyncMessages(ctx context.Context, cursor string) (*providers.EmailSyncResult, error) {
	sinceUID := int64(0)

	if cursor != "" {
		parsed, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid imap cursor '%s'", cursor)
		}

		sinceUID = parsed
	}

	endpoint := fmt.Sprintf("%s/messages?since_uid=%d&limit=%d", p.mailboxURL(), sinceUID, pageSize)

	var page messagePage

	if err := providers.DoJSON(ctx, p.client, http.MethodGet, endpoint, p.authorize, nil, &page); err != nil {
		return nil, err
	}

	messages := make([]models.EmailMessage, 0, len(page.Messages))
	for _, item := range page.Messages {
		messages = append(messages, normalize(item))
	}

	result := &providers.EmailSyncResult{
		Messages: messages,
		HasMore:  page.HasMore,
	}
	if page.HasMore {
		result.NextCursor = strconv.FormatInt(page.NextUID, 10)
	}

	return result, nil
}

func (p *Provider) SendEmail(ctx context.Context, email models.OutgoingEmail) (string, error) {
	var sent struct {
		MessageID string `json:"message_id"`
	}

	if err := providers.DoJSON(ctx, p.client, http.MethodPost, p.SMTPBaseURL+"/send", p.authorize, email, &sent); err != nil {
		return "", err
	}

	return sent.MessageID, nil
}

func (p *Provider) MarkRead(ctx context.Context, messageID string, read bool) error {
	endpoint := fmt.Sprintf("%s/messages/%s/flags", p.mailboxURL(), url.PathEscape(messageID))

	payload := map[string]any{"flag": `\Seen`, "set": read}

	return providers.DoJSON(ctx, p.client, http.MethodPut, endpoint, p.authorize, payload, nil)
}

func (p *Provider) authorize(req *http.Request) {
	req.SetBasicAuth(p.config.Username, p.config.Password)
}

func normalize(item wireMessage) models.EmailMessage {
	message := models.EmailMessage{
		ID:        strconv.FormatInt(item.UID, 10),
		ThreadID:  item.MessageID,
		InReplyTo: item.InReplyTo,
		From:      item.From,
		To:        item.To,
		Cc:        item.Cc,
		Subject:   item.Subject,
		TextBody:  item.TextBody,
		HTMLBody:  item.HTMLBody,
	}

	for _, flag := range item.Flags {
		switch flag {
		case `\Seen`:
			message.Read = true
		case `\Flagged`:
			message.Starred = true
		}
	}

	if date, err := time.Parse(time.RFC3339, item.Date); err == nil {
		message.SentAt = date
		message.ReceivedAt = &date
	}

	return message
}
