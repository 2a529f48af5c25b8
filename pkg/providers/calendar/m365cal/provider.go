// Package m365cal adapts Microsoft Graph calendar endpoints to the
// provider contract. Pagination follows Graph's @odata.nextLink, which
// is a complete URL and is carried as the cursor verbatim.
package m365cal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/providers"
)

const (
	defaultBaseURL  = "https://graph.microsoft.com/v1.0"
	defaultTokenURL = "https://login.microsoftonline.com/common/oauth2/v2.0/token"
	pageSize        = 50
	graphTimeLayout = "2006-01-02T15:04:05.9999999"
)

var ErrConfigIncomplete = errors.New("m365 calendar config requires access token and refresh token")

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
		logger:   logger.With("provider", models.ProviderM365Calendar),
	}, nil
}

func Factory(config *models.ProviderConfig, logger *slog.Logger) (providers.Provider, error) {
	return New(config, logger)
}

func (p *Provider) Connect(ctx context.Context) error {
	var me struct {
		UserPrincipalName string `json:"userPrincipalName"`
	}

	if err := providers.DoJSON(ctx, p.client, http.MethodGet, p.BaseURL+"/me", p.authorize, nil, &me); err != nil {
		return err
	}

	p.logger.Debug("Connected to Microsoft 365 calendar", "account", me.UserPrincipalName)

	return nil
}

func (p *Provider) Disconnect(_ context.Context) error {
	p.client.CloseIdleConnections()

	return nil
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type graphAttendee struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
	Status       struct {
		Response string `json:"response"`
	} `json:"status"`
}

type graphEvent struct {
	ID          string `json:"id,omitempty"`
	Subject     string `json:"subject,omitempty"`
	BodyPreview string `json:"bodyPreview,omitempty"`
	Body        *struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body,omitempty"`
	Location *struct {
		DisplayName string `json:"displayName"`
	} `json:"location,omitempty"`
	Start       graphDateTime `json:"start"`
	End         graphDateTime `json:"end"`
	IsAllDay    bool          `json:"isAllDay"`
	IsCancelled bool          `json:"isCancelled"`
	ShowAs      string        `json:"showAs,omitempty"`
	Organizer   *struct {
		EmailAddress graphEmailAddress `json:"emailAddress"`
	} `json:"organizer,omitempty"`
	Attendees  []graphAttendee `json:"attendees,omitempty"`
	Recurrence map[string]any  `json:"recurrence,omitempty"`
}

type graphEventPage struct {
	Value    []graphEvent `json:"value"`
	NextLink string       `json:"@odata.nextLink,omitempty"`
}

func (p *Provider) eventsURL() string {
	if p.config.CalendarID != "" {
		return fmt.Sprintf("%s/me/calendars/%s/events", p.BaseURL, url.PathEscape(p.config.CalendarID))
	}

	return p.BaseURL + "/me/calendar/events"
}

func (p *Provider) SyncEvents(ctx context.Context, query providers.CalendarQuery) (*providers.CalendarSyncResult, error) {
	endpoint := query.Cursor
	if endpoint == "" {
		if !query.Start.IsZero() && !query.End.IsZero() {
			// Graph restricts by time through calendarView, not the
			// events collection.
			endpoint = fmt.Sprintf("%s/me/calendarView?startDateTime=%s&endDateTime=%s&$top=%d",
				p.BaseURL,
				url.QueryEscape(query.Start.UTC().Format(time.RFC3339)),
				url.QueryEscape(query.End.UTC().Format(time.RFC3339)),
				pageSize)
		} else {
			endpoint = fmt.Sprintf("%s?$top=%d", p.eventsURL(), pageSize)
		}
	}

	var page graphEventPage

	if err := providers.DoJSON(ctx, p.client, http.MethodGet, endpoint, p.authorize, nil, &page); err != nil {
		return nil, err
	}

	events := make([]models.CalendarEvent, 0, len(page.Value))
	for _, item := range page.Value {
		events = append(events, p.normalize(item))
	}

	return &providers.CalendarSyncResult{
		Events:     events,
		NextCursor: page.NextLink,
		HasMore:    page.NextLink != "",
	}, nil
}

func (p *Provider) CreateEvent(ctx context.Context, event models.CalendarEvent) (*models.CalendarEvent, error) {
	var created graphEvent

	if err := providers.DoJSON(ctx, p.client, http.MethodPost, p.eventsURL(), p.authorize, denormalize(event), &created); err != nil {
		return nil, err
	}

	normalized := p.normalize(created)

	return &normalized, nil
}

func (p *Provider) UpdateEvent(ctx context.Context, eventID string, event models.CalendarEvent) (*models.CalendarEvent, error) {
	endpoint := fmt.Sprintf("%s/me/events/%s", p.BaseURL, url.PathEscape(eventID))

	var updated graphEvent

	if err := providers.DoJSON(ctx, p.client, http.MethodPatch, endpoint, p.authorize, denormalize(event), &updated); err != nil {
		return nil, err
	}

	normalized := p.normalize(updated)

	return &normalized, nil
}

func (p *Provider) DeleteEvent(ctx context.Context, eventID string) error {
	endpoint := fmt.Sprintf("%s/me/events/%s", p.BaseURL, url.PathEscape(eventID))

	return providers.DoJSON(ctx, p.client, http.MethodDelete, endpoint, p.authorize, nil, nil)
}

// RefreshToken exchanges the refresh token at the Microsoft identity
// platform. Unlike Google, the platform rotates the refresh token.
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

func (p *Provider) normalize(item graphEvent) models.CalendarEvent {
	event := models.CalendarEvent{
		ID:         item.ID,
		Title:      item.Subject,
		AllDay:     item.IsAllDay,
		CalendarID: p.config.CalendarID,
	}

	if item.Body != nil && item.Body.Content != "" {
		event.Description = item.Body.Content
	} else {
		event.Description = item.BodyPreview
	}

	if item.Location != nil {
		event.Location = item.Location.DisplayName
	}

	switch {
	case item.IsCancelled:
		event.Status = models.EventStatusCancelled
	case item.ShowAs == "tentative":
		event.Status = models.EventStatusTentative
	default:
		event.Status = models.EventStatusConfirmed
	}

	event.StartsAt = parseGraphTime(item.Start)
	event.EndsAt = parseGraphTime(item.End)

	if item.Organizer != nil {
		event.Organizer = item.Organizer.EmailAddress.Address
	}

	for _, attendee := range item.Attendees {
		event.Attendees = append(event.Attendees, models.Attendee{
			Email:    attendee.EmailAddress.Address,
			Name:     attendee.EmailAddress.Name,
			Response: normalizeResponse(attendee.Status.Response),
		})
	}

	return event
}

func parseGraphTime(t graphDateTime) time.Time {
	raw := strings.TrimSuffix(t.DateTime, "Z")

	parsed, err := time.Parse(graphTimeLayout, raw)
	if err != nil {
		parsed, _ = time.Parse(time.RFC3339, t.DateTime)
	}

	if t.TimeZone != "" && t.TimeZone != "UTC" {
		if loc, err := time.LoadLocation(t.TimeZone); err == nil {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(),
				parsed.Hour(), parsed.Minute(), parsed.Second(), parsed.Nanosecond(), loc)
		}
	}

	return parsed.UTC()
}

func normalizeResponse(status string) models.AttendeeResponse {
	switch status {
	case "accepted", "organizer":
		return models.AttendeeAccepted
	case "declined":
		return models.AttendeeDeclined
	case "tentativelyAccepted":
		return models.AttendeeTentative
	default:
		return models.AttendeeNeedsAction
	}
}

func denormalize(event models.CalendarEvent) map[string]any {
	payload := map[string]any{
		"subject": event.Title,
		"start": map[string]string{
			"dateTime": event.StartsAt.UTC().Format(graphTimeLayout),
			"timeZone": "UTC",
		},
		"end": map[string]string{
			"dateTime": event.EndsAt.UTC().Format(graphTimeLayout),
			"timeZone": "UTC",
		},
		"isAllDay": event.AllDay,
	}

	if event.Description != "" {
		payload["body"] = map[string]string{
			"contentType": "text",
			"content":     event.Description,
		}
	}

	if event.Location != "" {
		payload["location"] = map[string]string{"displayName": event.Location}
	}

	if len(event.Attendees) > 0 {
		attendees := make([]map[string]any, 0, len(event.Attendees))
		for _, attendee := range event.Attendees {
			attendees = append(attendees, map[string]any{
				"emailAddress": map[string]string{
					"address": attendee.Email,
					"name":    attendee.Name,
				},
				"type": "required",
			})
		}

		payload["attendees"] = attendees
	}

	return payload
}
