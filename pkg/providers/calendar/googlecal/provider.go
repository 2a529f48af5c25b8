// Package googlecal adapts the Google Calendar v3 API to the provider
// contract. Pagination uses Google's opaque nextPageToken.
package googlecal

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
	defaultBaseURL  = "https://www.googleapis.com/calendar/v3"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	pageSize        = 100
)

// ErrConfigIncomplete is returned when the account configuration lacks
// the OAuth tokens or calendar id the adapter needs.
var ErrConfigIncomplete = errors.New("google calendar config requires access token, refresh token and calendar id")

type Provider struct {
	// BaseURL and TokenURL exist so tests can point the adapter at a
	// local server.
	BaseURL  string
	TokenURL string

	config *models.ProviderConfig
	client *http.Client
	logger *slog.Logger
}

func New(config *models.ProviderConfig, logger *slog.Logger) (*Provider, error) {
	if config.AccessToken == "" || config.RefreshToken == "" || config.CalendarID == "" {
		return nil, ErrConfigIncomplete
	}

	return &Provider{
		BaseURL:  defaultBaseURL,
		TokenURL: defaultTokenURL,
		config:   config,
		client:   providers.NewHTTPClient(),
		logger:   logger.With("provider", models.ProviderGoogleCalendar),
	}, nil
}

// Factory adapts New to the gateway's factory signature.
func Factory(config *models.ProviderConfig, logger *slog.Logger) (providers.Provider, error) {
	return New(config, logger)
}

func (p *Provider) Connect(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/calendars/%s", p.BaseURL, url.PathEscape(p.config.CalendarID))

	var meta struct {
		ID string `json:"id"`
	}

	if err := providers.DoJSON(ctx, p.client, http.MethodGet, endpoint, p.authorize, nil, &meta); err != nil {
		return err
	}

	p.logger.Debug("Connected to Google calendar", "calendar_id", meta.ID)

	return nil
}

func (p *Provider) Disconnect(_ context.Context) error {
	p.client.CloseIdleConnections()

	return nil
}

// wire shapes

type eventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type wireAttendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"displayName,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"`
	Organizer      bool   `json:"organizer,omitempty"`
}

type wireEvent struct {
	ID          string         `json:"id,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"location,omitempty"`
	Status      string         `json:"status,omitempty"`
	Start       eventTime      `json:"start"`
	End         eventTime      `json:"end"`
	Organizer   *wireAttendee  `json:"organizer,omitempty"`
	Attendees   []wireAttendee `json:"attendees,omitempty"`
	Recurrence  []string       `json:"recurrence,omitempty"`
}

type eventList struct {
	Items         []wireEvent `json:"items"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
}

func (p *Provider) SyncEvents(ctx context.Context, query providers.CalendarQuery) (*providers.CalendarSyncResult, error) {
	endpoint := fmt.Sprintf("%s/calendars/%s/events?maxResults=%d&singleEvents=false",
		p.BaseURL, url.PathEscape(p.config.CalendarID), pageSize)
	if !query.Start.IsZero() {
		endpoint += "&timeMin=" + url.QueryEscape(query.Start.Format(time.RFC3339))
	}
	if !query.End.IsZero() {
		endpoint += "&timeMax=" + url.QueryEscape(query.End.Format(time.RFC3339))
	}
	if query.Cursor != "" {
		endpoint += "&pageToken=" + url.QueryEscape(query.Cursor)
	}

	var page eventList

	if err := providers.DoJSON(ctx, p.client, http.MethodGet, endpoint, p.authorize, nil, &page); err != nil {
		return nil, err
	}

	events := make([]models.CalendarEvent, 0, len(page.Items))
	for _, item := range page.Items {
		events = append(events, p.normalize(item))
	}

	return &providers.CalendarSyncResult{
		Events:     events,
		NextCursor: page.NextPageToken,
		HasMore:    page.NextPageToken != "",
	}, nil
}

func (p *Provider) CreateEvent(ctx context.Context, event models.CalendarEvent) (*models.CalendarEvent, error) {
	endpoint := fmt.Sprintf("%s/calendars/%s/events", p.BaseURL, url.PathEscape(p.config.CalendarID))

	var created wireEvent

	if err := providers.DoJSON(ctx, p.client, http.MethodPost, endpoint, p.authorize, denormalize(event), &created); err != nil {
		return nil, err
	}

	normalized := p.normalize(created)

	return &normalized, nil
}

func (p *Provider) UpdateEvent(ctx context.Context, eventID string, event models.CalendarEvent) (*models.CalendarEvent, error) {
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s",
		p.BaseURL, url.PathEscape(p.config.CalendarID), url.PathEscape(eventID))

	var updated wireEvent

	if err := providers.DoJSON(ctx, p.client, http.MethodPut, endpoint, p.authorize, denormalize(event), &updated); err != nil {
		return nil, err
	}

	normalized := p.normalize(updated)

	return &normalized, nil
}

func (p *Provider) DeleteEvent(ctx context.Context, eventID string) error {
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s",
		p.BaseURL, url.PathEscape(p.config.CalendarID), url.PathEscape(eventID))

	return providers.DoJSON(ctx, p.client, http.MethodDelete, endpoint, p.authorize, nil, nil)
}

// RefreshToken exchanges the refresh token for a new access token.
// Google does not rotate refresh tokens on this grant.
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
	p.logger.Info("Refreshed Google access token", "expires_in", token.ExpiresIn)

	return &models.RefreshedCredentials{
		ProviderID:   p.config.ID,
		AccessToken:  token.AccessToken,
		RefreshToken: p.config.RefreshToken,
	}, nil
}

func (p *Provider) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.config.AccessToken)
}

func (p *Provider) normalize(item wireEvent) models.CalendarEvent {
	event := models.CalendarEvent{
		ID:          item.ID,
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
		CalendarID:  p.config.CalendarID,
	}

	switch item.Status {
	case "tentative":
		event.Status = models.EventStatusTentative
	case "cancelled":
		event.Status = models.EventStatusCancelled
	default:
		event.Status = models.EventStatusConfirmed
	}

	event.StartsAt, event.AllDay = parseEventTime(item.Start)
	event.EndsAt, _ = parseEventTime(item.End)

	if item.Organizer != nil {
		event.Organizer = item.Organizer.Email
	}

	for _, attendee := range item.Attendees {
		event.Attendees = append(event.Attendees, models.Attendee{
			Email:    attendee.Email,
			Name:     attendee.DisplayName,
			Response: normalizeResponse(attendee.ResponseStatus),
		})
	}

	if len(item.Recurrence) > 0 {
		event.Recurrence = item.Recurrence[0]
	}

	return event
}

func parseEventTime(t eventTime) (time.Time, bool) {
	if t.Date != "" {
		parsed, _ := time.Parse("2006-01-02", t.Date)

		return parsed, true
	}

	parsed, _ := time.Parse(time.RFC3339, t.DateTime)

	return parsed, false
}

func normalizeResponse(status string) models.AttendeeResponse {
	switch status {
	case "accepted":
		return models.AttendeeAccepted
	case "declined":
		return models.AttendeeDeclined
	case "tentative":
		return models.AttendeeTentative
	default:
		return models.AttendeeNeedsAction
	}
}

func denormalize(event models.CalendarEvent) wireEvent {
	wire := wireEvent{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
	}

	if event.AllDay {
		wire.Start = eventTime{Date: event.StartsAt.Format("2006-01-02")}
		wire.End = eventTime{Date: event.EndsAt.Format("2006-01-02")}
	} else {
		wire.Start = eventTime{DateTime: event.StartsAt.Format(time.RFC3339)}
		wire.End = eventTime{DateTime: event.EndsAt.Format(time.RFC3339)}
	}

	switch event.Status {
	case models.EventStatusTentative:
		wire.Status = "tentative"
	case models.EventStatusCancelled:
		wire.Status = "cancelled"
	case models.EventStatusConfirmed:
		wire.Status = "confirmed"
	}

	for _, attendee := range event.Attendees {
		wire.Attendees = append(wire.Attendees, wireAttendee{
			Email:       attendee.Email,
			DisplayName: attendee.Name,
		})
	}

	if event.Recurrence != "" {
		wire.Recurrence = []string{event.Recurrence}
	}

	return wire
}
