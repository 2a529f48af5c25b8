// Package caldav adapts a CalDAV HTTP gateway to the provider
// contract. Auth is HTTP basic, so the adapter has no token refresh;
// pagination is offset based and the cursor is the next offset printed
// as a decimal string.
package caldav

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

const pageSize = 50

var ErrConfigIncomplete = errors.New("caldav config requires host, username, password and calendar id")

type Provider struct {
	BaseURL string

	config *models.ProviderConfig
	client *http.Client
	logger *slog.Logger
}

func New(config *models.ProviderConfig, logger *slog.Logger) (*Provider, error) {
	if config.Host == "" || config.Username == "" || config.Password == "" || config.CalendarID == "" {
		return nil, ErrConfigIncomplete
	}

	base := config.Host
	if config.Port != 0 {
		base = fmt.Sprintf("%s:%d", config.Host, config.Port)
	}

	return &Provider{
		BaseURL: "https://" + base,
		config:  config,
		client:  providers.NewHTTPClient(),
		logger:  logger.With("provider", models.ProviderCalDAV),
	}, nil
}

func Factory(config *models.ProviderConfig, logger *slog.Logger) (providers.Provider, error) {
	return New(config, logger)
}

func (p *Provider) calendarURL() string {
	return fmt.Sprintf("%s/calendars/%s", p.BaseURL, url.PathEscape(p.config.CalendarID))
}

func (p *Provider) Connect(ctx context.Context) error {
	var meta struct {
		DisplayName string `json:"display_name"`
	}

	if err := providers.DoJSON(ctx, p.client, http.MethodGet, p.calendarURL(), p.authorize, nil, &meta); err != nil {
		return err
	}

	p.logger.Debug("Connected to CalDAV calendar", "display_name", meta.DisplayName)

	return nil
}

func (p *Provider) Disconnect(_ context.Context) error {
	p.client.CloseIdleConnections()

	return nil
}

type wireEvent struct {
	UID       string `json:"uid,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Desc      string `json:"description,omitempty"`
	Location  string `json:"location,omitempty"`
	DTStart   string `json:"dtstart"`
	DTEnd     string `json:"dtend"`
	AllDay    bool   `json:"all_day"`
	Status    string `json:"status,omitempty"`
	Organizer string `json:"organizer,omitempty"`
	RRule     string `json:"rrule,omitempty"`
	Attendees []struct {
		Email    string `json:"email"`
		Name     string `json:"name,omitempty"`
		PartStat string `json:"partstat,omitempty"`
	} `json:"attendees,omitempty"`
}

type eventPage struct {
	Events []wireEvent `json:"events"`
	Total  int         `json:"total"`
}

func (p *Provider) SyncEvents(ctx context.Context, query providers.CalendarQuery) (*providers.CalendarSyncResult, error) {
	offset := 0

	if query.Cursor != "" {
		parsed, err := strconv.Atoi(query.Cursor)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid caldav cursor '%s'", query.Cursor)
		}

		offset = parsed
	}

	endpoint := fmt.Sprintf("%s/events?offset=%d&limit=%d", p.calendarURL(), offset, pageSize)
	if !query.Start.IsZero() {
		endpoint += "&start=" + url.QueryEscape(query.Start.Format(time.RFC3339))
	}
	if !query.End.IsZero() {
		endpoint += "&end=" + url.QueryEscape(query.End.Format(time.RFC3339))
	}

	var page eventPage

	if err := providers.DoJSON(ctx, p.client, http.MethodGet, endpoint, p.authorize, nil, &page); err != nil {
		return nil, err
	}

	events := make([]models.CalendarEvent, 0, len(page.Events))
	for _, item := range page.Events {
		events = append(events, p.normalize(item))
	}

	next := offset + len(page.Events)
	hasMore := next < page.Total && len(page.Events) > 0

	result := &providers.CalendarSyncResult{
		Events:  events,
		HasMore: hasMore,
	}
	if hasMore {
		result.NextCursor = strconv.Itoa(next)
	}

	return result, nil
}

func (p *Provider) CreateEvent(ctx context.Context, event models.CalendarEvent) (*models.CalendarEvent, error) {
	var created wireEvent

	if err := providers.DoJSON(ctx, p.client, http.MethodPost, p.calendarURL()+"/events", p.authorize, denormalize(event), &created); err != nil {
		return nil, err
	}

	normalized := p.normalize(created)

	return &normalized, nil
}

func (p *Provider) UpdateEvent(ctx context.Context, eventID string, event models.CalendarEvent) (*models.CalendarEvent, error) {
	endpoint := fmt.Sprintf("%s/events/%s", p.calendarURL(), url.PathEscape(eventID))

	var updated wireEvent

	if err := providers.DoJSON(ctx, p.client, http.MethodPut, endpoint, p.authorize, denormalize(event), &updated); err != nil {
		return nil, err
	}

	normalized := p.normalize(updated)

	return &normalized, nil
}

func (p *Provider) DeleteEvent(ctx context.Context, eventID string) error {
	endpoint := fmt.Sprintf("%s/events/%s", p.calendarURL(), url.PathEscape(eventID))

	return providers.DoJSON(ctx, p.client, http.MethodDelete, endpoint, p.authorize, nil, nil)
}

func (p *Provider) authorize(req *http.Request) {
	req.SetBasicAuth(p.config.Username, p.config.Password)
}

func (p *Provider) normalize(item wireEvent) models.CalendarEvent {
	event := models.CalendarEvent{
		ID:          item.UID,
		Title:       item.Summary,
		Description: item.Desc,
		Location:    item.Location,
		AllDay:      item.AllDay,
		Organizer:   item.Organizer,
		Recurrence:  item.RRule,
		CalendarID:  p.config.CalendarID,
	}

	switch item.Status {
	case "TENTATIVE":
		event.Status = models.EventStatusTentative
	case "CANCELLED":
		event.Status = models.EventStatusCancelled
	default:
		event.Status = models.EventStatusConfirmed
	}

	event.StartsAt, _ = time.Parse(time.RFC3339, item.DTStart)
	event.EndsAt, _ = time.Parse(time.RFC3339, item.DTEnd)

	for _, attendee := range item.Attendees {
		event.Attendees = append(event.Attendees, models.Attendee{
			Email:    attendee.Email,
			Name:     attendee.Name,
			Response: normalizePartStat(attendee.PartStat),
		})
	}

	return event
}

func normalizePartStat(partstat string) models.AttendeeResponse {
	switch partstat {
	case "ACCEPTED":
		return models.AttendeeAccepted
	case "DECLINED":
		return models.AttendeeDeclined
	case "TENTATIVE":
		return models.AttendeeTentative
	default:
		return models.AttendeeNeedsAction
	}
}

func denormalize(event models.CalendarEvent) wireEvent {
	wire := wireEvent{
		UID:       event.ID,
		Summary:   event.Title,
		Desc:      event.Description,
		Location:  event.Location,
		DTStart:   event.StartsAt.UTC().Format(time.RFC3339),
		DTEnd:     event.EndsAt.UTC().Format(time.RFC3339),
		AllDay:    event.AllDay,
		Organizer: event.Organizer,
		RRule:     event.Recurrence,
	}

	switch event.Status {
	case models.EventStatusTentative:
		wire.Status = "TENTATIVE"
	case models.EventStatusCancelled:
		wire.Status = "CANCELLED"
	case models.EventStatusConfirmed:
		wire.Status = "CONFIRMED"
	}

	return wire
}
