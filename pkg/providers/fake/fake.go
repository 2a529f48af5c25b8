// Package fake provides scripted in-memory providers for tests.
package fake

import (
	"context"
	"strconv"
	"sync"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/providers"
)

// Calendar is a scripted calendar provider. Pages are served in order;
// the cursor is the page index.
type Calendar struct {
	mu sync.Mutex

	Pages               [][]models.CalendarEvent
	FailuresLeft        int
	ConnectFailuresLeft int
	RefreshErr          error
	ConnectErr          error
	SyncCalls           int
	ConnectCalls        int
	RefreshCalls        int
	LastQuery           providers.CalendarQuery
	Created             []models.CalendarEvent
	Deleted             []string
}

func (c *Calendar) Connect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ConnectCalls++

	if c.ConnectFailuresLeft > 0 {
		c.ConnectFailuresLeft--

		return providers.ErrAuthFailed
	}

	return c.ConnectErr
}

func (c *Calendar) Disconnect(_ context.Context) error { return nil }

func (c *Calendar) SyncEvents(_ context.Context, query providers.CalendarQuery) (*providers.CalendarSyncResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SyncCalls++
	c.LastQuery = query

	if c.FailuresLeft > 0 {
		c.FailuresLeft--

		return nil, providers.ErrAuthFailed
	}

	page := 0
	if query.Cursor != "" {
		page, _ = strconv.Atoi(query.Cursor)
	}

	if page >= len(c.Pages) {
		return &providers.CalendarSyncResult{}, nil
	}

	result := &providers.CalendarSyncResult{
		Events:  c.Pages[page],
		HasMore: page+1 < len(c.Pages),
	}
	if result.HasMore {
		result.NextCursor = strconv.Itoa(page + 1)
	}

	return result, nil
}

func (c *Calendar) CreateEvent(_ context.Context, event models.CalendarEvent) (*models.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailuresLeft > 0 {
		c.FailuresLeft--

		return nil, providers.ErrAuthFailed
	}

	event.ID = "evt-" + strconv.Itoa(len(c.Created)+1)
	c.Created = append(c.Created, event)

	return &event, nil
}

func (c *Calendar) UpdateEvent(_ context.Context, eventID string, event models.CalendarEvent) (*models.CalendarEvent, error) {
	event.ID = eventID

	return &event, nil
}

func (c *Calendar) DeleteEvent(_ context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Deleted = append(c.Deleted, eventID)

	return nil
}

func (c *Calendar) RefreshToken(_ context.Context) (*models.RefreshedCredentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.RefreshCalls++

	if c.RefreshErr != nil {
		return nil, c.RefreshErr
	}

	return &models.RefreshedCredentials{
		AccessToken:  "refreshed-" + strconv.Itoa(c.RefreshCalls),
		RefreshToken: "rotate-" + strconv.Itoa(c.RefreshCalls),
	}, nil
}

// BasicCalendar wraps a Calendar while hiding its refresh capability,
// standing in for adapters authenticated with static credentials.
type BasicCalendar struct {
	Inner *Calendar
}

func (b *BasicCalendar) Connect(ctx context.Context) error    { return b.Inner.Connect(ctx) }
func (b *BasicCalendar) Disconnect(ctx context.Context) error { return b.Inner.Disconnect(ctx) }

func (b *BasicCalendar) SyncEvents(ctx context.Context, query providers.CalendarQuery) (*providers.CalendarSyncResult, error) {
	return b.Inner.SyncEvents(ctx, query)
}

func (b *BasicCalendar) CreateEvent(ctx context.Context, event models.CalendarEvent) (*models.CalendarEvent, error) {
	return b.Inner.CreateEvent(ctx, event)
}

func (b *BasicCalendar) UpdateEvent(ctx context.Context, eventID string, event models.CalendarEvent) (*models.CalendarEvent, error) {
	return b.Inner.UpdateEvent(ctx, eventID, event)
}

func (b *BasicCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	return b.Inner.DeleteEvent(ctx, eventID)
}

// Email is a scripted email provider.
type Email struct {
	mu sync.Mutex

	Pages        [][]models.EmailMessage
	FailuresLeft int
	RefreshErr   error
	SyncCalls    int
	RefreshCalls int
	Sent         []models.OutgoingEmail
	MarkedRead   []string
}

func (e *Email) Connect(_ context.Context) error { return nil }

func (e *Email) Disconnect(_ context.Context) error { return nil }

func (e *Email) SyncMessages(_ context.Context, cursor string) (*providers.EmailSyncResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.SyncCalls++

	if e.FailuresLeft > 0 {
		e.FailuresLeft--

		return nil, providers.ErrAuthFailed
	}

	page := 0
	if cursor != "" {
		page, _ = strconv.Atoi(cursor)
	}

	if page >= len(e.Pages) {
		return &providers.EmailSyncResult{}, nil
	}

	result := &providers.EmailSyncResult{
		Messages: e.Pages[page],
		HasMore:  page+1 < len(e.Pages),
	}
	if result.HasMore {
		result.NextCursor = strconv.Itoa(page + 1)
	}

	return result, nil
}

func (e *Email) SendEmail(_ context.Context, email models.OutgoingEmail) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.FailuresLeft > 0 {
		e.FailuresLeft--

		return "", providers.ErrAuthFailed
	}

	e.Sent = append(e.Sent, email)

	return "sent-" + strconv.Itoa(len(e.Sent)), nil
}

func (e *Email) MarkRead(_ context.Context, messageID string, _ bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.MarkedRead = append(e.MarkedRead, messageID)

	return nil
}

func (e *Email) RefreshToken(_ context.Context) (*models.RefreshedCredentials, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.RefreshCalls++

	if e.RefreshErr != nil {
		return nil, e.RefreshErr
	}

	return &models.RefreshedCredentials{
		AccessToken: "refreshed-" + strconv.Itoa(e.RefreshCalls),
	}, nil
}
