// Package providers defines the contracts for external calendar and
// email providers and the gateway that fronts them.
package providers

import (
	"context"
	"time"

	"github.com/helixcrm/helix/pkg/models"
)

// Provider is the capability every adapter shares: an authenticated
// connection check and a teardown.
type Provider interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// TokenRefresher is implemented by adapters whose auth scheme supports
// refreshing an expired access token. Basic-auth adapters do not
// implement it.
type TokenRefresher interface {
	RefreshToken(ctx context.Context) (*models.RefreshedCredentials, error)
}

// CalendarQuery bounds one sync page. Cursor resumes a previous page;
// Start and End restrict the window, and a zero time leaves that side
// open.
type CalendarQuery struct {
	Cursor string
	Start  time.Time
	End    time.Time
}

// CalendarProvider syncs and mutates events on one external calendar.
type CalendarProvider interface {
	Provider

	SyncEvents(ctx context.Context, query CalendarQuery) (*CalendarSyncResult, error)
	CreateEvent(ctx context.Context, event models.CalendarEvent) (*models.CalendarEvent, error)
	UpdateEvent(ctx context.Context, eventID string, event models.CalendarEvent) (*models.CalendarEvent, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// EmailProvider syncs one external mailbox and sends outgoing mail.
type EmailProvider interface {
	Provider

	SyncMessages(ctx context.Context, cursor string) (*EmailSyncResult, error)
	SendEmail(ctx context.Context, email models.OutgoingEmail) (string, error)
	MarkRead(ctx context.Context, messageID string, read bool) error
}

// CalendarSyncResult is one page of normalized events. Callers pass
// NextCursor back verbatim; an empty cursor with HasMore false ends the
// pagination.
type CalendarSyncResult struct {
	Events     []models.CalendarEvent `json:"events"`
	NextCursor string                 `json:"next_cursor,omitempty"`
	HasMore    bool                   `json:"has_more"`
}

// EmailSyncResult is one page of normalized messages.
type EmailSyncResult struct {
	Messages   []models.EmailMessage `json:"messages"`
	NextCursor string                `json:"next_cursor,omitempty"`
	HasMore    bool                  `json:"has_more"`
}
