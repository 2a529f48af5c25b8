package models

import "time"

// EventStatus is the canonical scheduling state of a calendar event.
type EventStatus string

const (
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusTentative EventStatus = "tentative"
	EventStatusCancelled EventStatus = "cancelled"
)

// AttendeeResponse is the canonical reply state of one attendee.
type AttendeeResponse string

const (
	AttendeeAccepted    AttendeeResponse = "accepted"
	AttendeeDeclined    AttendeeResponse = "declined"
	AttendeeTentative   AttendeeResponse = "tentative"
	AttendeeNeedsAction AttendeeResponse = "needs_action"
)

// Attendee is one participant of a calendar event.
type Attendee struct {
	Email    string           `json:"email"`
	Name     string           `json:"name,omitempty"`
	Response AttendeeResponse `json:"response"`
}

// CalendarEvent is the provider-agnostic representation of a scheduled
// event. Adapters produce fully populated events during sync; callers
// construct partial events only as create/update payloads.
type CalendarEvent struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	StartsAt    time.Time   `json:"starts_at"`
	EndsAt      time.Time   `json:"ends_at"`
	AllDay      bool        `json:"all_day"`
	Status      EventStatus `json:"status"`
	Organizer   string      `json:"organizer,omitempty"`
	Attendees   []Attendee  `json:"attendees,omitempty"`
	Recurrence  string      `json:"recurrence,omitempty"`
	CalendarID  string      `json:"calendar_id"`
}
