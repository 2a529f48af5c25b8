package models

// ProviderKind tags one concrete external system integration.
type ProviderKind string

const (
	ProviderGoogleCalendar ProviderKind = "calendar.google"
	ProviderM365Calendar   ProviderKind = "calendar.m365"
	ProviderCalDAV         ProviderKind = "calendar.caldav"
	ProviderGmail          ProviderKind = "email.gmail"
	ProviderM365Mail       ProviderKind = "email.m365"
	ProviderIMAP           ProviderKind = "email.imap"
)

// IsCalendar reports whether the kind belongs to the calendar family.
func (k ProviderKind) IsCalendar() bool {
	switch k {
	case ProviderGoogleCalendar, ProviderM365Calendar, ProviderCalDAV:
		return true
	default:
		return false
	}
}

// IsEmail reports whether the kind belongs to the email family.
func (k ProviderKind) IsEmail() bool {
	switch k {
	case ProviderGmail, ProviderM365Mail, ProviderIMAP:
		return true
	default:
		return false
	}
}

// RefreshedCredentials carries tokens obtained during an automatic
// refresh so the host application can persist them. A refresh that the
// upstream answers without a new refresh token keeps the old one.
type RefreshedCredentials struct {
	ProviderID   string `json:"provider_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ProviderConfig is one connected external account. It is owned by the
// host application; the sync layer reads it and only reports refreshed
// tokens back, it never persists credentials itself.
type ProviderConfig struct {
	ID           string       `json:"id"                       yaml:"id"`
	Provider     ProviderKind `json:"provider"                 yaml:"provider" validate:"required"`
	AccessToken  string       `json:"access_token,omitempty"   yaml:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"  yaml:"refresh_token,omitempty"`
	Username     string       `json:"username,omitempty"       yaml:"username,omitempty"`
	Password     string       `json:"password,omitempty"       yaml:"password,omitempty"`
	CalendarID   string       `json:"calendar_id,omitempty"    yaml:"calendar_id,omitempty"`
	Host         string       `json:"host,omitempty"           yaml:"host,omitempty"`
	Port         int          `json:"port,omitempty"           yaml:"port,omitempty"`
	IMAPHost     string       `json:"imap_host,omitempty"      yaml:"imap_host,omitempty"`
	IMAPPort     int          `json:"imap_port,omitempty"      yaml:"imap_port,omitempty"`
	SMTPHost     string       `json:"smtp_host,omitempty"      yaml:"smtp_host,omitempty"`
	SMTPPort     int          `json:"smtp_port,omitempty"      yaml:"smtp_port,omitempty"`
}
