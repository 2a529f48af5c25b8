package cmd

import (
	"log/slog"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/providers"
	"github.com/helixcrm/helix/pkg/providers/calendar/caldav"
	"github.com/helixcrm/helix/pkg/providers/calendar/googlecal"
	"github.com/helixcrm/helix/pkg/providers/calendar/m365cal"
	"github.com/helixcrm/helix/pkg/providers/email/gmailmail"
	"github.com/helixcrm/helix/pkg/providers/email/imapmail"
	"github.com/helixcrm/helix/pkg/providers/email/m365mail"
)

// NewGateway builds the provider gateway with every adapter kind
// registered and the configured accounts loaded.
func NewGateway(logger *slog.Logger, configs []models.ProviderConfig) (*providers.Gateway, error) {
	gateway := providers.NewGateway(logger)

	gateway.RegisterFactory(models.ProviderGoogleCalendar, googlecal.Factory)
	gateway.RegisterFactory(models.ProviderM365Calendar, m365cal.Factory)
	gateway.RegisterFactory(models.ProviderCalDAV, caldav.Factory)
	gateway.RegisterFactory(models.ProviderGmail, gmailmail.Factory)
	gateway.RegisterFactory(models.ProviderM365Mail, m365mail.Factory)
	gateway.RegisterFactory(models.ProviderIMAP, imapmail.Factory)

	for i := range configs {
		if err := gateway.RegisterConfig(&configs[i]); err != nil {
			return nil, err
		}
	}

	return gateway, nil
}
