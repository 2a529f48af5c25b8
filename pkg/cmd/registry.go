// Package cmd provides common initialization for the command-line
// binaries.
package cmd

import (
	"log/slog"

	"github.com/helixcrm/helix/pkg/actions/conditional"
	"github.com/helixcrm/helix/pkg/actions/delay"
	"github.com/helixcrm/helix/pkg/actions/httprequest"
	"github.com/helixcrm/helix/pkg/actions/note"
	"github.com/helixcrm/helix/pkg/actions/record"
	"github.com/helixcrm/helix/pkg/actions/sendemail"
	"github.com/helixcrm/helix/pkg/actions/tag"
	"github.com/helixcrm/helix/pkg/actions/task"
	"github.com/helixcrm/helix/pkg/eventbus"
	"github.com/helixcrm/helix/pkg/persistence"
	"github.com/helixcrm/helix/pkg/registry"
)

// NewRegistry builds the action registry with every native action
// registered. sender delivers send_email actions, usually the provider
// gateway.
func NewRegistry(
	logger *slog.Logger,
	records persistence.RecordRepository,
	publisher eventbus.EventPublisher,
	sender sendemail.Sender,
) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(record.NewCreateFactory(records, publisher))
	reg.RegisterAction(record.NewUpdateFactory(records, publisher))
	reg.RegisterAction(record.NewDeleteFactory(records, publisher))
	reg.RegisterAction(tag.NewAddFactory(records))
	reg.RegisterAction(tag.NewRemoveFactory(records))
	reg.RegisterAction(task.NewFactory(records))
	reg.RegisterAction(note.NewFactory(records))
	reg.RegisterAction(sendemail.NewFactory(sender))
	reg.RegisterAction(httprequest.NewFactory())
	reg.RegisterAction(delay.NewFactory())
	reg.RegisterAction(conditional.NewFactory())

	return reg
}
