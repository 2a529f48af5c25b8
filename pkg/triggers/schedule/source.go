// Package schedule fires workflows on their cron expressions. One cron
// entry is registered per active scheduled workflow; the payload carries
// the workflow id so the dispatcher runs exactly that workflow.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/protocol"
	"github.com/helixcrm/helix/pkg/workflow"
)

type Source struct {
	repository *workflow.Repository
	logger     *slog.Logger

	mu       sync.Mutex
	cron     *cron.Cron
	entries  map[string]cron.EntryID
	callback protocol.SourceCallback
}

func NewSource(repository *workflow.Repository, logger *slog.Logger) *Source {
	return &Source{
		repository: repository,
		logger:     logger.With("module", "schedule_source"),
		entries:    make(map[string]cron.EntryID),
	}
}

func (s *Source) Validate() error {
	workflows, err := s.repository.FetchAll(context.Background())
	if err != nil {
		return err
	}

	for _, wf := range workflows {
		if wf.Trigger.Type != models.TriggerSchedule {
			continue
		}

		if _, err := cron.ParseStandard(cronSpec(wf.Trigger)); err != nil {
			return fmt.Errorf("workflow %s has an invalid cron expression: %w", wf.ID, err)
		}
	}

	return nil
}

func (s *Source) Start(ctx context.Context, callback protocol.SourceCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callback = callback
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if err := s.reloadLocked(ctx); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Schedule source started", "entries", len(s.entries))

	return nil
}

// Reload re-reads the workflow set and swaps the cron entries, so
// newly saved schedules take effect without a restart.
func (s *Source) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}

	return s.reloadLocked(ctx)
}

func (s *Source) reloadLocked(ctx context.Context) error {
	workflows, err := s.repository.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}

	for id, entry := range s.entries {
		s.cron.Remove(entry)
		delete(s.entries, id)
	}

	for _, wf := range workflows {
		if wf.Trigger.Type != models.TriggerSchedule || !wf.Active {
			continue
		}

		workflowID := wf.ID

		entry, err := s.cron.AddFunc(cronSpec(wf.Trigger), func() {
			s.fire(workflowID)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule workflow %s: %w", workflowID, err)
		}

		s.entries[workflowID] = entry
		s.logger.Debug("Scheduled workflow", "workflow_id", workflowID, "cron", wf.Trigger.CronExpr)
	}

	return nil
}

func (s *Source) fire(workflowID string) {
	s.mu.Lock()
	callback := s.callback
	s.mu.Unlock()

	if callback == nil {
		return
	}

	payload := map[string]any{
		"workflow_id": workflowID,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	if err := callback(context.Background(), models.TriggerSchedule, "", payload); err != nil {
		s.logger.Error("Scheduled run failed", "workflow_id", workflowID, "error", err)
	}
}

func (s *Source) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	s.logger.Info("Schedule source stopped")

	return nil
}

// cronSpec folds the trigger's timezone into the expression with the
// CRON_TZ prefix robfig/cron understands.
func cronSpec(trigger models.TriggerConfig) string {
	if trigger.Timezone == "" {
		return trigger.CronExpr
	}

	return "CRON_TZ=" + trigger.Timezone + " " + trigger.CronExpr
}
