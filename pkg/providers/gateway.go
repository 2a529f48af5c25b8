package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/otelhelper"
)

// Factory builds an adapter for one provider kind.
type Factory func(config *models.ProviderConfig, logger *slog.Logger) (Provider, error)

// CredentialsListener is notified whenever an automatic token refresh
// produced new credentials, so the host application can persist them.
type CredentialsListener func(creds models.RefreshedCredentials)

// Gateway is the single entry point to every configured provider. It
// resolves provider ids to live adapters and wraps each upstream call
// with the token-refresh-and-retry policy: on an auth failure the
// gateway refreshes once and replays the call once; a second failure
// propagates.
type Gateway struct {
	mu        sync.RWMutex
	factories map[models.ProviderKind]Factory
	configs   map[string]*models.ProviderConfig
	active    map[string]Provider
	onRefresh CredentialsListener
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewGateway(logger *slog.Logger) *Gateway {
	return &Gateway{
		factories: make(map[models.ProviderKind]Factory),
		configs:   make(map[string]*models.ProviderConfig),
		active:    make(map[string]Provider),
		logger:    logger.With("module", "provider_gateway"),
	}
}

func (g *Gateway) RegisterFactory(kind models.ProviderKind, factory Factory) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.factories[kind] = factory
}

// RegisterConfig makes a connected account addressable by its id.
func (g *Gateway) RegisterConfig(config *models.ProviderConfig) error {
	if config.ID == "" {
		return errors.New("provider config has no id")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.factories[config.Provider]; !ok {
		return fmt.Errorf("provider kind '%s': %w", config.Provider, ErrUnknownProvider)
	}

	g.configs[config.ID] = config
	delete(g.active, config.ID)

	return nil
}

// SetTracer enables a span per upstream operation. Without one the
// gateway runs untraced.
func (g *Gateway) SetTracer(tracer trace.Tracer) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tracer = tracer
}

// OnCredentialsRefreshed registers the listener that receives refreshed
// tokens. Only one listener is held; the host wires its own fan-out.
func (g *Gateway) OnCredentialsRefreshed(listener CredentialsListener) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.onRefresh = listener
}

// Connect eagerly builds and connects the provider. Operations connect
// lazily, so calling Connect first is optional but surfaces bad
// credentials early.
func (g *Gateway) Connect(ctx context.Context, providerID string) error {
	_, _, err := g.provider(ctx, providerID)

	return err
}

func (g *Gateway) Disconnect(ctx context.Context, providerID string) error {
	g.mu.Lock()
	p, ok := g.active[providerID]
	delete(g.active, providerID)
	g.mu.Unlock()

	if !ok {
		return nil
	}

	return p.Disconnect(ctx)
}

// SyncCalendar fetches one page of events in the query's window. The
// returned credentials are non-nil only when this call triggered a
// token refresh, either while connecting or during the sync itself.
func (g *Gateway) SyncCalendar(ctx context.Context, providerID string, query CalendarQuery) (*CalendarSyncResult, *models.RefreshedCredentials, error) {
	cal, connectCreds, err := g.calendar(ctx, providerID)
	if err != nil {
		return nil, nil, err
	}

	var result *CalendarSyncResult

	creds, err := g.withAuthRetry(ctx, providerID, cal, func() error {
		var opErr error
		result, opErr = cal.SyncEvents(ctx, query)

		return opErr
	})

	if creds == nil {
		creds = connectCreds
	}

	return result, creds, err
}

func (g *Gateway) CreateEvent(ctx context.Context, providerID string, event models.CalendarEvent) (*models.CalendarEvent, error) {
	cal, _, err := g.calendar(ctx, providerID)
	if err != nil {
		return nil, err
	}

	var created *models.CalendarEvent

	_, err = g.withAuthRetry(ctx, providerID, cal, func() error {
		var opErr error
		created, opErr = cal.CreateEvent(ctx, event)

		return opErr
	})

	return created, err
}

func (g *Gateway) UpdateEvent(ctx context.Context, providerID, eventID string, event models.CalendarEvent) (*models.CalendarEvent, error) {
	cal, _, err := g.calendar(ctx, providerID)
	if err != nil {
		return nil, err
	}

	var updated *models.CalendarEvent

	_, err = g.withAuthRetry(ctx, providerID, cal, func() error {
		var opErr error
		updated, opErr = cal.UpdateEvent(ctx, eventID, event)

		return opErr
	})

	return updated, err
}

func (g *Gateway) DeleteEvent(ctx context.Context, providerID, eventID string) error {
	cal, _, err := g.calendar(ctx, providerID)
	if err != nil {
		return err
	}

	_, err = g.withAuthRetry(ctx, providerID, cal, func() error {
		return cal.DeleteEvent(ctx, eventID)
	})

	return err
}

// SyncEmail fetches one page of messages.
func (g *Gateway) SyncEmail(ctx context.Context, providerID, cursor string) (*EmailSyncResult, *models.RefreshedCredentials, error) {
	mail, connectCreds, err := g.email(ctx, providerID)
	if err != nil {
		return nil, nil, err
	}

	var result *EmailSyncResult

	creds, err := g.withAuthRetry(ctx, providerID, mail, func() error {
		var opErr error
		result, opErr = mail.SyncMessages(ctx, cursor)

		return opErr
	})

	if creds == nil {
		creds = connectCreds
	}

	return result, creds, err
}

func (g *Gateway) SendEmail(ctx context.Context, providerID string, email models.OutgoingEmail) (string, error) {
	mail, _, err := g.email(ctx, providerID)
	if err != nil {
		return "", err
	}

	var messageID string

	_, err = g.withAuthRetry(ctx, providerID, mail, func() error {
		var opErr error
		messageID, opErr = mail.SendEmail(ctx, email)

		return opErr
	})

	return messageID, err
}

func (g *Gateway) MarkRead(ctx context.Context, providerID, messageID string, read bool) error {
	mail, _, err := g.email(ctx, providerID)
	if err != nil {
		return err
	}

	_, err = g.withAuthRetry(ctx, providerID, mail, func() error {
		return mail.MarkRead(ctx, messageID, read)
	})

	return err
}

func (g *Gateway) calendar(ctx context.Context, providerID string) (CalendarProvider, *models.RefreshedCredentials, error) {
	p, creds, err := g.provider(ctx, providerID)
	if err != nil {
		return nil, nil, err
	}

	cal, ok := p.(CalendarProvider)
	if !ok {
		return nil, nil, fmt.Errorf("provider '%s': %w", providerID, ErrWrongFamily)
	}

	return cal, creds, nil
}

func (g *Gateway) email(ctx context.Context, providerID string) (EmailProvider, *models.RefreshedCredentials, error) {
	p, creds, err := g.provider(ctx, providerID)
	if err != nil {
		return nil, nil, err
	}

	mail, ok := p.(EmailProvider)
	if !ok {
		return nil, nil, fmt.Errorf("provider '%s': %w", providerID, ErrWrongFamily)
	}

	return mail, creds, nil
}

// provider resolves an id to a live adapter, connecting it on first
// use. The returned credentials are non-nil only when connecting
// failed with an auth error and a token refresh recovered it.
func (g *Gateway) provider(ctx context.Context, providerID string) (Provider, *models.RefreshedCredentials, error) {
	g.mu.RLock()
	if p, ok := g.active[providerID]; ok {
		g.mu.RUnlock()

		return p, nil, nil
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.active[providerID]; ok {
		return p, nil, nil
	}

	config, ok := g.configs[providerID]
	if !ok {
		return nil, nil, fmt.Errorf("provider '%s': %w", providerID, ErrUnknownProvider)
	}

	factory, ok := g.factories[config.Provider]
	if !ok {
		return nil, nil, fmt.Errorf("provider kind '%s': %w", config.Provider, ErrUnknownProvider)
	}

	p, err := factory(config, g.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build provider '%s': %w", providerID, err)
	}

	creds, err := g.connectLocked(ctx, providerID, p)
	if err != nil {
		return nil, nil, err
	}

	g.active[providerID] = p

	return p, creds, nil
}

// connectLocked connects the freshly built adapter under g.mu. An
// auth failure on connect gets the same refresh-once-and-retry
// treatment as a failed operation; the listener is invoked directly
// because the write lock is already held.
func (g *Gateway) connectLocked(ctx context.Context, providerID string, p Provider) (*models.RefreshedCredentials, error) {
	err := p.Connect(ctx)
	if err == nil {
		return nil, nil
	}

	refresher, ok := p.(TokenRefresher)
	if !ok || !errors.Is(err, ErrAuthFailed) {
		return nil, fmt.Errorf("failed to connect provider '%s': %w", providerID, err)
	}

	g.logger.Info("Auth failure on connect, refreshing token", "provider_id", providerID)

	creds, refreshErr := refresher.RefreshToken(ctx)
	if refreshErr != nil {
		return nil, fmt.Errorf("token refresh failed: %w", errors.Join(refreshErr, err))
	}

	creds.ProviderID = providerID
	if g.onRefresh != nil {
		g.onRefresh(*creds)
	}

	if err := p.Connect(ctx); err != nil {
		return creds, fmt.Errorf("failed to connect provider '%s': %w", providerID, err)
	}

	return creds, nil
}

// withAuthRetry runs op, and on an auth failure refreshes the token and
// replays op exactly once. Any second failure, auth or otherwise, is
// returned untouched.
func (g *Gateway) withAuthRetry(ctx context.Context, providerID string, p Provider, op func() error) (*models.RefreshedCredentials, error) {
	g.mu.RLock()
	tracer := g.tracer
	g.mu.RUnlock()

	if tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, tracer, "provider.operation",
			attribute.String(otelhelper.ProviderIDKey, providerID),
		)
		defer span.End()

		creds, err := g.authRetry(ctx, providerID, p, op)
		if err != nil {
			otelhelper.SetError(span, err)
		}

		return creds, err
	}

	return g.authRetry(ctx, providerID, p, op)
}

func (g *Gateway) authRetry(ctx context.Context, providerID string, p Provider, op func() error) (*models.RefreshedCredentials, error) {
	err := op()
	if err == nil || !errors.Is(err, ErrAuthFailed) {
		return nil, err
	}

	refresher, ok := p.(TokenRefresher)
	if !ok {
		return nil, err
	}

	g.logger.Info("Auth failure, refreshing token", "provider_id", providerID)

	creds, refreshErr := refresher.RefreshToken(ctx)
	if refreshErr != nil {
		return nil, fmt.Errorf("token refresh failed: %w", errors.Join(refreshErr, err))
	}

	creds.ProviderID = providerID
	g.notifyRefreshed(*creds)

	if err := op(); err != nil {
		return creds, err
	}

	return creds, nil
}

func (g *Gateway) notifyRefreshed(creds models.RefreshedCredentials) {
	g.mu.RLock()
	listener := g.onRefresh
	g.mu.RUnlock()

	if listener != nil {
		listener(creds)
	}
}
