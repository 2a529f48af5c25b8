package sendemail_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixcrm/helix/pkg/actions/sendemail"
	"github.com/helixcrm/helix/pkg/models"
)

type fakeSender struct {
	providerID string
	email      models.OutgoingEmail
	err        error
}

func (s *fakeSender) SendEmail(_ context.Context, providerID string, email models.OutgoingEmail) (string, error) {
	s.providerID = providerID
	s.email = email

	if s.err != nil {
		return "", s.err
	}

	return "msg-123", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecute_SendsThroughProvider(t *testing.T) {
	sender := &fakeSender{}

	action, err := sendemail.NewAction(map[string]any{
		"provider_id": "gmail-main",
		"to":          []any{"rosa@example.com"},
		"cc":          "boss@example.com, sales@example.com",
		"subject":     "Welcome",
		"body":        "Hello Rosa",
	}, sender)
	require.NoError(t, err)

	outputs, err := action.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, "msg-123", outputs["sent_message_id"])
	assert.Equal(t, []string{"rosa@example.com"}, outputs["sent_to"])
	assert.Equal(t, "Welcome", outputs["sent_subject"])
	assert.Equal(t, "Hello Rosa", outputs["sent_body"])
	assert.Equal(t, "gmail-main", sender.providerID)
	assert.Equal(t, []string{"rosa@example.com"}, sender.email.To)
	assert.Equal(t, []string{"boss@example.com", "sales@example.com"}, sender.email.Cc)
	assert.Equal(t, "Welcome", sender.email.Subject)
}

func TestExecute_SenderFailureFailsAction(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp bridge unreachable")}

	action, err := sendemail.NewAction(map[string]any{
		"provider_id": "imap-support",
		"to":          "rosa@example.com",
		"subject":     "Welcome",
	}, sender)
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imap-support")
}

func TestNewAction_Validation(t *testing.T) {
	sender := &fakeSender{}

	_, err := sendemail.NewAction(map[string]any{
		"to":      "rosa@example.com",
		"subject": "Hi",
	}, sender)
	require.ErrorIs(t, err, sendemail.ErrProviderMissing)

	_, err = sendemail.NewAction(map[string]any{
		"provider_id": "p",
		"subject":     "Hi",
	}, sender)
	require.ErrorIs(t, err, sendemail.ErrRecipientsMissing)

	_, err = sendemail.NewAction(map[string]any{
		"provider_id": "p",
		"to":          "rosa@example.com",
	}, sender)
	require.ErrorIs(t, err, sendemail.ErrSubjectMissing)
}
