package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EnrollmentHealth/internal/config"
)

func testNotifier() *Notifier {
	return NewNotifier(config.ReminderConfig{
		Sender:   "bot@example.org",
		Password: "app-password",
		SMTPHost: "smtp.example.org",
		SMTPPort: 587,
	})
}

func TestSendBuildsHTMLMessage(t *testing.T) {
	t.Parallel()

	n := testNotifier()

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotFrom = from
		gotTo = to
		gotMsg = string(msg)
		return nil
	}

	err := n.Send(context.Background(), "rivka@example.org", "Assessment Reminder: Avi Cohen", "<html><body>hi</body></html>")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.org:587", gotAddr)
	assert.Equal(t, "bot@example.org", gotFrom)
	assert.Equal(t, []string{"rivka@example.org"}, gotTo)

	assert.Contains(t, gotMsg, "Subject: Assessment Reminder: Avi Cohen\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html; charset=\"UTF-8\"\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "<html><body>hi</body></html>"))
}

func TestSendRequiresRecipient(t *testing.T) {
	t.Parallel()

	n := testNotifier()
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}

	err := n.Send(context.Background(), "", "subject", "body")
	require.Error(t, err)
}

func TestSendHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	n := testNotifier()
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Send(ctx, "rivka@example.org", "subject", "body")
	assert.ErrorIs(t, err, context.Canceled)
}
