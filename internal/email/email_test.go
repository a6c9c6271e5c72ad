package email

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trohub/app/internal/config"
)

type recordingSender struct {
	calls int
	err   error
}

func (r *recordingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	r.calls++
	return r.err
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	msg := string(BuildMessage("noreply@trohub.vn", []string{"a@x.vn", "b@x.vn"}, "Hoá đơn 03/2025", "Tổng: 2.400.000đ", now))

	assert.Contains(t, msg, "To: a@x.vn, b@x.vn\r\n")
	assert.Contains(t, msg, "Subject: Hoá đơn 03/2025\r\n")
	assert.Contains(t, msg, "charset=\"UTF-8\"")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nTổng: 2.400.000đ\r\n"))
}

func TestCompositeEmailSender_CallsAllAndJoinsErrors(t *testing.T) {
	ok := &recordingSender{}
	failing := &recordingSender{err: errors.New("boom")}
	cs := NewCompositeEmailSender(failing)
	cs.AddSender(ok)
	cs.AddSender(nil)

	err := cs.Send(context.Background(), []string{"a@x.vn"}, "s", []byte("m"))
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, 1, ok.calls, "later senders still run after a failure")
	assert.Equal(t, 1, failing.calls)

	assert.Error(t, NewCompositeEmailSender().Send(context.Background(), nil, "", nil))
}

func TestFileEmailSender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "emails.log")
	s, err := NewFileEmailSender(path)
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), []string{"a@x.vn"}, "First", []byte("one\r\n")))
	require.NoError(t, s.Send(context.Background(), []string{"a@x.vn"}, "Second", []byte("two\r\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "--- End Logged Email ---"))
	assert.Contains(t, string(data), "Subject: Second")

	_, err = NewFileEmailSender("  ")
	assert.Error(t, err)
}

func TestNewSMTPSender_FallsBackToLogging(t *testing.T) {
	s := NewSMTPSender(&config.Config{SmtpFromAddress: "noreply@trohub.vn"})
	_, isLogging := s.(*LoggingSender)
	assert.True(t, isLogging)
	assert.NoError(t, s.Send(context.Background(), []string{"a@x.vn"}, "s", []byte("m")))
}
