package service

import (
	"bigfootds/auth-api/config"
	"bytes"
	"context"
	"errors"
	"io"
	"mime/quotedprintable"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	delay time.Duration
	err   error
	sent  []*gomail.Message
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	time.Sleep(f.delay)
	f.sent = append(f.sent, m...)
	return f.err
}

func testMailer(s sender, timeout time.Duration) *SMTPMailer {
	m := NewSMTPMailer(config.MailConfig{
		Host:    "smtp.example.com",
		Port:    587,
		Sender:  "noreply@example.com",
		Timeout: timeout,
	}, config.HostConfig{Domain: "auth.example.com", SSLEnabled: true})
	m.dialer = s

	return m
}

func TestSMTPMailer_SendVerificationEmail(t *testing.T) {
	s := &fakeSender{}
	m := testMailer(s, time.Second)

	err := m.SendVerificationEmail(context.Background(), "user@example.com", "abc123")
	require.NoError(t, err)
	require.Len(t, s.sent, 1)

	msg := s.sent[0]
	assert.Equal(t, []string{"user@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"noreply@example.com"}, msg.GetHeader("From"))

	var raw bytes.Buffer
	_, err = msg.WriteTo(&raw)
	require.NoError(t, err)

	_, encoded, ok := strings.Cut(raw.String(), "\r\n\r\n")
	require.True(t, ok)

	body, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(encoded)))
	require.NoError(t, err)
	assert.Contains(t, string(body), "https://auth.example.com/api/users/verify?token=abc123")
}

func TestSMTPMailer_VerificationLink(t *testing.T) {
	m := testMailer(&fakeSender{}, time.Second)

	assert.Equal(t, "https://auth.example.com/api/users/verify?token=a+b%26c", m.VerificationLink("a b&c"))
}

func TestSMTPMailer_Failure(t *testing.T) {
	m := testMailer(&fakeSender{err: errors.New("535 auth failed")}, time.Second)

	err := m.SendVerificationEmail(context.Background(), "user@example.com", "abc123")
	assert.Error(t, err)
}

func TestSMTPMailer_RejectsSenderAsRecipient(t *testing.T) {
	s := &fakeSender{}
	m := testMailer(s, time.Second)

	err := m.SendVerificationEmail(context.Background(), "noreply@example.com", "abc123")
	assert.Error(t, err)
	assert.Empty(t, s.sent)
}

func TestSMTPMailer_Timeout(t *testing.T) {
	m := testMailer(&fakeSender{delay: 500 * time.Millisecond}, 20*time.Millisecond)

	start := time.Now()
	err := m.SendVerificationEmail(context.Background(), "user@example.com", "abc123")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)

	return logs
}

func TestSMTPMailer_LateSendIsLogged(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"delivered", nil, "Late verification email delivered"},
		{"failed", errors.New("connection reset"), "Late verification email failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := observeLogs(t)
			m := testMailer(&fakeSender{delay: 100 * time.Millisecond, err: tt.err}, 10*time.Millisecond)

			err := m.SendVerificationEmail(context.Background(), "user@example.com", "abc123")
			require.ErrorIs(t, err, context.DeadlineExceeded)

			assert.Eventually(t, func() bool {
				return logs.FilterMessage(tt.message).Len() == 1
			}, 2*time.Second, 10*time.Millisecond)

			entry := logs.FilterMessage(tt.message).All()[0]
			assert.Equal(t, zapcore.WarnLevel, entry.Level)
			assert.Equal(t, "user@example.com", entry.ContextMap()["recipient"])
		})
	}
}

type countingDeleter struct {
	calls atomic.Int32
}

func (c *countingDeleter) DeleteExpired(context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, nil
}

func TestTokenCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := &countingDeleter{}

	stopped := TokenCleanup(ctx, 5*time.Millisecond, d)

	assert.Eventually(t, func() bool {
		return d.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("token cleanup did not stop")
	}
}
