package transport

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/enum"
	"github.com/replystack/replystack/internal/logger"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

// fakeSender records every request and fails addresses listed in failFor.
type fakeSender struct {
	mu       sync.Mutex
	requests []interfaces.SendRequest
	failFor  map[string]bool
	readyErr error
}

func (f *fakeSender) Name() enum.MailProvider { return enum.MailProviderSendgrid }

func (f *fakeSender) Ready() error { return f.readyErr }

func (f *fakeSender) Send(_ context.Context, req interfaces.SendRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.failFor[req.To] {
		return "", errors.New("mailbox unavailable")
	}
	return "provider-id", nil
}

func (f *fakeSender) sent() []interfaces.SendRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]interfaces.SendRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func newTestTransport(sender senderProvider) *mailTransport {
	return &mailTransport{
		cfg: &config.MailConfig{
			FromEmail:   "noreply@replystack.io",
			FromName:    "ReplyStack",
			SendTimeout: 5 * time.Second,
		},
		log:      getLogger(),
		provider: sender,
	}
}

func TestSendOne_Success(t *testing.T) {
	sender := &fakeSender{}
	tr := newTestTransport(sender)

	result := tr.SendOne(context.Background(), interfaces.SendRequest{
		To:      "user@example.com",
		Subject: "hi",
		Body:    "body",
	})

	assert.True(t, result.Success)
	assert.Equal(t, "provider-id", result.MessageID)
	assert.Equal(t, enum.MailProviderSendgrid, result.Provider)

	sent := sender.sent()
	assert.Len(t, sent, 1)
	assert.Equal(t, "noreply@replystack.io", sent[0].FromEmail)
	assert.Equal(t, "ReplyStack", sent[0].FromName)
	assert.Equal(t, "text/plain", sent[0].ContentType)
}

func TestSendOne_InvalidRecipient(t *testing.T) {
	sender := &fakeSender{}
	tr := newTestTransport(sender)

	result := tr.SendOne(context.Background(), interfaces.SendRequest{To: "not-an-address"})

	assert.False(t, result.Success)
	assert.Equal(t, ErrInvalidRecipient.Error(), result.Error)
	assert.Empty(t, sender.sent())
}

func TestSendOne_ProviderNotReady(t *testing.T) {
	sender := &fakeSender{readyErr: errors.New("api key missing")}
	tr := newTestTransport(sender)

	result := tr.SendOne(context.Background(), interfaces.SendRequest{To: "user@example.com"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "api key missing")
}

func TestSendOne_ProviderFailure(t *testing.T) {
	sender := &fakeSender{failFor: map[string]bool{"user@example.com": true}}
	tr := newTestTransport(sender)

	result := tr.SendOne(context.Background(), interfaces.SendRequest{To: "user@example.com"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "mailbox unavailable")
}

func batchRecipients(n int) []interfaces.BatchRecipient {
	recipients := make([]interfaces.BatchRecipient, 0, n)
	for i := 0; i < n; i++ {
		recipients = append(recipients, interfaces.BatchRecipient{
			Email: fmt.Sprintf("user%d@example.com", i),
		})
	}
	return recipients
}

func TestSendBatch_AllSucceed(t *testing.T) {
	sender := &fakeSender{}
	tr := newTestTransport(sender)

	result := tr.SendBatch(context.Background(), interfaces.BatchSendRequest{
		Recipients: batchRecipients(25),
		Subject:    "hello",
		Body:       "world",
		BatchSize:  10,
	})

	assert.Equal(t, 25, result.Total)
	assert.Equal(t, 25, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)
	assert.Len(t, sender.sent(), 25)
}

func TestSendBatch_PartialFailures(t *testing.T) {
	failFor := map[string]bool{}
	for i := 0; i < 12; i++ {
		failFor[fmt.Sprintf("user%d@example.com", i)] = true
	}
	sender := &fakeSender{failFor: failFor}
	tr := newTestTransport(sender)

	result := tr.SendBatch(context.Background(), interfaces.BatchSendRequest{
		Recipients: batchRecipients(30),
		Subject:    "hello",
		Body:       "world",
		BatchSize:  10,
	})

	assert.Equal(t, 30, result.Total)
	assert.Equal(t, 18, result.Sent)
	assert.Equal(t, 12, result.Failed)
	// error detail is capped, counts are not
	assert.Len(t, result.Errors, maxBatchErrors)
}

func TestSendBatch_Personalization(t *testing.T) {
	sender := &fakeSender{}
	tr := newTestTransport(sender)

	result := tr.SendBatch(context.Background(), interfaces.BatchSendRequest{
		Recipients: []interfaces.BatchRecipient{
			{Email: "jane@example.com", Vars: map[string]string{"name": "Jane"}},
			{Email: "joe@example.com"},
		},
		Subject:   "Hi {{name}}",
		Body:      "Dear {{name}}, welcome.",
		BatchSize: 10,
	})

	assert.Equal(t, 2, result.Sent)

	bySubject := map[string]string{}
	for _, req := range sender.sent() {
		bySubject[req.To] = req.Subject
	}
	assert.Equal(t, "Hi Jane", bySubject["jane@example.com"])
	// missing vars stay literal
	assert.Equal(t, "Hi {{name}}", bySubject["joe@example.com"])
}

func TestSendBatch_ProgressCallback(t *testing.T) {
	sender := &fakeSender{}
	tr := newTestTransport(sender)

	var progress [][2]int
	tr.SendBatch(context.Background(), interfaces.BatchSendRequest{
		Recipients: batchRecipients(25),
		Subject:    "hello",
		Body:       "world",
		BatchSize:  10,
		OnBatchDone: func(sent, failed int) {
			progress = append(progress, [2]int{sent, failed})
		},
	})

	assert.Equal(t, [][2]int{{10, 0}, {20, 0}, {25, 0}}, progress)
}

func TestSendBatch_CancelledBetweenBatches(t *testing.T) {
	sender := &fakeSender{}
	tr := newTestTransport(sender)

	ctx, cancel := context.WithCancel(context.Background())
	result := tr.SendBatch(ctx, interfaces.BatchSendRequest{
		Recipients: batchRecipients(30),
		Subject:    "hello",
		Body:       "world",
		BatchSize:  10,
		OnBatchDone: func(sent, failed int) {
			if sent >= 10 {
				cancel()
			}
		},
	})

	assert.Equal(t, 10, result.Sent)
	assert.Equal(t, 20, result.Failed)
	assert.NotEmpty(t, result.Errors)
}

func TestSendBatch_Empty(t *testing.T) {
	tr := newTestTransport(&fakeSender{})

	result := tr.SendBatch(context.Background(), interfaces.BatchSendRequest{})
	assert.Equal(t, 0, result.Total)
	assert.Equal(t, 0, result.Sent)
}
