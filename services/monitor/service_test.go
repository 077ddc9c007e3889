package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/cache"
	"github.com/replystack/replystack/internal/enum"
	"github.com/replystack/replystack/internal/logger"
	"github.com/replystack/replystack/internal/models"
	"github.com/replystack/replystack/internal/repository"
	"github.com/replystack/replystack/internal/utils"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type fakeMailbox struct {
	mu        sync.Mutex
	messages  []models.InboundMessage
	markedUID []uint32
	listErr   error

	// optional hooks for interleaving tests
	listStarted chan struct{}
	listGate    chan struct{}
}

func (f *fakeMailbox) Connect(ctx context.Context) error { return nil }
func (f *fakeMailbox) Disconnect()                       {}

func (f *fakeMailbox) ListUnread(ctx context.Context) ([]models.InboundMessage, error) {
	if f.listStarted != nil {
		f.listStarted <- struct{}{}
	}
	if f.listGate != nil {
		<-f.listGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.InboundMessage, len(f.messages))
	copy(out, f.messages)
	return out, nil
}

func (f *fakeMailbox) ListRecent(ctx context.Context, hours, limit int) ([]models.InboundMessage, error) {
	return f.ListUnread(ctx)
}

func (f *fakeMailbox) MarkRead(ctx context.Context, uid uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedUID = append(f.markedUID, uid)
	return nil
}

func (f *fakeMailbox) HealthCheck(ctx context.Context) interfaces.CollaboratorHealth {
	return interfaces.CollaboratorHealth{Healthy: true, CheckedAt: utils.Now()}
}

type fakeReplies struct{}

func (f *fakeReplies) GenerateReply(ctx context.Context, subject, body, sender string, replyContext map[string]string) (string, enum.ReplyType, error) {
	return "Dear User, thanks. Best regards, Team", enum.ReplyTypeAuto, nil
}

func (f *fakeReplies) Analyze(ctx context.Context, body string) interfaces.Analysis {
	return interfaces.Analysis{Sentiment: enum.SentimentNeutral, Urgency: enum.UrgencyLow, Confidence: 0.6}
}

func (f *fakeReplies) HealthCheck(ctx context.Context) interfaces.CollaboratorHealth {
	return interfaces.CollaboratorHealth{Healthy: true, CheckedAt: utils.Now()}
}

type fakeTransport struct {
	mu      sync.Mutex
	sent    []interfaces.SendRequest
	failAll bool
}

func (f *fakeTransport) SendOne(ctx context.Context, req interfaces.SendRequest) interfaces.SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	if f.failAll {
		return interfaces.SendResult{Success: false, Error: "provider down"}
	}
	return interfaces.SendResult{Success: true, MessageID: "msg-1"}
}

func (f *fakeTransport) SendBatch(ctx context.Context, req interfaces.BatchSendRequest) interfaces.BatchSendResult {
	return interfaces.BatchSendResult{}
}

func (f *fakeTransport) HealthCheck(ctx context.Context) interfaces.CollaboratorHealth {
	return interfaces.CollaboratorHealth{Healthy: true, CheckedAt: utils.Now()}
}

type fakeGate struct {
	allowed map[string]bool
}

func (f *fakeGate) IsAllowed(ctx context.Context, domain string) bool { return f.allowed[domain] }
func (f *fakeGate) Refresh(ctx context.Context) error                 { return nil }
func (f *fakeGate) Reset()                                            {}

type fakeRecords struct {
	mu            sync.Mutex
	records       []models.ReplyRecord
	statusUpdates map[string]enum.DeliveryStatus
	recentReply   map[string]bool
	nextID        int
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		statusUpdates: make(map[string]enum.DeliveryStatus),
		recentReply:   make(map[string]bool),
	}
}

func (f *fakeRecords) Append(ctx context.Context, record *models.ReplyRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	record.ID = utils.GenerateNanoIDWithPrefix("rr", 12)
	f.records = append(f.records, *record)
	return record.ID, nil
}

func (f *fakeRecords) UpdateStatus(ctx context.Context, id string, status enum.DeliveryStatus, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusUpdates[id] = status
	return nil
}

func (f *fakeRecords) Query(ctx context.Context, filter repository.ReplyRecordFilter) ([]models.ReplyRecord, error) {
	return nil, nil
}

func (f *fakeRecords) HasRecentAutoReply(ctx context.Context, recipient string, window time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recentReply[recipient], nil
}

func (f *fakeRecords) CountByAction(ctx context.Context, from, to time.Time) ([]repository.ActionCount, error) {
	return nil, nil
}

func (f *fakeRecords) CountByDay(ctx context.Context, from, to time.Time, action enum.EmailAction) ([]repository.DailyCount, error) {
	return nil, nil
}

func (f *fakeRecords) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRecords) actions() []enum.EmailAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]enum.EmailAction, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r.Action)
	}
	return out
}

type fakeStatusRepo struct{}

func (f *fakeStatusRepo) Get(ctx context.Context, serviceName string) (*models.MonitorStatus, error) {
	return nil, nil
}

func (f *fakeStatusRepo) SetActive(ctx context.Context, serviceName string, isActive bool, checkInterval int) error {
	return nil
}

func (f *fakeStatusRepo) RecordCheck(ctx context.Context, serviceName string, lastError string) error {
	return nil
}

type fixture struct {
	svc       *monitorService
	mailbox   *fakeMailbox
	transport *fakeTransport
	records   *fakeRecords
	processed cache.ProcessedCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mailboxFake := &fakeMailbox{}
	transportFake := &fakeTransport{}
	recordsFake := newFakeRecords()
	processed := cache.NewMemoryCache(time.Hour)
	t.Cleanup(processed.Close)

	cfg := &config.MonitorConfig{
		CheckInterval:    30 * time.Second,
		MinCheckInterval: 10 * time.Second,
		MaxPerCheck:      50,
		AutoReplyEnabled: true,
		CooldownWindow:   24 * time.Hour,
	}

	svc := NewMonitorService(
		cfg,
		getLogger(),
		mailboxFake,
		&fakeReplies{},
		transportFake,
		&fakeGate{allowed: map[string]bool{"gmail.com": true}},
		processed,
		recordsFake,
		&fakeStatusRepo{},
		nil,
	).(*monitorService)

	return &fixture{
		svc:       svc,
		mailbox:   mailboxFake,
		transport: transportFake,
		records:   recordsFake,
		processed: processed,
	}
}

func message(id string, uid uint32, sender string) models.InboundMessage {
	return models.InboundMessage{
		ID:         id,
		UID:        uid,
		Sender:     sender,
		Recipient:  "inbox@replystack.io",
		Subject:    "Question",
		Body:       "How does this work?",
		Domain:     utils.ExtractDomain(sender),
		ReceivedAt: utils.Now(),
	}
}

func TestHandleMessage_AllowedDomainGetsReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.handleMessage(ctx, message("m1", 7, "user@gmail.com"))

	assert.Equal(t, []enum.EmailAction{enum.ActionReceived, enum.ActionAutoReplied}, f.records.actions())
	assert.Len(t, f.transport.sent, 1)
	assert.Equal(t, "user@gmail.com", f.transport.sent[0].To)
	assert.Equal(t, "Re: Question", f.transport.sent[0].Subject)
	assert.Equal(t, []uint32{7}, f.mailbox.markedUID)

	// the pending audit row moved to sent
	assert.Len(t, f.records.statusUpdates, 1)
	for _, status := range f.records.statusUpdates {
		assert.Equal(t, enum.DeliveryStatusSent, status)
	}

	status := f.svc.GetStatus()
	assert.Equal(t, 1, status.Stats.EmailsProcessed)
	assert.Equal(t, 1, status.Stats.RepliesSent)
}

func TestHandleMessage_DisallowedDomainSkipped(t *testing.T) {
	f := newFixture(t)

	f.svc.handleMessage(context.Background(), message("m1", 7, "user@evil.org"))

	assert.Equal(t, []enum.EmailAction{enum.ActionReceived, enum.ActionReplySkipped}, f.records.actions())
	assert.Empty(t, f.transport.sent)
	assert.Empty(t, f.mailbox.markedUID)
}

func TestHandleMessage_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.handleMessage(ctx, message("m1", 7, "user@gmail.com"))
	f.svc.handleMessage(ctx, message("m1", 7, "user@gmail.com"))

	assert.Equal(t, []enum.EmailAction{enum.ActionReceived, enum.ActionAutoReplied}, f.records.actions())
	assert.Len(t, f.transport.sent, 1)
	assert.Equal(t, 1, f.svc.GetStatus().Stats.EmailsProcessed)
}

func TestHandleMessage_CooldownSkipsReply(t *testing.T) {
	f := newFixture(t)
	f.records.recentReply["user@gmail.com"] = true

	f.svc.handleMessage(context.Background(), message("m1", 7, "user@gmail.com"))

	assert.Equal(t, []enum.EmailAction{enum.ActionReceived, enum.ActionReplySkipped}, f.records.actions())
	assert.Empty(t, f.transport.sent)
}

func TestHandleMessage_AutoReplyDisabled(t *testing.T) {
	f := newFixture(t)
	disabled := false
	err := f.svc.UpdateSettings(context.Background(), interfaces.MonitorSettings{AutoReplyEnabled: &disabled})
	assert.NoError(t, err)

	f.svc.handleMessage(context.Background(), message("m1", 7, "user@gmail.com"))

	assert.Equal(t, []enum.EmailAction{enum.ActionReceived, enum.ActionReplySkipped}, f.records.actions())
	assert.Empty(t, f.transport.sent)
}

func TestHandleMessage_SendFailureAudited(t *testing.T) {
	f := newFixture(t)
	f.transport.failAll = true

	f.svc.handleMessage(context.Background(), message("m1", 7, "user@gmail.com"))

	assert.Equal(t,
		[]enum.EmailAction{enum.ActionReceived, enum.ActionAutoReplied, enum.ActionAutoReplyFailed},
		f.records.actions())
	// the message stays unread so a later pass can still see it
	assert.Empty(t, f.mailbox.markedUID)

	status := f.svc.GetStatus()
	assert.Equal(t, 0, status.Stats.RepliesSent)
	assert.Equal(t, 1, status.Stats.Errors)
	assert.Equal(t, "provider down", status.Stats.LastError)
}

func TestHandleMessage_ParseFailureAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg := message("m1", 7, "user@gmail.com")
	msg.Body = ""
	msg.ParseError = "message has no body section"

	f.svc.handleMessage(ctx, msg)

	assert.Equal(t, []enum.EmailAction{enum.ActionProcessingError}, f.records.actions())
	assert.Empty(t, f.transport.sent)
	// retired so the broken message is not re-fetched on the next pass
	assert.Equal(t, []uint32{7}, f.mailbox.markedUID)
	assert.True(t, f.processed.IsProcessed(ctx, "m1"))

	status := f.svc.GetStatus()
	assert.Equal(t, 1, status.Stats.Errors)
	assert.Equal(t, "message has no body section", status.Stats.LastError)
}

func TestForceCheck_NotRunning(t *testing.T) {
	f := newFixture(t)

	outcome := f.svc.ForceCheck(context.Background())
	assert.False(t, outcome.Success)
	assert.Equal(t, ErrNotRunning.Error(), outcome.Error)
}

func TestForceCheck_CountsOnlyItsOwnTick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mailbox.listStarted = make(chan struct{})
	f.mailbox.listGate = make(chan struct{})
	f.mailbox.messages = []models.InboundMessage{message("m1", 1, "a@gmail.com")}

	f.svc.mu.Lock()
	f.svc.running = true
	f.svc.mu.Unlock()

	// A scheduled tick is mid-flight when ForceCheck arrives.
	tickDone := make(chan error, 1)
	go func() { tickDone <- f.svc.tick(ctx) }()
	<-f.mailbox.listStarted

	outcomeCh := make(chan interfaces.CheckOutcome, 1)
	go func() { outcomeCh <- f.svc.ForceCheck(ctx) }()
	time.Sleep(50 * time.Millisecond)

	// Let the scheduled tick finish processing m1, then release the
	// ForceCheck tick, which sees no new messages.
	f.mailbox.listGate <- struct{}{}
	assert.NoError(t, <-tickDone)

	<-f.mailbox.listStarted
	f.mailbox.listGate <- struct{}{}

	outcome := <-outcomeCh
	assert.True(t, outcome.Success)
	assert.Equal(t, 0, outcome.Processed)
	assert.Equal(t, 1, f.svc.GetStatus().Stats.EmailsProcessed)
}

func TestStartStopLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.NoError(t, f.svc.Start(ctx))
	assert.True(t, f.svc.GetStatus().IsRunning)
	assert.ErrorIs(t, f.svc.Start(ctx), ErrAlreadyRunning)

	outcome := f.svc.ForceCheck(ctx)
	assert.True(t, outcome.Success)

	assert.NoError(t, f.svc.Stop())
	assert.False(t, f.svc.GetStatus().IsRunning)
	assert.ErrorIs(t, f.svc.Stop(), ErrNotRunning)
}

func TestTick_RespectsMaxPerCheck(t *testing.T) {
	f := newFixture(t)
	limit := 2
	assert.NoError(t, f.svc.UpdateSettings(context.Background(), interfaces.MonitorSettings{MaxPerCheck: &limit}))

	f.mailbox.messages = []models.InboundMessage{
		message("m1", 1, "a@gmail.com"),
		message("m2", 2, "b@gmail.com"),
		message("m3", 3, "c@gmail.com"),
	}

	assert.NoError(t, f.svc.tick(context.Background()))
	assert.Equal(t, 2, f.svc.GetStatus().Stats.EmailsProcessed)
}

func TestUpdateSettings_ClampsInterval(t *testing.T) {
	f := newFixture(t)
	tooFast := 2 * time.Second
	assert.NoError(t, f.svc.UpdateSettings(context.Background(), interfaces.MonitorSettings{CheckInterval: &tooFast}))

	assert.Equal(t, 10*time.Second, f.svc.GetStatus().CheckInterval)
}

func TestRestart_ResetsProcessedCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.NoError(t, f.svc.Start(ctx))
	f.svc.handleMessage(ctx, message("m1", 7, "user@gmail.com"))
	assert.True(t, f.processed.IsProcessed(ctx, "m1"))

	assert.NoError(t, f.svc.Restart(ctx))
	assert.False(t, f.processed.IsProcessed(ctx, "m1"))
	assert.True(t, f.svc.GetStatus().IsRunning)
	assert.NoError(t, f.svc.Stop())
}

func TestHealthCheck_AggregatesCollaborators(t *testing.T) {
	f := newFixture(t)

	health := f.svc.HealthCheck(context.Background())
	assert.True(t, health.Healthy)
	assert.Len(t, health.Services, 3)
}
