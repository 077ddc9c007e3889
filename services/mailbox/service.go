package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/logger"
	"github.com/replystack/replystack/internal/models"
	"github.com/replystack/replystack/internal/tracing"
	"github.com/replystack/replystack/internal/utils"
)

type imapMailbox struct {
	cfg *config.ImapConfig
	log logger.Logger

	mu          sync.Mutex
	client      *client.Client
	connectedAt time.Time
}

// NewIMAPMailbox builds a MailboxReader backed by a single IMAP connection.
// The connection is lazy; callers may use ListUnread without an explicit
// Connect and the reader will dial on demand.
func NewIMAPMailbox(cfg *config.ImapConfig, log logger.Logger) interfaces.MailboxReader {
	return &imapMailbox{
		cfg: cfg,
		log: log,
	}
}

func (m *imapMailbox) Connect(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPMailbox.Connect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", m.cfg.Server)
	span.SetTag("port", m.cfg.Port)
	span.SetTag("tls", m.cfg.TLS)

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx)
}

// connectLocked dials, logs in and selects the configured folder. Callers
// must hold m.mu.
func (m *imapMailbox) connectLocked(ctx context.Context) error {
	if m.client != nil {
		m.client.Logout()
		m.client = nil
	}

	serverAddr := fmt.Sprintf("%s:%d", m.cfg.Server, m.cfg.Port)
	dialer := &net.Dialer{
		Timeout:   m.cfg.ConnectionTimeout,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error
	if m.cfg.TLS {
		tlsConfig := &tls.Config{
			ServerName: m.cfg.Server,
		}
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", serverAddr)
	}

	// The command deadline stays set for the life of the connection; a hung
	// server must fail the command, never block the caller.
	c.Timeout = m.cfg.ConnectionTimeout
	if err := c.Login(m.cfg.Username, m.cfg.Password); err != nil {
		c.Logout()
		return errors.Wrapf(err, "failed to login as %s", m.cfg.Username)
	}

	if _, err := c.Select(m.cfg.Folder, false); err != nil {
		c.Logout()
		return errors.Wrapf(err, "failed to select folder %s", m.cfg.Folder)
	}

	m.client = c
	m.connectedAt = utils.Now()
	m.log.Infof("connected to imap server %s, folder %s", serverAddr, m.cfg.Folder)
	return nil
}

// ensureLiveLocked verifies the current connection with a NOOP and
// reconnects once when the connection is stale or dead. Callers must hold
// m.mu.
func (m *imapMailbox) ensureLiveLocked(ctx context.Context) error {
	if m.client == nil {
		return m.connectLocked(ctx)
	}
	if time.Since(m.connectedAt) > m.cfg.ConnectionStaleAge {
		m.log.Debug("imap connection past stale age, reconnecting")
		return m.connectLocked(ctx)
	}
	if err := m.client.Noop(); err != nil {
		m.log.Warnf("imap NOOP failed, reconnecting: %v", err)
		return m.connectLocked(ctx)
	}
	return nil
}

func (m *imapMailbox) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		if err := m.client.Logout(); err != nil {
			m.log.Warnf("imap logout failed: %v", err)
		}
		m.client = nil
	}
}

func (m *imapMailbox) ListUnread(ctx context.Context) ([]models.InboundMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPMailbox.ListUnread")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	messages, err := m.search(ctx, criteria, 0)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.SetTag("messages.count", len(messages))
	return messages, nil
}

func (m *imapMailbox) ListRecent(ctx context.Context, hours int, limit int) ([]models.InboundMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPMailbox.ListRecent")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("hours", hours)
	span.SetTag("limit", limit)

	criteria := imap.NewSearchCriteria()
	criteria.Since = utils.Now().Add(-time.Duration(hours) * time.Hour)

	messages, err := m.search(ctx, criteria, limit)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.SetTag("messages.count", len(messages))
	return messages, nil
}

func (m *imapMailbox) search(ctx context.Context, criteria *imap.SearchCriteria, limit int) ([]models.InboundMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLiveLocked(ctx); err != nil {
		return nil, err
	}

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		// One reconnect attempt covers servers that drop idle connections
		// without failing the NOOP.
		if err = m.connectLocked(ctx); err != nil {
			return nil, err
		}
		uids, err = m.client.UidSearch(criteria)
		if err != nil {
			return nil, errors.Wrap(err, "uid search failed")
		}
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(uids) > limit {
		// Newest messages have the highest UIDs.
		uids = uids[len(uids)-limit:]
	}

	return m.fetchLocked(uids)
}

// fetchTimeout widens the command deadline for full-body fetches, which can
// carry large literals.
const fetchTimeout = 60 * time.Second

// fetchLocked retrieves full message bodies for the given UIDs and parses
// them into InboundMessage. Callers must hold m.mu with a live client.
func (m *imapMailbox) fetchLocked(uids []uint32) ([]models.InboundMessage, error) {
	m.client.Timeout = fetchTimeout
	defer func() { m.client.Timeout = m.cfg.ConnectionTimeout }()

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	// BODY.PEEK keeps the \Seen flag untouched; the monitor marks messages
	// read only after replying.
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqSet, items, ch)
	}()

	var messages []models.InboundMessage
	for msg := range ch {
		parsed, err := m.parseMessage(msg, section)
		if err != nil {
			// Surfaced rather than dropped so the caller can audit the
			// failure and retire the message.
			m.log.Warnf("message uid=%d failed to parse: %v", msg.Uid, err)
			parsed.ParseError = err.Error()
		}
		messages = append(messages, parsed)
	}

	if err := <-done; err != nil {
		return nil, errors.Wrap(err, "uid fetch failed")
	}
	return messages, nil
}

func (m *imapMailbox) parseMessage(msg *imap.Message, section *imap.BodySectionName) (models.InboundMessage, error) {
	out := models.InboundMessage{
		UID:        msg.Uid,
		ReceivedAt: msg.InternalDate,
	}

	if msg.Envelope != nil {
		out.Subject = msg.Envelope.Subject
		if id := utils.NormalizeMessageID(msg.Envelope.MessageId); id != "" {
			out.ID = id
		}
		if len(msg.Envelope.From) > 0 {
			out.Sender = utils.ExtractEmailAddress(msg.Envelope.From[0].Address())
		}
		if len(msg.Envelope.To) > 0 {
			out.Recipient = utils.ExtractEmailAddress(msg.Envelope.To[0].Address())
		}
	}
	if out.ID == "" {
		out.ID = strconv.FormatUint(uint64(msg.Uid), 10)
	}
	if out.Sender == "" {
		return out, errors.New("message has no sender address")
	}
	out.Domain = utils.ExtractDomain(out.Sender)

	literal := msg.GetBody(section)
	if literal == nil {
		return out, errors.New("message has no body section")
	}
	body, err := extractPlainText(literal)
	if err != nil {
		return out, err
	}
	out.Body = body

	return out, nil
}

func (m *imapMailbox) MarkRead(ctx context.Context, uid uint32) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPMailbox.MarkRead")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("uid", uid)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLiveLocked(ctx); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}

	if err := m.client.UidStore(seqSet, item, flags, nil); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to mark uid %d as seen", uid)
	}
	return nil
}

func (m *imapMailbox) HealthCheck(ctx context.Context) interfaces.CollaboratorHealth {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPMailbox.HealthCheck")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	health := interfaces.CollaboratorHealth{CheckedAt: utils.Now()}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLiveLocked(ctx); err != nil {
		tracing.TraceErr(span, err)
		health.Detail = err.Error()
		return health
	}

	health.Healthy = true
	health.Detail = fmt.Sprintf("connected to %s", m.cfg.Server)
	return health
}
