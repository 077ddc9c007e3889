package monitor

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/enum"
	"github.com/replystack/replystack/internal/models"
	"github.com/replystack/replystack/internal/tracing"
	"github.com/replystack/replystack/internal/utils"
)

// handleMessage runs one inbound message through the decision pipeline.
// Failures are audited and swallowed so one bad message never stalls the
// tick.
func (s *monitorService) handleMessage(ctx context.Context, msg models.InboundMessage) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MonitorService.handleMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("email.id", msg.ID)
	span.LogKV("sender", msg.Sender, "domain", msg.Domain)

	if s.processed.IsProcessed(ctx, msg.ID) {
		span.SetTag("skipped", "already_processed")
		return
	}
	// Marked up front so a crash mid-pipeline cannot double-reply within
	// this process; the audit log covers restarts.
	s.processed.MarkProcessed(ctx, msg.ID)

	s.mu.Lock()
	s.stats.EmailsProcessed++
	autoReply := s.autoReplyEnabled
	cooldown := s.cfg.CooldownWindow
	s.mu.Unlock()

	if msg.ParseError != "" {
		span.SetTag("parse_error", true)
		s.processingError(ctx, span, msg, errors.New(msg.ParseError))
		// Marked read so the broken message is not re-fetched every tick;
		// the audit record keeps what parsing recovered.
		if err := s.mailbox.MarkRead(ctx, msg.UID); err != nil {
			s.log.Warnf("failed to mark unparseable message %s read: %v", msg.ID, err)
		}
		return
	}

	s.appendRecord(ctx, &models.ReplyRecord{
		EmailID:   msg.ID,
		Sender:    msg.Sender,
		Recipient: msg.Recipient,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Action:    enum.ActionReceived,
	})
	s.publishEvent(ctx, "email.received", msg, nil)

	if !autoReply {
		s.skip(ctx, msg, "auto-reply disabled")
		return
	}
	if !s.gate.IsAllowed(ctx, msg.Domain) {
		span.SetTag("skipped", "domain_not_allowed")
		s.skip(ctx, msg, "domain not allowed: "+msg.Domain)
		return
	}

	recent, err := s.records.HasRecentAutoReply(ctx, msg.Sender, cooldown)
	if err != nil {
		s.processingError(ctx, span, msg, err)
		return
	}
	if recent {
		span.SetTag("skipped", "cooldown")
		s.skip(ctx, msg, "auto-reply cooldown active")
		return
	}

	s.reply(ctx, msg)
}

// reply generates and sends the auto-reply, auditing both outcomes.
func (s *monitorService) reply(ctx context.Context, msg models.InboundMessage) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MonitorService.reply")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("email.id", msg.ID)

	replyText, replyType, err := s.replies.GenerateReply(ctx, msg.Subject, msg.Body, msg.Sender, nil)
	if err != nil {
		s.processingError(ctx, span, msg, err)
		return
	}
	analysis := s.replies.Analyze(ctx, msg.Body)

	recordID := s.appendRecord(ctx, &models.ReplyRecord{
		EmailID:   msg.ID,
		Sender:    msg.Recipient,
		Recipient: msg.Sender,
		Subject:   utils.ReplySubject(msg.Subject),
		Body:      replyText,
		Action:    enum.ActionAutoReplied,
		ReplyType: replyType,
		Status:    enum.DeliveryStatusPending,
		Metadata: models.JSONMap{
			"sentiment": analysis.Sentiment.String(),
			"urgency":   analysis.Urgency.String(),
		},
	})

	result := s.transport.SendOne(ctx, interfaces.SendRequest{
		To:      msg.Sender,
		Subject: utils.ReplySubject(msg.Subject),
		Body:    replyText,
	})

	if !result.Success {
		tracing.TraceErr(span, ErrSendFailed)
		s.log.Warnf("auto-reply to %s failed: %s", msg.Sender, result.Error)
		if recordID != "" {
			if err := s.records.UpdateStatus(ctx, recordID, enum.DeliveryStatusFailed, result.Error); err != nil {
				s.log.Warnf("failed to update reply record %s: %v", recordID, err)
			}
		}
		s.appendRecord(ctx, &models.ReplyRecord{
			EmailID:      msg.ID,
			Sender:       msg.Recipient,
			Recipient:    msg.Sender,
			Subject:      utils.ReplySubject(msg.Subject),
			Action:       enum.ActionAutoReplyFailed,
			ReplyType:    replyType,
			Status:       enum.DeliveryStatusFailed,
			ErrorMessage: result.Error,
		})
		s.mu.Lock()
		s.stats.Errors++
		s.stats.LastError = result.Error
		s.mu.Unlock()
		s.publishEvent(ctx, "email.auto_reply_failed", msg, map[string]interface{}{"error": result.Error})
		return
	}

	if recordID != "" {
		if err := s.records.UpdateStatus(ctx, recordID, enum.DeliveryStatusSent, ""); err != nil {
			s.log.Warnf("failed to update reply record %s: %v", recordID, err)
		}
	}
	if err := s.mailbox.MarkRead(ctx, msg.UID); err != nil {
		s.log.Warnf("failed to mark message %s read: %v", msg.ID, err)
	}

	s.mu.Lock()
	s.stats.RepliesSent++
	s.mu.Unlock()
	s.publishEvent(ctx, "email.auto_replied", msg, map[string]interface{}{
		"messageId": result.MessageID,
		"replyType": replyType.String(),
	})
	s.log.Infof("auto-replied to %s for message %s", msg.Sender, msg.ID)
}

func (s *monitorService) skip(ctx context.Context, msg models.InboundMessage, reason string) {
	s.appendRecord(ctx, &models.ReplyRecord{
		EmailID:   msg.ID,
		Sender:    msg.Sender,
		Recipient: msg.Recipient,
		Subject:   msg.Subject,
		Action:    enum.ActionReplySkipped,
		Metadata:  models.JSONMap{"reason": reason},
	})
	s.publishEvent(ctx, "email.reply_skipped", msg, map[string]interface{}{"reason": reason})
}

func (s *monitorService) processingError(ctx context.Context, span opentracing.Span, msg models.InboundMessage, err error) {
	tracing.TraceErr(span, err)
	s.log.Errorf("processing message %s failed: %v", msg.ID, err)

	s.appendRecord(ctx, &models.ReplyRecord{
		EmailID:      msg.ID,
		Sender:       msg.Sender,
		Recipient:    msg.Recipient,
		Subject:      msg.Subject,
		Action:       enum.ActionProcessingError,
		ErrorMessage: err.Error(),
	})

	s.mu.Lock()
	s.stats.Errors++
	s.stats.LastError = err.Error()
	s.mu.Unlock()
}

// appendRecord writes one audit row. Audit failures are logged, never fatal.
func (s *monitorService) appendRecord(ctx context.Context, record *models.ReplyRecord) string {
	id, err := s.records.Append(ctx, record)
	if err != nil {
		s.log.Errorf("failed to append %s audit record for %s: %v", record.Action, record.EmailID, err)
		return ""
	}
	return id
}

func (s *monitorService) publishEvent(ctx context.Context, eventType string, msg models.InboundMessage, detail map[string]interface{}) {
	if s.events == nil {
		return
	}
	event := interfaces.MailEvent{
		EventType:  eventType,
		EmailID:    msg.ID,
		Sender:     msg.Sender,
		Recipient:  msg.Recipient,
		Subject:    msg.Subject,
		Detail:     detail,
		OccurredAt: utils.Now(),
	}
	if err := s.events.PublishMailEvent(ctx, event); err != nil {
		s.log.Debugf("event publish failed for %s: %v", eventType, err)
	}
}
