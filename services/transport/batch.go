package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/tracing"
)

// maxBatchErrors caps the error detail kept per batch run; counts stay exact.
const maxBatchErrors = 10

func (t *mailTransport) SendBatch(ctx context.Context, req interfaces.BatchSendRequest) interfaces.BatchSendResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailTransport.SendBatch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("recipients.count", len(req.Recipients))

	result := interfaces.BatchSendResult{Total: len(req.Recipients)}
	if len(req.Recipients) == 0 {
		return result
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	var mu sync.Mutex
	for start := 0; start < len(req.Recipients); start += batchSize {
		if ctx.Err() != nil {
			// Cancellation between batches; already-dispatched sends finish.
			remaining := len(req.Recipients) - start
			result.Failed += remaining
			mu.Lock()
			if len(result.Errors) < maxBatchErrors {
				result.Errors = append(result.Errors, fmt.Sprintf("batch run cancelled with %d recipients remaining", remaining))
			}
			mu.Unlock()
			break
		}

		end := start + batchSize
		if end > len(req.Recipients) {
			end = len(req.Recipients)
		}

		var wg sync.WaitGroup
		for _, recipient := range req.Recipients[start:end] {
			wg.Add(1)
			go func(r interfaces.BatchRecipient) {
				defer wg.Done()

				sendResult := t.SendOne(ctx, interfaces.SendRequest{
					To:          r.Email,
					Subject:     personalize(req.Subject, r.Vars),
					Body:        personalize(req.Body, r.Vars),
					ContentType: req.ContentType,
					FromName:    req.FromName,
				})

				mu.Lock()
				defer mu.Unlock()
				if sendResult.Success {
					result.Sent++
				} else {
					result.Failed++
					if len(result.Errors) < maxBatchErrors {
						result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", r.Email, sendResult.Error))
					}
				}
			}(recipient)
		}
		wg.Wait()

		if req.OnBatchDone != nil {
			mu.Lock()
			sent, failed := result.Sent, result.Failed
			mu.Unlock()
			req.OnBatchDone(sent, failed)
		}

		if end < len(req.Recipients) && req.InterBatchDelay > 0 {
			select {
			case <-time.After(req.InterBatchDelay):
			case <-ctx.Done():
			}
		}
	}

	span.SetTag("sent", result.Sent)
	span.SetTag("failed", result.Failed)
	return result
}

// personalize substitutes {{key}} placeholders with recipient variables.
// Placeholders without a matching variable stay literal.
func personalize(text string, vars map[string]string) string {
	if len(vars) == 0 {
		return text
	}
	for key, value := range vars {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return text
}
