package interfaces

import (
	"golang.org/x/net/context"

	"github.com/replystack/replystack/internal/enum"
)

// ReplyGenerator produces reply text for an inbound message. Provider and
// network failures degrade to the template fallback; the caller always
// receives usable text unless even template construction fails.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, subject, body, sender string, replyContext map[string]string) (string, enum.ReplyType, error)
	Analyze(ctx context.Context, body string) Analysis
	HealthCheck(ctx context.Context) CollaboratorHealth
}

// AIProvider is one interchangeable text-generation backend.
type AIProvider interface {
	Name() enum.AIProvider
	Generate(ctx context.Context, prompt string) (string, error)
}

type Analysis struct {
	Sentiment  enum.Sentiment `json:"sentiment"`
	Urgency    enum.Urgency   `json:"urgency"`
	Confidence float64        `json:"confidence"`
	Keywords   []string       `json:"keywords"`
}
