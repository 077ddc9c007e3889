package reply

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/replystack/replystack/internal/utils"
)

// templateReply produces a deterministic canned reply without any AI
// involvement. Category is picked from subject and body keywords, so the
// same message always yields the same reply.
func (s *replyService) templateReply(subject, body, sender string) string {
	companyName := s.mailCfg.FromName
	content := strings.ToLower(subject + " " + body)

	switch {
	case containsAny(content, []string{"support", "help", "problem", "issue", "error", "bug"}):
		return fmt.Sprintf(
			"Dear %s User,\n\n"+
				"Thank you for contacting our support team. We have received your message regarding \"%s\" and our team will review it shortly.\n\n"+
				"Your ticket reference is %s. Please include it in any follow-up correspondence.\n\n"+
				"We aim to respond to all support requests within 24 hours.\n\n"+
				"Best regards,\n%s Support Team",
			companyName, subject, ticketReference(subject, sender), companyName)
	case containsAny(content, []string{"price", "pricing", "quote", "purchase", "buy", "sales", "demo"}):
		return fmt.Sprintf(
			"Dear %s User,\n\n"+
				"Thank you for your interest in our products and services. We have received your inquiry regarding \"%s\".\n\n"+
				"A member of our sales team will reach out to you shortly with the information you requested.\n\n"+
				"In the meantime, feel free to browse our website for more details.\n\n"+
				"Best regards,\n%s Sales Team",
			companyName, subject, companyName)
	default:
		return fmt.Sprintf(
			"Dear %s User,\n\n"+
				"Thank you for your email regarding \"%s\". We have received your message and will get back to you as soon as possible.\n\n"+
				"If your matter is urgent, please contact us directly through our support channels.\n\n"+
				"Best regards,\n%s Team",
			companyName, subject, companyName)
	}
}

// ticketReference derives a stable ticket number from the subject and
// sender. The subject is normalized first, so "Re:" and "Fwd:" follow-ups
// in the same thread reference one ticket.
func ticketReference(subject, sender string) string {
	h := fnv.New32a()
	h.Write([]byte(utils.NormalizeEmailSubject(subject) + sender))
	return fmt.Sprintf("TK-%05d", h.Sum32()%100000)
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
