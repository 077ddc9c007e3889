package utils

import (
	"regexp"
	"strings"
)

var subjectPrefixRegex = regexp.MustCompile(`(?i)^(Re|Fwd|Fw)(\[\d+\])?:\s*`)

// NormalizeEmailSubject removes prefixes like Re:, Fwd:, etc. from a subject
func NormalizeEmailSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	for subjectPrefixRegex.MatchString(subject) {
		subject = subjectPrefixRegex.ReplaceAllString(subject, "")
		subject = strings.TrimSpace(subject)
	}
	return subject
}

// ReplySubject prefixes a subject with "Re: " unless it is already a reply.
func ReplySubject(subject string) string {
	if strings.HasPrefix(subject, "Re:") {
		return subject
	}
	return "Re: " + subject
}

func NormalizeMessageID(messageID string) string {
	messageID = strings.TrimSpace(messageID)
	messageID = strings.TrimPrefix(messageID, "<")
	messageID = strings.TrimSuffix(messageID, ">")
	return messageID
}

// ExtractEmailAddress strips an optional display-name wrapper:
// "Name <addr@x>" -> "addr@x". The result is lower-cased and trimmed.
func ExtractEmailAddress(raw string) string {
	addr := strings.TrimSpace(raw)
	if open := strings.LastIndex(addr, "<"); open >= 0 {
		if close := strings.LastIndex(addr, ">"); close > open {
			addr = addr[open+1 : close]
		}
	}
	return strings.ToLower(strings.TrimSpace(addr))
}

// ExtractDomain returns the lower-cased text after the last "@" of an email
// address, with any display-name wrapper stripped first. Subdomains are kept.
func ExtractDomain(raw string) string {
	addr := ExtractEmailAddress(raw)
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return addr[at+1:]
}
