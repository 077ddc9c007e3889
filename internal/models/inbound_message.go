package models

import (
	"time"
)

// InboundMessage is the canonical shape of a message fetched from the
// mailbox. It is immutable once produced by the reader; the monitor consumes
// each message exactly once, keyed by ID.
type InboundMessage struct {
	// ID is the normalized Message-ID header, or the IMAP UID as a string
	// when the header is absent.
	ID         string
	UID        uint32
	Sender     string
	Recipient  string
	Subject    string
	Body       string
	Domain     string
	ReceivedAt time.Time
	// ParseError carries the reason a message could not be fully decoded.
	// The partial fields above are still populated as far as parsing got.
	ParseError string
}
