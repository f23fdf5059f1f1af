package connectors

import "github.com/BeliaevDmitry/VSOKO-sub001/internal"

// MailConnector is the minimal intake surface: one batch of raw messages
// from one mailbox label.
type MailConnector interface {
	FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error)
}
