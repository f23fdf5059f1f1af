package imap

import (
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/config"
)

// Connector pulls unread messages from the school office mailbox over IMAP.
// Most small schools run on a plain mail hosting, so this is the default
// intake path.
type Connector struct {
	cfg config.Config
}

func NewConnector(cfg config.Config) (*Connector, error) {
	for name, value := range map[string]string{
		"IMAP_HOST":     cfg.IMAPHost,
		"IMAP_USER":     cfg.IMAPUser,
		"IMAP_PASSWORD": cfg.IMAPPassword,
	} {
		if err := cfg.Require(name, value); err != nil {
			return nil, err
		}
	}
	return &Connector{cfg: cfg}, nil
}

func (c *Connector) FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error) {
	client, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	if err := client.Login(c.cfg.IMAPUser, c.cfg.IMAPPassword); err != nil {
		return nil, err
	}
	if _, err := client.Select(label, false); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := client.Search(criteria)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	// Newest submissions first when the backlog exceeds the batch.
	if len(ids) > max {
		ids = ids[len(ids)-max:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, len(ids))
	fetchDone := make(chan error, 1)
	go func() { fetchDone <- client.Fetch(seqset, items, messages) }()

	out := make([]internal.FetchedMailMessage, 0, len(ids))
	fetched := new(imap.SeqSet)
	for msg := range messages {
		if msg == nil {
			continue
		}
		fm, ok, err := buildMessage(msg, section)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, fm)
		fetched.AddNum(msg.SeqNum)
	}
	if err := <-fetchDone; err != nil {
		return nil, err
	}

	if c.cfg.IMAPMarkSeen && !fetched.Empty() {
		op := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := client.Store(fetched, op, []interface{}{imap.SeenFlag}, nil); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (c *Connector) dial() (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.cfg.IMAPHost, c.cfg.IMAPPort)
	if c.cfg.IMAPSecure {
		return imapclient.DialTLS(addr, &tls.Config{ServerName: c.cfg.IMAPHost})
	}
	return imapclient.Dial(addr)
}

func buildMessage(msg *imap.Message, section *imap.BodySectionName) (internal.FetchedMailMessage, bool, error) {
	body := msg.GetBody(section)
	if body == nil {
		return internal.FetchedMailMessage{}, false, nil
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return internal.FetchedMailMessage{}, false, err
	}

	fm := internal.FetchedMailMessage{
		Provider:   "imap",
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
		Raw:        raw,
	}
	if env := msg.Envelope; env != nil {
		fm.MessageID = env.MessageId
		fm.Subject = env.Subject
		fm.From = formatAddresses(env.From)
	}
	if fm.MessageID == "" {
		fm.MessageID = fmt.Sprintf("imap-%d", msg.Uid)
	}
	if !msg.InternalDate.IsZero() {
		fm.ReceivedAt = msg.InternalDate.UTC().Format(time.RFC3339)
	}
	return fm, true, nil
}

func formatAddresses(addrs []*imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		email := strings.Trim(a.MailboxName+"@"+a.HostName, "@")
		if a.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.PersonalName, email))
		} else {
			parts = append(parts, email)
		}
	}
	return strings.Join(parts, ", ")
}
