package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/config"
)

// Connector pulls report submissions from a Gmail mailbox through the REST
// API with a long-lived refresh token.
type Connector struct {
	service *gmail.Service
}

func NewConnector(cfg config.Config) (*Connector, error) {
	for name, value := range map[string]string{
		"GMAIL_CLIENT_ID":     cfg.GmailClientID,
		"GMAIL_CLIENT_SECRET": cfg.GmailClientSecret,
		"GMAIL_REFRESH_TOKEN": cfg.GmailRefreshToken,
	} {
		if err := cfg.Require(name, value); err != nil {
			return nil, err
		}
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}
	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})

	svc, err := gmail.NewService(context.Background(), option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}
	return &Connector{service: svc}, nil
}

func (c *Connector) FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error) {
	listResp, err := c.service.Users.Messages.List("me").LabelIds(label).MaxResults(int64(max)).Do()
	if err != nil {
		return nil, err
	}

	out := make([]internal.FetchedMailMessage, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		if ref.Id == "" {
			continue
		}
		fm, ok, err := c.fetchOne(ref.Id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, fm)
		}
	}
	return out, nil
}

// fetchOne needs two calls per message: Format("raw") carries no parsed
// headers and Format("metadata") carries no body.
func (c *Connector) fetchOne(id string) (internal.FetchedMailMessage, bool, error) {
	rawResp, err := c.service.Users.Messages.Get("me", id).Format("raw").Do()
	if err != nil {
		return internal.FetchedMailMessage{}, false, err
	}
	if rawResp.Raw == "" {
		return internal.FetchedMailMessage{}, false, nil
	}
	raw, err := decodeBase64URL(rawResp.Raw)
	if err != nil {
		return internal.FetchedMailMessage{}, false, err
	}

	metaResp, err := c.service.Users.Messages.Get("me", id).Format("metadata").
		MetadataHeaders("Subject", "From", "Date", "Message-ID").Do()
	if err != nil {
		return internal.FetchedMailMessage{}, false, err
	}
	headers := map[string]string{}
	if metaResp.Payload != nil {
		for _, h := range metaResp.Payload.Headers {
			headers[strings.ToLower(h.Name)] = h.Value
		}
	}

	fm := internal.FetchedMailMessage{
		Provider:   "gmail",
		MessageID:  headers["message-id"],
		Subject:    headers["subject"],
		From:       headers["from"],
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
		Raw:        raw,
	}
	if fm.MessageID == "" {
		fm.MessageID = id
	}
	if t, err := parseMailDate(headers["date"]); err == nil {
		fm.ReceivedAt = t.UTC().Format(time.RFC3339)
	}
	return fm, true, nil
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}

func parseMailDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date header")
	}
	layouts := []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC850, time.ANSIC}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %q", value)
}
