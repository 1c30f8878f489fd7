package mailgw

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/tempmail/internal/credential"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/provider"
)

// maxAddressAttempts bounds how many fresh local parts are tried before
// giving up on finding one not issued before.
const maxAddressAttempts = 5

// Adapter implements provider.Provider for mail.gw.
type Adapter struct {
	client *provider.Client
	creds  credential.Store
	ledger *provider.AddressLedger
	logger *zap.Logger
}

// NewAdapter creates a mail.gw adapter. creds receives each account
// password so the mailbox can be opened in mail.gw's own web client; it
// may be nil.
func NewAdapter(
	client *provider.Client,
	creds credential.Store,
	logger *zap.Logger,
) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		client: client,
		creds:  creds,
		ledger: provider.NewAddressLedger(),
		logger: logger.Named("mailgw"),
	}
}

// Type returns the provider identifier for mail.gw.
func (a *Adapter) Type() provider.Type {
	return model.ProviderMailGW
}

// AllocateMailbox runs the three-step mail.gw handshake: pick the first
// domain, register an account with a random local part and password, then
// exchange those credentials for a bearer token.
func (a *Adapter) AllocateMailbox(ctx context.Context) (*model.Session, error) {
	var domains Collection[Domain]
	if err := a.client.Get(ctx, "/domains", nil, "", &domains); err != nil {
		return nil, a.allocErr("domains", err)
	}
	if len(domains.Members) == 0 {
		return nil, a.allocErr("domains", provider.ErrEmptyPool)
	}
	domain := domains.Members[0].Domain
	if domain == "" {
		return nil, a.allocErr("domains", errors.New("first domain has no name"))
	}

	address, err := a.freshAddress(domain)
	if err != nil {
		return nil, a.allocErr("address", err)
	}
	password := randomToken(12)
	creds := Credentials{Address: address, Password: password}

	var account Account
	if err := a.client.Post(ctx, "/accounts", creds, "", &account); err != nil {
		return nil, a.allocErr("account", err)
	}

	var token Token
	if err := a.client.Post(ctx, "/token", creds, "", &token); err != nil {
		return nil, a.allocErr("token", err)
	}
	if token.Token == "" {
		return nil, a.allocErr("token", errors.New("response carried no token"))
	}

	if a.creds != nil {
		if err := a.creds.Set(credential.MailGWPasswordKey(address), password); err != nil {
			a.logger.Warn("storing account password", zap.String("address", address), zap.Error(err))
		}
	}

	return &model.Session{
		Address:    address,
		Credential: token.Token,
		Provider:   model.ProviderMailGW,
	}, nil
}

// ListMessages returns the messages mail.gw holds for the session.
func (a *Adapter) ListMessages(
	ctx context.Context,
	session *model.Session,
) ([]model.MessageSummary, error) {
	if session == nil || session.Credential == "" {
		return nil, &provider.AuthError{Path: "/messages", Message: "session has no token"}
	}

	var page Collection[Message]
	if err := a.client.Get(ctx, "/messages", nil, session.Credential, &page); err != nil {
		return nil, fmt.Errorf("listing mail.gw messages: %w", err)
	}

	summaries := make([]model.MessageSummary, 0, len(page.Members))
	for _, m := range page.Members {
		summaries = append(summaries, model.MessageSummary{
			ID:        m.ID,
			Subject:   m.Subject,
			From:      m.From.Address,
			CreatedAt: parseTime(m.CreatedAt),
		})
	}
	return summaries, nil
}

// FetchMessage retrieves one message. When mail.gw returns neither a text
// nor an html body, the raw source is downloaded and its MIME parts used.
func (a *Adapter) FetchMessage(
	ctx context.Context,
	session *model.Session,
	id string,
) (*model.MessageDetail, error) {
	if session == nil || session.Credential == "" {
		return nil, &provider.AuthError{Path: "/messages/" + id, Message: "session has no token"}
	}

	var msg MessageDetail
	path := "/messages/" + url.PathEscape(id)
	if err := a.client.Get(ctx, path, nil, session.Credential, &msg); err != nil {
		return nil, fmt.Errorf("fetching mail.gw message %s: %w", id, err)
	}

	detail := &model.MessageDetail{
		ID:      msg.ID,
		Subject: msg.Subject,
		From:    msg.From.Address,
		Date:    firstNonEmpty(msg.CreatedAt, msg.UpdatedAt),
		Text:    msg.Text,
	}
	if len(msg.HTML) > 0 {
		detail.HTML = provider.SanitizeHTML(msg.HTML[0])
	}
	for _, att := range msg.Attachments {
		detail.Attachments = append(detail.Attachments, model.Attachment{
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Size:        att.Size,
		})
	}

	if detail.HTML == "" && detail.Text == "" && msg.DownloadURL != "" {
		a.fillFromSource(ctx, session, msg.DownloadURL, detail)
	}

	return detail, nil
}

// fillFromSource downloads the RFC 822 source of a message and copies its
// text and html parts into detail. Failures leave detail untouched.
func (a *Adapter) fillFromSource(
	ctx context.Context,
	session *model.Session,
	downloadURL string,
	detail *model.MessageDetail,
) {
	raw, err := a.client.GetRaw(ctx, relativePath(downloadURL), session.Credential, "message/rfc822")
	if err != nil {
		a.logger.Debug("downloading message source", zap.String("id", detail.ID), zap.Error(err))
		return
	}

	text, html := parseMIMEBody(raw)
	detail.Text = text
	detail.HTML = provider.SanitizeHTML(html)
}

func (a *Adapter) freshAddress(domain string) (string, error) {
	for i := 0; i < maxAddressAttempts; i++ {
		address := "tmp" + randomToken(7) + "@" + domain
		if a.ledger.Claim(address) {
			return address, nil
		}
	}
	return "", errors.New("could not generate an unused address")
}

func (a *Adapter) allocErr(stage string, err error) error {
	return &provider.AllocationError{
		Provider: model.ProviderMailGW,
		Stage:    stage,
		Err:      err,
	}
}

// randomToken returns n lowercase hex characters from a random UUID.
func randomToken(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

// relativePath strips scheme and host from an absolute download URL so
// the request goes through the configured client.
func relativePath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return raw
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
