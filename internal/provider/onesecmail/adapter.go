package onesecmail

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/provider"
)

// dateLayout is the timestamp format 1secmail uses in listings.
const dateLayout = "2006-01-02 15:04:05"

// maxAllocAttempts bounds how many addresses are requested before giving
// up on finding one not issued before.
const maxAllocAttempts = 3

// Adapter implements provider.Provider for 1secmail.
type Adapter struct {
	client *provider.Client
	ledger *provider.AddressLedger
}

// NewAdapter creates a 1secmail adapter.
func NewAdapter(client *provider.Client) *Adapter {
	return &Adapter{
		client: client,
		ledger: provider.NewAddressLedger(),
	}
}

// Type returns the provider identifier for 1secmail.
func (a *Adapter) Type() provider.Type {
	return model.ProviderOneSecMail
}

// AllocateMailbox asks 1secmail for one random address. No credential is
// involved.
func (a *Adapter) AllocateMailbox(ctx context.Context) (*model.Session, error) {
	query := url.Values{
		"action": {"genRandomMailbox"},
		"count":  {"1"},
	}

	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		var addresses []string
		if err := a.client.Get(ctx, "/", query, "", &addresses); err != nil {
			return nil, a.allocErr("generate", err)
		}
		if len(addresses) == 0 {
			return nil, a.allocErr("generate", provider.ErrEmptyPool)
		}

		address := strings.TrimSpace(addresses[0])
		if !strings.Contains(address, "@") {
			return nil, a.allocErr("generate", fmt.Errorf("malformed address %q", address))
		}
		if !a.ledger.Claim(address) {
			continue
		}

		return &model.Session{
			Address:  address,
			Provider: model.ProviderOneSecMail,
		}, nil
	}

	return nil, a.allocErr("generate", errors.New("provider kept returning used addresses"))
}

// ListMessages returns the messages 1secmail holds for the session.
func (a *Adapter) ListMessages(
	ctx context.Context,
	session *model.Session,
) ([]model.MessageSummary, error) {
	query, err := mailboxQuery("getMessages", session)
	if err != nil {
		return nil, err
	}

	var messages []Message
	if err := a.client.Get(ctx, "/", query, "", &messages); err != nil {
		return nil, fmt.Errorf("listing 1secmail messages: %w", err)
	}

	summaries := make([]model.MessageSummary, 0, len(messages))
	for _, m := range messages {
		summaries = append(summaries, model.MessageSummary{
			ID:        strconv.FormatInt(m.ID, 10),
			Subject:   m.Subject,
			From:      m.From,
			CreatedAt: parseDate(m.Date),
		})
	}
	return summaries, nil
}

// FetchMessage retrieves one message by id.
func (a *Adapter) FetchMessage(
	ctx context.Context,
	session *model.Session,
	id string,
) (*model.MessageDetail, error) {
	query, err := mailboxQuery("readMessage", session)
	if err != nil {
		return nil, err
	}
	query.Set("id", id)

	var msg MessageDetail
	if err := a.client.Get(ctx, "/", query, "", &msg); err != nil {
		return nil, fmt.Errorf("fetching 1secmail message %s: %w", id, err)
	}

	// body is only a fallback once the sanitized HTML and the text part
	// have both come up empty.
	html := provider.SanitizeHTML(msg.HTMLBody)
	text := msg.TextBody
	if text == "" && strings.TrimSpace(html) == "" {
		text = msg.Body
	}

	detail := &model.MessageDetail{
		ID:      strconv.FormatInt(msg.ID, 10),
		Subject: msg.Subject,
		From:    msg.From,
		Date:    msg.Date,
		HTML:    html,
		Text:    text,
	}
	for _, att := range msg.Attachments {
		detail.Attachments = append(detail.Attachments, model.Attachment{
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Size:        att.Size,
		})
	}
	return detail, nil
}

func (a *Adapter) allocErr(stage string, err error) error {
	return &provider.AllocationError{
		Provider: model.ProviderOneSecMail,
		Stage:    stage,
		Err:      err,
	}
}

// mailboxQuery builds the login/domain query shared by the read endpoints.
func mailboxQuery(action string, session *model.Session) (url.Values, error) {
	if session == nil || session.Domain() == "" {
		return nil, errors.New("session has no usable address")
	}
	return url.Values{
		"action": {action},
		"login":  {session.Login()},
		"domain": {session.Domain()},
	}, nil
}

func parseDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
