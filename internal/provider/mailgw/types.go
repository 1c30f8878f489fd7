package mailgw

import (
	"encoding/json"
	"strings"
)

// Collection is the hydra envelope mail.gw wraps every list response in.
type Collection[T any] struct {
	Members    []T `json:"hydra:member"`
	TotalItems int `json:"hydra:totalItems"`
}

// Domain is one entry of GET /domains.
type Domain struct {
	ID       string `json:"id"`
	Domain   string `json:"domain"`
	IsActive bool   `json:"isActive"`
}

// Credentials is the body of POST /accounts and POST /token.
type Credentials struct {
	Address  string `json:"address"`
	Password string `json:"password"`
}

// Account is the response from POST /accounts.
type Account struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// Token is the response from POST /token.
type Token struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// Participant is a sender or recipient. mail.gw sends an object, but a
// bare string is accepted too.
type Participant struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// UnmarshalJSON accepts either {"address": ..., "name": ...} or "addr".
func (p *Participant) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		return json.Unmarshal(data, &p.Address)
	}

	type plain Participant
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Participant(v)
	return nil
}

// Message is one entry of GET /messages.
type Message struct {
	ID             string      `json:"id"`
	From           Participant `json:"from"`
	Subject        string      `json:"subject"`
	Intro          string      `json:"intro"`
	Seen           bool        `json:"seen"`
	HasAttachments bool        `json:"hasAttachments"`
	CreatedAt      string      `json:"createdAt"`
	UpdatedAt      string      `json:"updatedAt"`
}

// MessageDetail is the response from GET /messages/{id}.
type MessageDetail struct {
	ID          string        `json:"id"`
	From        Participant   `json:"from"`
	To          []Participant `json:"to"`
	Subject     string        `json:"subject"`
	Text        string        `json:"text"`
	HTML        []string      `json:"html"`
	CreatedAt   string        `json:"createdAt"`
	UpdatedAt   string        `json:"updatedAt"`
	Attachments []Attachment  `json:"attachments"`
	DownloadURL string        `json:"downloadUrl"`
}

// Attachment is attachment metadata inside a MessageDetail.
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"downloadUrl"`
}
