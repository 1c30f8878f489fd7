package fake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/provider"
)

// ErrNotFound is returned by FetchMessage for unknown ids.
var ErrNotFound = errors.New("message not found")

// Provider hands out sequential addresses and serves whatever messages a
// test puts in its mailboxes.
type Provider struct {
	// AllocErr, when set, makes the next allocations fail.
	AllocErr error

	// AllocHook, when set, runs before every allocation. It may block.
	AllocHook func(ctx context.Context)

	// ListErr, when set, makes ListMessages fail.
	ListErr error

	// ListHook, when set, runs at the start of every ListMessages call,
	// before the mailbox is read. It may block.
	ListHook func(ctx context.Context, session *model.Session)

	mailboxes map[string][]model.MessageSummary
	details   map[string]model.MessageDetail
	seq       int
	allocs    int
	lists     int
	fetches   int
	mu        sync.Mutex
}

// NewProvider returns an empty fake provider.
func NewProvider() *Provider {
	return &Provider{
		mailboxes: make(map[string][]model.MessageSummary),
		details:   make(map[string]model.MessageDetail),
	}
}

// Type reports the fake as a mail.gw-style provider.
func (p *Provider) Type() provider.Type {
	return model.ProviderMailGW
}

func (p *Provider) AllocateMailbox(ctx context.Context) (*model.Session, error) {
	p.mu.Lock()
	hook := p.AllocHook
	p.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.allocs++
	if p.AllocErr != nil {
		return nil, &provider.AllocationError{
			Provider: model.ProviderMailGW,
			Stage:    "fake",
			Err:      p.AllocErr,
		}
	}

	p.seq++
	return &model.Session{
		Address:    fmt.Sprintf("box%d@fake.test", p.seq),
		Credential: fmt.Sprintf("token-%d", p.seq),
		Provider:   model.ProviderMailGW,
	}, nil
}

func (p *Provider) ListMessages(
	ctx context.Context,
	session *model.Session,
) ([]model.MessageSummary, error) {
	p.mu.Lock()
	p.lists++
	hook := p.ListHook
	p.mu.Unlock()

	if hook != nil {
		hook(ctx, session)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ListErr != nil {
		return nil, p.ListErr
	}
	msgs := p.mailboxes[session.Address]
	out := make([]model.MessageSummary, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (p *Provider) FetchMessage(
	_ context.Context,
	session *model.Session,
	id string,
) (*model.MessageDetail, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.fetches++
	d, ok := p.details[session.Address+"/"+id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

// Deliver appends a message to a mailbox, oldest first.
func (p *Provider) Deliver(address string, summary model.MessageSummary, detail model.MessageDetail) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.mailboxes[address] = append(p.mailboxes[address], summary)
	p.details[address+"/"+summary.ID] = detail
}

// SetListErr changes ListErr under the provider's lock.
func (p *Provider) SetListErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ListErr = err
}

// SetAllocErr changes AllocErr under the provider's lock.
func (p *Provider) SetAllocErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AllocErr = err
}

// SetAllocHook changes AllocHook under the provider's lock.
func (p *Provider) SetAllocHook(hook func(ctx context.Context)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AllocHook = hook
}

// SetListHook changes ListHook under the provider's lock.
func (p *Provider) SetListHook(hook func(ctx context.Context, session *model.Session)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ListHook = hook
}

// Allocations returns how many times AllocateMailbox was called.
func (p *Provider) Allocations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocs
}

// Lists returns how many times ListMessages was called.
func (p *Provider) Lists() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lists
}

// Fetches returns how many times FetchMessage was called.
func (p *Provider) Fetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches
}
