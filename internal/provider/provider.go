// Package provider defines the contract every disposable-mail upstream
// adapter implements, plus the HTTP plumbing and error types they share.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nhle/tempmail/internal/model"
)

// Type identifies a provider implementation.
type Type = model.ProviderType

// Provider is the boundary over one external disposable-email API.
type Provider interface {
	// Type returns the provider identifier.
	Type() Type

	// AllocateMailbox requests a fresh address. It never returns an address
	// it has already handed out. Every failure is an *AllocationError.
	AllocateMailbox(ctx context.Context) (*model.Session, error)

	// ListMessages returns the summaries the provider currently holds for
	// the session, in provider order.
	ListMessages(
		ctx context.Context,
		session *model.Session,
	) ([]model.MessageSummary, error)

	// FetchMessage retrieves a single message. Rich bodies are returned
	// already sanitized.
	FetchMessage(
		ctx context.Context,
		session *model.Session,
		id string,
	) (*model.MessageDetail, error)
}

// AllocationError reports that a mailbox could not be allocated. It is the
// only provider error surfaced to the user.
type AllocationError struct {
	Provider Type
	Stage    string
	Err      error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocating %s mailbox (%s): %v", e.Provider, e.Stage, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// IsAllocationError reports whether err (or any error in its chain) is an
// AllocationError.
func IsAllocationError(err error) bool {
	var allocErr *AllocationError
	return errors.As(err, &allocErr)
}

// AuthError indicates that the provider rejected the session credential.
// It is returned by the HTTP client when a 401 response is received.
type AuthError struct {
	Path    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error on %s: %s", e.Path, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d on %s %s: %s", e.Code, e.Method, e.Path, e.Body)
}

// ErrEmptyPool means the provider returned no domains or addresses.
var ErrEmptyPool = errors.New("provider returned no available addresses")

// AddressLedger remembers every address handed out in this process so an
// adapter can refuse to return one twice.
type AddressLedger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewAddressLedger returns an empty ledger.
func NewAddressLedger() *AddressLedger {
	return &AddressLedger{seen: make(map[string]struct{})}
}

// Claim records address and reports whether it was new.
func (l *AddressLedger) Claim(address string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[address]; ok {
		return false
	}
	l.seen[address] = struct{}{}
	return true
}
