package onesecmail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/provider"
)

func newTestAdapter(t *testing.T, h http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAdapter(provider.NewClient(srv.URL + "/api/v1/"))
}

func TestAllocateMailbox(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/", r.URL.Path)
		assert.Equal(t, "genRandomMailbox", r.URL.Query().Get("action"))
		assert.Equal(t, "1", r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(`["abc123@1secmail.test"]`))
	})

	s, err := a.AllocateMailbox(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123@1secmail.test", s.Address)
	assert.Empty(t, s.Credential)
	assert.Equal(t, model.ProviderOneSecMail, s.Provider)
}

func TestAllocateMailboxSkipsReusedAddress(t *testing.T) {
	var mu sync.Mutex
	answers := []string{`["same@x.test"]`, `["same@x.test"]`, `["other@x.test"]`}
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = w.Write([]byte(answers[0]))
		answers = answers[1:]
	})

	first, err := a.AllocateMailbox(context.Background())
	require.NoError(t, err)
	second, err := a.AllocateMailbox(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "same@x.test", first.Address)
	assert.Equal(t, "other@x.test", second.Address)
}

func TestAllocateMailboxFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"empty": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":true}`))
		},
		"no at sign": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`["nobody"]`))
		},
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
	}

	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newTestAdapter(t, h).AllocateMailbox(context.Background())
			require.Error(t, err)
			assert.True(t, provider.IsAllocationError(err))
		})
	}
}

func TestListAndFetch(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "box", q.Get("login"))
		assert.Equal(t, "1secmail.test", q.Get("domain"))

		switch q.Get("action") {
		case "getMessages":
			_, _ = w.Write([]byte(`[
				{"id":7,"from":"a@x.test","subject":"old","date":"2024-05-01 10:00:00"},
				{"id":9,"from":"b@x.test","subject":"new","date":"2024-05-01 10:05:00"}]`))
		case "readMessage":
			assert.Equal(t, "9", q.Get("id"))
			_, _ = w.Write([]byte(`{"id":9,"from":"b@x.test","subject":"new",
				"date":"2024-05-01 10:05:00","attachments":[],
				"body":"<p>x</p>","textBody":"x","htmlBody":"<p onclick=\"y()\">x</p>"}`))
		}
	})
	s := &model.Session{Address: "box@1secmail.test"}

	msgs, err := a.ListMessages(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "7", msgs[0].ID)
	assert.Equal(t, 5, msgs[1].CreatedAt.Minute())

	d, err := a.FetchMessage(context.Background(), s, "9")
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", d.HTML)
	assert.Equal(t, "x", d.Text)
	assert.Equal(t, "2024-05-01 10:05:00", d.Date)
}

func TestFetchMissingMessage(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`Message not found`))
	})

	_, err := a.FetchMessage(context.Background(), &model.Session{Address: "box@x.test"}, "1")
	require.Error(t, err)
}

func TestFetchFallsBackToBodyWhenSanitizedHTMLIsEmpty(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":3,"from":"c@x.test","subject":"s",
			"date":"2024-05-01 10:05:00","attachments":[],
			"body":"fallback body","textBody":"","htmlBody":"<script>x()</script>"}`))
	})

	d, err := a.FetchMessage(context.Background(), &model.Session{Address: "box@x.test"}, "3")
	require.NoError(t, err)
	assert.Empty(t, d.HTML)
	assert.Equal(t, "fallback body", d.Text)
}
