package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempmail/internal/model"
)

func summaries(ids ...string) []model.MessageSummary {
	out := make([]model.MessageSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.MessageSummary{ID: id, Subject: "subject " + id, From: id + "@x.test"})
	}
	return out
}

func TestOrderIsNewestFirst(t *testing.T) {
	in := summaries("A", "B", "C")
	out := Order(in)

	assert.Equal(t, []string{"C", "B", "A"}, ids(out))
	assert.Equal(t, []string{"A", "B", "C"}, ids(in), "input untouched")
	assert.Empty(t, Order(nil))
}

func ids(msgs []model.MessageSummary) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestListHTMLEmptyShowsPlaceholder(t *testing.T) {
	out, err := ListHTML(nil)
	require.NoError(t, err)
	assert.Equal(t, `<p class="muted">No messages yet. Waiting for incoming mail…</p>`, out)
	assert.NotContains(t, out, "data-id")
}

func TestListHTMLRows(t *testing.T) {
	out, err := ListHTML(summaries("A", "B", "C"))
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(out, `class="viewBtn"`))
	a := strings.Index(out, `data-id="A"`)
	c := strings.Index(out, `data-id="C"`)
	require.True(t, a >= 0 && c >= 0)
	assert.Less(t, c, a, "newest row first")
	assert.NotContains(t, out, "No messages yet")
}

func TestListHTMLEscapes(t *testing.T) {
	out, err := ListHTML([]model.MessageSummary{{
		ID:      `1" onclick="x`,
		Subject: "<script>x</script>",
		From:    `"Eve" <eve@x.test>`,
	}})
	require.NoError(t, err)

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;x&lt;/script&gt;")
	assert.Contains(t, out, "&lt;eve@x.test&gt;")
	assert.NotContains(t, out, `onclick="x"`)
}

func TestListHTMLMissingSubject(t *testing.T) {
	out, err := ListHTML([]model.MessageSummary{{ID: "1"}})
	require.NoError(t, err)
	assert.Contains(t, out, NoSubject)
}

func TestBodyOfPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		detail *model.MessageDetail
		want   Body
	}{
		{"rich wins", &model.MessageDetail{HTML: "<b>x</b>", Text: "x"}, Body{BodyRich, "<b>x</b>"}},
		{"plain fallback", &model.MessageDetail{Text: "x"}, Body{BodyPlain, "x"}},
		{"neither", &model.MessageDetail{}, Body{BodyEmpty, NoContent}},
		{"nil", nil, Body{BodyEmpty, NoContent}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BodyOf(tt.detail))
		})
	}
}

func TestDetailHTML(t *testing.T) {
	rich, err := DetailHTML(&model.MessageDetail{
		Subject: "", From: "a@x.test", Date: "2024-05-01T10:00:00+00:00",
		HTML: "<p>hello</p>", Text: "ignored",
		Attachments: []model.Attachment{{Filename: "a.pdf", ContentType: "application/pdf", Size: 1536}},
	})
	require.NoError(t, err)
	assert.Contains(t, rich, "(no subject)")
	assert.Contains(t, rich, "<p>hello</p>")
	assert.NotContains(t, rich, "ignored")
	assert.Contains(t, rich, "a.pdf")
	assert.Contains(t, rich, "1.5 KB")

	plain, err := DetailHTML(&model.MessageDetail{Subject: "s", Text: "<b>not bold</b>"})
	require.NoError(t, err)
	assert.Contains(t, plain, "&lt;b&gt;not bold&lt;/b&gt;")

	empty, err := DetailHTML(&model.MessageDetail{Subject: "s"})
	require.NoError(t, err)
	assert.Contains(t, empty, NoContent)
	assert.Contains(t, empty, `<span id="msgDate"></span>`)
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", HumanSize(512))
	assert.Equal(t, "1.0 KB", HumanSize(1024))
	assert.Equal(t, "2.0 MB", HumanSize(2*1024*1024))
}

func TestTerminalLineStripsControls(t *testing.T) {
	assert.Equal(t, "[31mred hi", TerminalLine("\x1b[31mred\nhi"))
	assert.Equal(t, "a b", TerminalLine("a\tb"))
	assert.Equal(t, "x\ny", TerminalText("x\r\ny\x07"))
}

func TestHTMLToText(t *testing.T) {
	in := `<html><head><title>t</title><style>p{}</style></head><body>
		<h1>Welcome</h1>
		<p>Your   code is <b>1234</b>.</p>
		<script>alert(1)</script>
		<ul><li>one</li><li>two</li></ul>
		<p><a href="https://x.test/verify">Verify</a><br>bye</p>
	</body></html>`

	out := HTMLToText(in)
	assert.Contains(t, out, "Welcome")
	assert.Contains(t, out, "Your code is 1234.")
	assert.Contains(t, out, "• one\n• two")
	assert.Contains(t, out, "Verify (https://x.test/verify)\nbye")
	assert.NotContains(t, out, "alert")
	assert.NotContains(t, out, "p{}")
	assert.NotContains(t, out, "\n\n\n")
}
