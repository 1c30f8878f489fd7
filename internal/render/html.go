package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/nhle/tempmail/internal/model"
)

var listTemplate = template.Must(template.New("list").Parse(
	`{{if not .}}<p class="muted">` + EmptyListPlaceholder + `</p>{{else}}{{range .}}<div class="message">
  <div class="left">
    <div class="sub">{{.Subject}}</div>
    <div class="muted">From: {{.From}}</div>
  </div>
  <div>
    <button data-id="{{.ID}}" class="viewBtn">View</button>
  </div>
</div>
{{end}}{{end}}`))

var detailTemplate = template.Must(template.New("detail").Parse(
	`<h3 id="msgSubject">{{.Subject}}</h3>
<div class="muted">From: <span id="msgFrom">{{.From}}</span></div>
<div class="muted">Date: <span id="msgDate">{{.Date}}</span></div>
<div id="msgBody" class="body">{{.Body}}</div>
{{if .Attachments}}<ul class="attachments">{{range .Attachments}}
  <li>{{.Filename}} <span class="muted">{{.ContentType}}, {{.Size}}</span></li>{{end}}
</ul>{{end}}`))

type listRow struct {
	ID      string
	Subject string
	From    string
}

type detailView struct {
	Subject     string
	From        string
	Date        string
	Body        any
	Attachments []attachmentView
}

type attachmentView struct {
	Filename    string
	ContentType string
	Size        string
}

// ListHTML renders the message list fragment: newest first, one row with a
// View button per message, or the placeholder paragraph when empty. All
// provider text is escaped.
func ListHTML(msgs []model.MessageSummary) (string, error) {
	ordered := Order(msgs)
	rows := make([]listRow, 0, len(ordered))
	for _, m := range ordered {
		rows = append(rows, listRow{ID: m.ID, Subject: Subject(m.Subject), From: m.From})
	}

	var buf bytes.Buffer
	if err := listTemplate.Execute(&buf, rows); err != nil {
		return "", fmt.Errorf("rendering message list: %w", err)
	}
	return buf.String(), nil
}

// DetailHTML renders the message pane. The rich body is inserted as is
// because adapters sanitize it; plain text and headers are escaped.
func DetailHTML(d *model.MessageDetail) (string, error) {
	view := detailView{Body: NoContent}
	if d != nil {
		view.Subject = Subject(d.Subject)
		view.From = d.From
		view.Date = d.Date
		for _, a := range d.Attachments {
			view.Attachments = append(view.Attachments, attachmentView{
				Filename:    a.Filename,
				ContentType: a.ContentType,
				Size:        HumanSize(a.Size),
			})
		}
	} else {
		view.Subject = NoSubject
	}

	body := BodyOf(d)
	switch body.Kind {
	case BodyRich:
		view.Body = template.HTML(body.Content)
	default:
		view.Body = body.Content
	}

	var buf bytes.Buffer
	if err := detailTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("rendering message detail: %w", err)
	}
	return buf.String(), nil
}

// HumanSize formats a byte count, e.g. 1536 as "1.5 KB".
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
