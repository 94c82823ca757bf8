package notification

import (
	"bytes"
	"fmt"
	"text/template"

	"storefront/internal/domain"
)

type Email struct {
	To      string
	Subject string
	Body    string
}

var templates = template.Must(template.New("notification").Funcs(template.FuncMap{
	"money": domain.FormatMoney,
}).Parse(`
{{- define "order_confirmation" -}}
Hi {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}},

Thanks for your order {{.OrderNumber}}.

{{range .Items}}  {{.Quantity}} x {{.Title}}  {{money .LineTotal $.Currency}}
{{end}}
Total: {{money .Total .Currency}} {{.Currency}}
{{- end}}

{{- define "order_update" -}}
Your order {{.OrderNumber}} is now {{.Status}}.
{{- end}}

{{- define "admin_notification" -}}
{{.Message}}
{{- end}}
`))

// Renderer turns task payloads into emails.
type Renderer struct {
	AdminEmail string
}

func (r Renderer) Render(task Task) (Email, error) {
	var (
		to, subject string
		data        any
	)
	switch p := task.Payload.(type) {
	case OrderConfirmation:
		to, subject, data = p.CustomerEmail, fmt.Sprintf("Order %s confirmed", p.OrderNumber), p
	case OrderUpdate:
		to, subject, data = p.CustomerEmail, fmt.Sprintf("Order %s update", p.OrderNumber), p
	case AdminNotification:
		to, subject, data = r.AdminEmail, p.Subject, p
	default:
		return Email{}, fmt.Errorf("notification: unsupported payload %T for task type %s", task.Payload, task.Type)
	}
	if to == "" {
		return Email{}, fmt.Errorf("notification: no recipient for task id=%s type=%s", task.ID, task.Type)
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, string(task.Type), data); err != nil {
		return Email{}, fmt.Errorf("notification: render %s: %w", task.Type, err)
	}
	return Email{To: to, Subject: subject, Body: body.String()}, nil
}
