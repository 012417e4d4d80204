package email

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/nikolayk812/billingflow/internal/domain"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

type templateData struct {
	CustomerName string
	OrderID      string
	Amount       string
	CheckoutURL  string
}

// Renderer selects and renders the template matching an order/kind pair.
// Each template file defines a "subject" and a "body" block.
type Renderer struct {
	templates map[domain.NotificationKind]*template.Template
	payURL    string
}

// NewRenderer parses one template per notification kind. payURL, when set,
// is the base of the customer-facing payment page and ends up in the
// invoice and reminder bodies.
func NewRenderer(payURL string) (*Renderer, error) {
	templates := make(map[domain.NotificationKind]*template.Template, len(domain.NotificationKinds()))

	for _, kind := range domain.NotificationKinds() {
		tmpl, err := template.ParseFS(templatesFS, fmt.Sprintf("templates/%s.tmpl", kind))
		if err != nil {
			return nil, fmt.Errorf("template.ParseFS[%s]: %w", kind, err)
		}
		templates[kind] = tmpl
	}

	return &Renderer{templates: templates, payURL: payURL}, nil
}

func (r *Renderer) Render(order domain.Order, kind domain.NotificationKind) (subject, body string, err error) {
	tmpl, ok := r.templates[kind]
	if !ok {
		return "", "", fmt.Errorf("no template for kind[%s]: %w", kind, domain.ErrInvalidState)
	}

	data := templateData{
		CustomerName: order.CustomerName,
		OrderID:      order.ID.String(),
		Amount:       order.Amount.String(),
	}

	if r.payURL != "" {
		data.CheckoutURL = strings.TrimSuffix(r.payURL, "/") + "/" + order.ID.String()
	}

	var subjectBuf strings.Builder
	if err := tmpl.ExecuteTemplate(&subjectBuf, "subject", data); err != nil {
		return "", "", fmt.Errorf("tmpl.ExecuteTemplate[subject]: %w", err)
	}

	var bodyBuf strings.Builder
	if err := tmpl.ExecuteTemplate(&bodyBuf, "body", data); err != nil {
		return "", "", fmt.Errorf("tmpl.ExecuteTemplate[body]: %w", err)
	}

	return subjectBuf.String(), strings.TrimLeft(bodyBuf.String(), "\n"), nil
}
