// Package render fills notification templates with order data.
package render

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/joao-fontenele/orderflow-sms/internal/domain"
)

const DefaultDateLayout = "January 2, 2006"

// Tokens lists the placeholders a template may use.
var Tokens = []string{
	"{{first_name}}",
	"{{last_name}}",
	"{{full_name}}",
	"{{price}}",
	"{{product_name}}",
	"{{order_id}}",
	"{{order_date}}",
	"{{payment_method}}",
	"{{shipping_method}}",
}

type Renderer struct {
	prices     PriceFormatter
	dateLayout string
	location   *time.Location
}

type Option func(*Renderer)

func WithPriceFormatter(f PriceFormatter) Option {
	return func(r *Renderer) {
		r.prices = f
	}
}

func WithDateLayout(layout string) Option {
	return func(r *Renderer) {
		if layout != "" {
			r.dateLayout = layout
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		if loc != nil {
			r.location = loc
		}
	}
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		prices:     NewCurrencyFormatter(DefaultPriceFormat, 2),
		dateLayout: DefaultDateLayout,
		location:   time.UTC,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Render replaces every known token in tmpl with the matching order value.
// Unknown tokens are left as they are.
func (r *Renderer) Render(tmpl string, order *domain.Order) string {
	return strings.NewReplacer(r.replacements(order)...).Replace(tmpl)
}

func (r *Renderer) replacements(order *domain.Order) []string {
	names := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		names = append(names, item.Name)
	}

	return []string{
		"{{first_name}}", order.Billing.FirstName,
		"{{last_name}}", order.Billing.LastName,
		"{{full_name}}", order.Billing.FirstName + " " + order.Billing.LastName,
		"{{price}}", plainText(r.prices.FormatPrice(order.Total, order.Currency)),
		"{{product_name}}", strings.Join(names, ", "),
		"{{order_id}}", strconv.FormatInt(order.ID, 10),
		"{{order_date}}", r.formatDate(order.CreatedAt),
		"{{payment_method}}", order.PaymentMethod,
		"{{shipping_method}}", order.ShippingMethod,
	}
}

func (r *Renderer) formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(r.location).Format(r.dateLayout)
}

// plainText drops markup, decodes entities and turns non-breaking spaces
// into regular ones.
func plainText(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))

	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			text := strings.ReplaceAll(b.String(), "\u00a0", " ")
			text = strings.ReplaceAll(text, "&nbsp;", " ")
			return strings.TrimSpace(text)
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
