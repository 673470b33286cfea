package render

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/orderflow-sms/internal/domain"
)

func testOrder() *domain.Order {
	return &domain.Order{
		ID:     100,
		Status: domain.OrderStatusProcessing,
		Billing: domain.Billing{
			FirstName: "Asha",
			LastName:  "Mushi",
			Email:     "asha@example.com",
			Phone:     "0712345678",
		},
		Total:    decimal.NewFromInt(20000),
		Currency: "TZS",
		Items: []domain.LineItem{
			{Name: "Kanga", Quantity: 1, Price: decimal.NewFromInt(15000)},
			{Name: "Kikoi", Quantity: 1, Price: decimal.NewFromInt(5000)},
		},
		PaymentMethod:  "M-Pesa",
		ShippingMethod: "Flat rate",
		CreatedAt:      time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC),
	}
}

func TestRenderer_Render(t *testing.T) {
	t.Run("renders the confirmation scenario", func(t *testing.T) {
		r := NewRenderer()

		got := r.Render("Dear {{first_name}}, order #{{order_id}} total {{price}}", testOrder())

		want := "Dear Asha, order #100 total TZS 20,000.00"
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("replaces every supported token", func(t *testing.T) {
		r := NewRenderer()

		got := r.Render(strings.Join(Tokens, "|"), testOrder())

		if strings.Contains(got, "{{") {
			t.Errorf("expected no placeholders left, got %q", got)
		}
		want := "Asha|Mushi|Asha Mushi|TZS 20,000.00|Kanga, Kikoi|100|March 5, 2024|M-Pesa|Flat rate"
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("keeps unknown tokens verbatim", func(t *testing.T) {
		r := NewRenderer()

		got := r.Render("Hi {{first_name}}, code {{coupon_code}}", testOrder())

		if got != "Hi Asha, code {{coupon_code}}" {
			t.Errorf("unexpected output: %q", got)
		}
	})

	t.Run("replaces repeated tokens", func(t *testing.T) {
		r := NewRenderer()

		got := r.Render("{{order_id}}-{{order_id}}", testOrder())

		if got != "100-100" {
			t.Errorf("unexpected output: %q", got)
		}
	})

	t.Run("is deterministic for the same snapshot", func(t *testing.T) {
		r := NewRenderer()
		order := testOrder()
		tmpl := strings.Join(Tokens, " ")

		first := r.Render(tmpl, order)
		for i := 0; i < 5; i++ {
			if got := r.Render(tmpl, order); got != first {
				t.Fatalf("render %d differs: %q vs %q", i, got, first)
			}
		}
	})

	t.Run("does not expand tokens found in order values", func(t *testing.T) {
		r := NewRenderer()
		order := testOrder()
		order.Billing.FirstName = "{{order_id}}"

		got := r.Render("{{first_name}}", order)

		if got != "{{order_id}}" {
			t.Errorf("unexpected output: %q", got)
		}
	})

	t.Run("honours date layout and location", func(t *testing.T) {
		loc := time.FixedZone("EAT", 3*60*60)
		r := NewRenderer(WithDateLayout("02/01/2006 15:04"), WithLocation(loc))

		got := r.Render("{{order_date}}", testOrder())

		if got != "05/03/2024 13:30" {
			t.Errorf("unexpected date: %q", got)
		}
	})

	t.Run("strips markup from formatted prices", func(t *testing.T) {
		formatter := NewCurrencyFormatter(`<span class="amount"><bdi>%[2]s&nbsp;<span class="symbol">%[1]s</span></bdi></span>`, 0)
		r := NewRenderer(WithPriceFormatter(formatter))

		got := r.Render("{{price}}", testOrder())

		if got != "20,000 TZS" {
			t.Errorf("unexpected price: %q", got)
		}
	})

	t.Run("handles orders without items", func(t *testing.T) {
		r := NewRenderer()
		order := testOrder()
		order.Items = nil

		got := r.Render("[{{product_name}}]", order)

		if got != "[]" {
			t.Errorf("unexpected output: %q", got)
		}
	})
}

func TestCurrencyFormatter_FormatPrice(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		decimals int
		want     string
	}{
		{name: "groups thousands", amount: decimal.NewFromInt(1234567), decimals: 2, want: "TZS&nbsp;1,234,567.00"},
		{name: "rounds to decimals", amount: decimal.RequireFromString("19.999"), decimals: 2, want: "TZS&nbsp;20.00"},
		{name: "no decimals", amount: decimal.RequireFromString("2500.4"), decimals: 0, want: "TZS&nbsp;2,500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewCurrencyFormatter("", tt.decimals)
			if got := f.FormatPrice(tt.amount, "TZS"); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "TZS&nbsp;20,000.00", want: "TZS 20,000.00"},
		{in: "<span>TZS</span> 20", want: "TZS 20"},
		{in: "&amp; more", want: "& more"},
		{in: "plain", want: "plain"},
	}

	for _, tt := range tests {
		if got := plainText(tt.in); got != tt.want {
			t.Errorf("plainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
