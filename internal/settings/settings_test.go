package settings

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/joao-fontenele/orderflow-sms/internal/domain"
)

func TestSettings_ApplyDefaults(t *testing.T) {
	t.Run("fills every status", func(t *testing.T) {
		s := Default()

		for _, status := range domain.Statuses() {
			tmpl, enabled := s.TemplateFor(status)
			if tmpl == "" {
				t.Errorf("expected default template for %s", status)
			}
			if !enabled {
				t.Errorf("expected %s enabled by default", status)
			}
		}
		if s.SenderID != DefaultSenderID {
			t.Errorf("expected sender id %s, got %s", DefaultSenderID, s.SenderID)
		}
		if s.AdminTemplate != DefaultAdminTemplate {
			t.Errorf("unexpected admin template %q", s.AdminTemplate)
		}
		if s.AdminNotificationsEnabled {
			t.Error("expected admin notifications off by default")
		}
	})

	t.Run("keeps an explicitly cleared template", func(t *testing.T) {
		s := Settings{
			Templates: map[domain.OrderStatus]string{domain.OrderStatusRefunded: ""},
			Enabled:   map[domain.OrderStatus]bool{domain.OrderStatusCancelled: false},
		}

		s.ApplyDefaults()

		if tmpl, _ := s.TemplateFor(domain.OrderStatusRefunded); tmpl != "" {
			t.Errorf("expected refunded template to stay empty, got %q", tmpl)
		}
		if _, enabled := s.TemplateFor(domain.OrderStatusCancelled); enabled {
			t.Error("expected cancelled to stay disabled")
		}
		if tmpl, _ := s.TemplateFor(domain.OrderStatusPending); tmpl == "" {
			t.Error("expected pending to get the default template")
		}
	})
}

func TestSettings_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		if err := Default().Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects long sender ids", func(t *testing.T) {
		s := Default()
		s.SenderID = "ABCDEFGHIJKL"

		if err := s.Validate(); err == nil {
			t.Error("expected error for 12 character sender id")
		}
	})

	t.Run("rejects oversized templates", func(t *testing.T) {
		s := Default()
		s.Templates[domain.OrderStatusPending] = strings.Repeat("x", 1601)

		if err := s.Validate(); err == nil {
			t.Error("expected error for oversized template")
		}
	})

	t.Run("rejects unknown statuses", func(t *testing.T) {
		s := Default()
		s.Templates["shipped"] = "Shipped!"

		if err := s.Validate(); !errors.Is(err, ErrUnknownStatus) {
			t.Errorf("expected ErrUnknownStatus, got %v", err)
		}
	})
}

func TestSettings_AdminRecipients(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "two numbers", raw: "0712111111, 0712222222", want: []string{"0712111111", "0712222222"}},
		{name: "drops blanks", raw: " ,0712111111,, ,", want: []string{"0712111111"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Settings{AdminNumbers: tt.raw}
			if got := s.AdminRecipients(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
