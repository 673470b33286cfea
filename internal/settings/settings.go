// Package settings holds the administrator-managed notification
// configuration: templates per order status, admin recipients and gateway
// credentials.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/joao-fontenele/orderflow-sms/internal/domain"
)

const (
	DefaultSenderID      = "INFO"
	DefaultAdminTemplate = "Hey Admin! A new order has been received. Order ID: #{{order_id}}, Total: {{price}}"
)

var ErrUnknownStatus = errors.New("unknown order status")

var validate = validator.New()

type Settings struct {
	Templates                 map[domain.OrderStatus]string `json:"templates" validate:"dive,max=1600"`
	Enabled                   map[domain.OrderStatus]bool   `json:"enabled"`
	AdminNumbers              string                        `json:"admin_numbers" validate:"max=1000"`
	AdminNotificationsEnabled bool                          `json:"admin_notifications_enabled"`
	AdminTemplate             string                        `json:"admin_template" validate:"max=1600"`
	APIToken                  string                        `json:"api_token" validate:"max=255"`
	SenderID                  string                        `json:"sender_id" validate:"max=11"`
}

func DefaultTemplates() map[domain.OrderStatus]string {
	return map[domain.OrderStatus]string{
		domain.OrderStatusPending:    "Dear {{first_name}}, your order (#{{order_id}}) is pending. Total: {{price}}.",
		domain.OrderStatusProcessing: "Dear {{first_name}}, your order (#{{order_id}}) is being processed. Total: {{price}}.",
		domain.OrderStatusCancelled:  "Dear {{first_name}}, your order (#{{order_id}}) has been cancelled. Total: {{price}}.",
		domain.OrderStatusOnHold:     "Dear {{first_name}}, your order (#{{order_id}}) is on hold. Total: {{price}}.",
		domain.OrderStatusCompleted:  "Dear {{first_name}}, your order (#{{order_id}}) has been completed. Total: {{price}}.",
		domain.OrderStatusRefunded:   "Dear {{first_name}}, your order (#{{order_id}}) has been refunded. Total: {{price}}.",
	}
}

func Default() Settings {
	s := Settings{}
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills statuses that have no entry at all. A status whose
// template was explicitly cleared keeps its empty template.
func (s *Settings) ApplyDefaults() {
	if s.Templates == nil {
		s.Templates = make(map[domain.OrderStatus]string)
	}
	if s.Enabled == nil {
		s.Enabled = make(map[domain.OrderStatus]bool)
	}

	defaults := DefaultTemplates()
	for _, status := range domain.Statuses() {
		if _, ok := s.Templates[status]; !ok {
			s.Templates[status] = defaults[status]
		}
		if _, ok := s.Enabled[status]; !ok {
			s.Enabled[status] = true
		}
	}

	if s.AdminTemplate == "" {
		s.AdminTemplate = DefaultAdminTemplate
	}
	if s.SenderID == "" {
		s.SenderID = DefaultSenderID
	}
}

func (s Settings) Validate() error {
	for status := range s.Templates {
		if !status.Valid() {
			return fmt.Errorf("templates: %w: %q", ErrUnknownStatus, status)
		}
	}
	for status := range s.Enabled {
		if !status.Valid() {
			return fmt.Errorf("enabled: %w: %q", ErrUnknownStatus, status)
		}
	}

	return validate.Struct(s)
}

// TemplateFor returns the template configured for status and whether
// notifications for that status are switched on.
func (s Settings) TemplateFor(status domain.OrderStatus) (string, bool) {
	return s.Templates[status], s.Enabled[status]
}

// AdminRecipients splits the comma separated admin list, trimming entries
// and dropping empty ones.
func (s Settings) AdminRecipients() []string {
	var numbers []string
	for _, part := range strings.Split(s.AdminNumbers, ",") {
		if number := strings.TrimSpace(part); number != "" {
			numbers = append(numbers, number)
		}
	}
	return numbers
}
