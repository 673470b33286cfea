package orders

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/orderflow-sms/internal/domain"
)

var orderRowColumns = []string{
	"id", "status", "billing_first_name", "billing_last_name", "billing_email", "billing_phone",
	"total", "currency", "payment_method", "shipping_method", "created_at",
}

var createdAt = time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC)

func orderRow(rows *sqlmock.Rows, id int64, status domain.OrderStatus) *sqlmock.Rows {
	return rows.AddRow(id, string(status), "Asha", "Mushi", "asha@example.com", "0712345678",
		"20000.00", "TZS", "M-Pesa", "Flat rate", createdAt)
}

func newMockRepo(t *testing.T) (*OrderRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return NewOrderRepository(db), mock, db
}

func TestOrderRepository_Create(t *testing.T) {
	repo, mock, db := newMockRepo(t)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(100)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(sqlmock.AnyArg(), int64(100), "Kanga", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order := &domain.Order{
		Status:    domain.OrderStatusPending,
		Billing:   domain.Billing{FirstName: "Asha", Email: "asha@example.com"},
		Total:     decimal.NewFromInt(20000),
		Currency:  "TZS",
		Items:     []domain.LineItem{{Name: "Kanga", Quantity: 2, Price: decimal.NewFromInt(10000)}},
		CreatedAt: createdAt,
	}

	if err := repo.Create(context.Background(), order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != 100 {
		t.Errorf("expected id 100, got %d", order.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOrderRepository_GetByID(t *testing.T) {
	t.Run("loads order with items", func(t *testing.T) {
		repo, mock, db := newMockRepo(t)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status")).
			WithArgs(int64(100)).
			WillReturnRows(orderRow(sqlmock.NewRows(orderRowColumns), 100, domain.OrderStatusProcessing))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT name, quantity, price")).
			WithArgs(int64(100)).
			WillReturnRows(sqlmock.NewRows([]string{"name", "quantity", "price"}).
				AddRow("Kanga", 1, "15000.00").
				AddRow("Kikoi", 1, "5000.00"))

		order, err := repo.GetByID(context.Background(), 100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order == nil {
			t.Fatal("expected order")
		}
		if order.Status != domain.OrderStatusProcessing {
			t.Errorf("expected processing, got %s", order.Status)
		}
		if !order.Total.Equal(decimal.NewFromInt(20000)) {
			t.Errorf("expected total 20000, got %s", order.Total)
		}
		if len(order.Items) != 2 || order.Items[1].Name != "Kikoi" {
			t.Errorf("unexpected items: %+v", order.Items)
		}
	})

	t.Run("returns nil for missing order", func(t *testing.T) {
		repo, mock, db := newMockRepo(t)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status")).
			WillReturnRows(sqlmock.NewRows(orderRowColumns))

		order, err := repo.GetByID(context.Background(), 404)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order != nil {
			t.Errorf("expected nil order, got %+v", order)
		}
	})
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	t.Run("returns previous status", func(t *testing.T) {
		repo, mock, db := newMockRepo(t)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders")).
			WithArgs(int64(100)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status")).
			WithArgs("completed", int64(100)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status")).
			WillReturnRows(orderRow(sqlmock.NewRows(orderRowColumns), 100, domain.OrderStatusCompleted))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT name, quantity, price")).
			WillReturnRows(sqlmock.NewRows([]string{"name", "quantity", "price"}))

		order, old, err := repo.UpdateStatus(context.Background(), 100, domain.OrderStatusCompleted)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if old != domain.OrderStatusPending {
			t.Errorf("expected old status pending, got %s", old)
		}
		if order.Status != domain.OrderStatusCompleted {
			t.Errorf("expected completed, got %s", order.Status)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("returns nil for missing order", func(t *testing.T) {
		repo, mock, db := newMockRepo(t)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders")).
			WillReturnRows(sqlmock.NewRows([]string{"status"}))
		mock.ExpectRollback()

		order, _, err := repo.UpdateStatus(context.Background(), 404, domain.OrderStatusCompleted)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order != nil {
			t.Errorf("expected nil order, got %+v", order)
		}
	})
}

func TestOrderRepository_List(t *testing.T) {
	t.Run("filters by billing email with a limit", func(t *testing.T) {
		repo, mock, db := newMockRepo(t)
		defer func() { _ = db.Close() }()

		rows := sqlmock.NewRows(orderRowColumns)
		orderRow(rows, 101, domain.OrderStatusPending)
		orderRow(rows, 100, domain.OrderStatusCompleted)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE billing_email = $1 ORDER BY created_at DESC, id DESC LIMIT $2")).
			WithArgs("asha@example.com", 2).
			WillReturnRows(rows)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE order_id = ANY($1)")).
			WillReturnRows(sqlmock.NewRows([]string{"order_id", "name", "quantity", "price"}).
				AddRow(int64(100), "Kanga", 1, "20000.00"))

		orders, err := repo.List(context.Background(), ListFilter{BillingEmail: "asha@example.com", Limit: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(orders) != 2 {
			t.Fatalf("expected 2 orders, got %d", len(orders))
		}
		if orders[0].ID != 101 || len(orders[0].Items) != 0 {
			t.Errorf("unexpected first order: %+v", orders[0])
		}
		if len(orders[1].Items) != 1 {
			t.Errorf("expected one item on order 100, got %+v", orders[1].Items)
		}
	})

	t.Run("returns empty slice without items query", func(t *testing.T) {
		repo, mock, db := newMockRepo(t)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(regexp.QuoteMeta("FROM orders ORDER BY created_at DESC")).
			WillReturnRows(sqlmock.NewRows(orderRowColumns))

		orders, err := repo.List(context.Background(), ListFilter{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if orders == nil || len(orders) != 0 {
			t.Errorf("expected empty slice, got %v", orders)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}
