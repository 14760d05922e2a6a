package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/biovolt/marketplace-api/internal/domain"
	"github.com/biovolt/marketplace-api/internal/repositories"
)

func TestMarkPaidGuard(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewOrderRepository(db)

	paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE orders`).
		WithArgs("ord_1", paidAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	updated, err := repo.MarkPaid(context.Background(), "ord_1", paidAt)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !updated {
		t.Error("first mark paid should report an update")
	}

	// Redelivery: the payment_status guard suppresses the update.
	mock.ExpectExec(`UPDATE orders`).
		WithArgs("ord_1", paidAt).
		WillReturnResult(sqlmock.NewResult(0, 0))
	updated, err = repo.MarkPaid(context.Background(), "ord_1", paidAt)
	if err != nil {
		t.Fatalf("mark paid redelivery: %v", err)
	}
	if updated {
		t.Error("guarded mark paid should report no update")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMarkPaidSkipsCancelledOrders(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewOrderRepository(db)

	paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// The guard clause must exclude cancelled orders in SQL, not rely on a
	// prior read.
	mock.ExpectExec(`(?s)UPDATE orders.*payment_status <> 'paid' AND status <> 'cancelled'`).
		WithArgs("ord_3", paidAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.MarkPaid(context.Background(), "ord_3", paidAt)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if updated {
		t.Error("cancelled order must not be marked paid")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateStatusGuard(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewOrderRepository(db)

	mock.ExpectExec(`(?s)UPDATE orders.*WHERE id = \$1 AND status = \$2`).
		WithArgs("ord_4", domain.OrderStatusProcessing, domain.OrderStatusShipped).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.UpdateStatus(context.Background(), "ord_4", domain.OrderStatusProcessing, domain.OrderStatusShipped); err != nil {
		t.Fatalf("update status: %v", err)
	}

	// The stored status moved on, so the guarded update matches nothing.
	mock.ExpectExec(`(?s)UPDATE orders.*WHERE id = \$1 AND status = \$2`).
		WithArgs("ord_4", domain.OrderStatusProcessing, domain.OrderStatusShipped).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.UpdateStatus(context.Background(), "ord_4", domain.OrderStatusProcessing, domain.OrderStatusShipped)
	if !repositories.IsConflict(err) {
		t.Errorf("stale transition: error = %v, want conflict", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMarkCancelledOnlyPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewOrderRepository(db)

	cancelledAt := time.Now().UTC()

	mock.ExpectExec(`UPDATE orders`).
		WithArgs("ord_2", cancelledAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.MarkCancelled(context.Background(), "ord_2", cancelledAt)
	if !repositories.IsConflict(err) {
		t.Errorf("cancelling non-pending order: error = %v, want conflict", err)
	}
}
