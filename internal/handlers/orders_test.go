package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/biovolt/marketplace-api/internal/domain"
	"github.com/biovolt/marketplace-api/internal/platform/auth"
	"github.com/biovolt/marketplace-api/internal/services"
)

type stubOrderService struct {
	createIn  services.CreateOrderInput
	createOut domain.Order
	createErr error

	getOut domain.Order
	getErr error

	listOut []domain.Order

	cancelID  string
	cancelOut domain.Order
	cancelErr error

	statusID   string
	statusNext domain.OrderStatus
	statusOut  domain.Order
	statusErr  error
}

func (s *stubOrderService) CreateFromCart(_ context.Context, in services.CreateOrderInput) (domain.Order, error) {
	s.createIn = in
	return s.createOut, s.createErr
}

func (s *stubOrderService) Get(_ context.Context, _ string) (domain.Order, error) {
	return s.getOut, s.getErr
}

func (s *stubOrderService) ListForUser(_ context.Context, _ string) ([]domain.Order, error) {
	return s.listOut, nil
}

func (s *stubOrderService) Cancel(_ context.Context, orderID string) (domain.Order, error) {
	s.cancelID = orderID
	return s.cancelOut, s.cancelErr
}

func (s *stubOrderService) UpdateStatus(_ context.Context, orderID string, next domain.OrderStatus) (domain.Order, error) {
	s.statusID = orderID
	s.statusNext = next
	return s.statusOut, s.statusErr
}

type stubInvoiceService struct {
	out []byte
	err error
}

func (s *stubInvoiceService) Render(domain.Order) ([]byte, error) { return s.out, s.err }

func orderTestRouter(svc *stubOrderService, inv services.InvoiceService) chi.Router {
	if inv == nil {
		inv = &stubInvoiceService{out: []byte("%PDF-1.4 test")}
	}
	h := NewOrderHandler(svc, inv)
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	return r
}

func authed(r *http.Request, identity auth.Identity) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), identity))
}

var buyer = auth.Identity{UserID: "user-1", Email: "buyer@example.com", Role: auth.RoleCustomer}
var admin = auth.Identity{UserID: "admin-1", Email: "ops@example.com", Role: auth.RoleAdmin}

func ownedOrder() domain.Order {
	return domain.Order{
		ID:            "ord_1",
		UserID:        "user-1",
		Email:         "buyer@example.com",
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusUnpaid,
		TotalAmount:   50,
	}
}

func TestCreateOrder(t *testing.T) {
	svc := &stubOrderService{createOut: ownedOrder()}
	router := orderTestRouter(svc, nil)

	body := `{"shipping_address":{"line1":"1 Plant Rd","city":"Springfield","postal_code":"12345","country":"US"}}`
	req := authed(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)), buyer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.OrderID != "ord_1" {
		t.Errorf("order_id = %q", resp.OrderID)
	}
	if svc.createIn.UserID != "user-1" {
		t.Errorf("service called with user %q", svc.createIn.UserID)
	}
	if svc.createIn.Email != "buyer@example.com" {
		t.Errorf("email should default to the identity's, got %q", svc.createIn.Email)
	}
}

func TestCreateOrderAcceptsPaymentMethod(t *testing.T) {
	svc := &stubOrderService{createOut: ownedOrder()}
	router := orderTestRouter(svc, nil)

	body := `{
		"shipping_address":{"line1":"1 Plant Rd","city":"Springfield","postal_code":"12345","country":"US"},
		"payment_method":"cod"
	}`
	req := authed(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)), buyer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	svc := &stubOrderService{createErr: services.ErrCartEmpty}
	router := orderTestRouter(svc, nil)

	req := authed(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`)), buyer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "fail" {
		t.Errorf("envelope status = %v, want fail", resp["status"])
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	svc := &stubOrderService{createErr: services.ErrInsufficientStock}
	router := orderTestRouter(svc, nil)

	req := authed(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`)), buyer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestGetOrderOwnership(t *testing.T) {
	svc := &stubOrderService{getOut: ownedOrder()}
	router := orderTestRouter(svc, nil)

	t.Run("owner sees it", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodGet, "/orders/ord_1", nil), buyer)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("stranger gets 404", func(t *testing.T) {
		stranger := auth.Identity{UserID: "user-2", Role: auth.RoleCustomer}
		req := authed(httptest.NewRequest(http.MethodGet, "/orders/ord_1", nil), stranger)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("admin sees it", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodGet, "/orders/ord_1", nil), admin)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestCancelOrder(t *testing.T) {
	cancelled := ownedOrder()
	cancelled.Status = domain.OrderStatusCancelled
	svc := &stubOrderService{getOut: ownedOrder(), cancelOut: cancelled}
	router := orderTestRouter(svc, nil)

	req := authed(httptest.NewRequest(http.MethodPost, "/orders/ord_1/cancel", nil), buyer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if svc.cancelID != "ord_1" {
		t.Errorf("cancelled id = %q", svc.cancelID)
	}
	var resp orderResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "cancelled" {
		t.Errorf("response status = %q", resp.Status)
	}
}

func TestCancelOrderInvalidState(t *testing.T) {
	shipped := ownedOrder()
	shipped.Status = domain.OrderStatusShipped
	svc := &stubOrderService{getOut: shipped, cancelErr: services.ErrOrderInvalidState}
	router := orderTestRouter(svc, nil)

	req := authed(httptest.NewRequest(http.MethodPost, "/orders/ord_1/cancel", nil), buyer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestOrderInvoice(t *testing.T) {
	svc := &stubOrderService{getOut: ownedOrder()}
	router := orderTestRouter(svc, &stubInvoiceService{out: []byte("%PDF-1.4 fake")})

	req := authed(httptest.NewRequest(http.MethodGet, "/orders/ord_1/invoice", nil), buyer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Error("body is not a PDF")
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	updated := ownedOrder()
	updated.Status = domain.OrderStatusShipped
	svc := &stubOrderService{statusOut: updated}
	router := orderTestRouter(svc, nil)

	req := authed(httptest.NewRequest(http.MethodPatch, "/orders/ord_1/status",
		strings.NewReader(`{"status":"shipped"}`)), admin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if svc.statusNext != domain.OrderStatusShipped {
		t.Errorf("service called with %q", svc.statusNext)
	}
}

func TestUpdateOrderStatusUnknownValue(t *testing.T) {
	svc := &stubOrderService{}
	router := orderTestRouter(svc, nil)

	req := authed(httptest.NewRequest(http.MethodPatch, "/orders/ord_1/status",
		strings.NewReader(`{"status":"teleported"}`)), admin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
