package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderdeskhq/orderdesk-backend/api/middleware"
	internalorders "github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	"github.com/orderdeskhq/orderdesk-backend/pkg/pagination"
)

type stubOrdersService struct {
	create     func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error)
	get        func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	list       func(ctx context.Context, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error)
	transition func(ctx context.Context, input internalorders.TransitionInput) (*internalorders.TransitionResult, error)
	cancel     func(ctx context.Context, orderID uuid.UUID, reason string, actor internalorders.Actor) (*internalorders.TransitionResult, error)
}

func (s *stubOrdersService) Create(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	if s.create != nil {
		return s.create(ctx, input)
	}
	return &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending}, nil
}

func (s *stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.get != nil {
		return s.get(ctx, orderID)
	}
	return &models.Order{ID: orderID}, nil
}

func (s *stubOrdersService) List(ctx context.Context, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
	if s.list != nil {
		return s.list(ctx, params, filters)
	}
	return &internalorders.OrderList{}, nil
}

func (s *stubOrdersService) Transition(ctx context.Context, input internalorders.TransitionInput) (*internalorders.TransitionResult, error) {
	if s.transition != nil {
		return s.transition(ctx, input)
	}
	return &internalorders.TransitionResult{Order: &models.Order{ID: input.OrderID, Status: input.Target}}, nil
}

func (s *stubOrdersService) Cancel(ctx context.Context, orderID uuid.UUID, reason string, actor internalorders.Actor) (*internalorders.TransitionResult, error) {
	if s.cancel != nil {
		return s.cancel(ctx, orderID, reason, actor)
	}
	return &internalorders.TransitionResult{Order: &models.Order{ID: orderID, Status: enums.OrderStatusCancelled}}, nil
}

func withActor(req *http.Request, userID uuid.UUID, role enums.StaffRole) *http.Request {
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	return req.WithContext(middleware.WithRole(req.Context(), string(role)))
}

func withOrderParam(req *http.Request, orderID string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("orderId", orderID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func TestCreateSuccess(t *testing.T) {
	actorID := uuid.New()
	var captured internalorders.CreateOrderInput
	svc := &stubOrdersService{
		create: func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
			captured = input
			return &models.Order{ID: uuid.New(), OrderNumber: 1042, Status: enums.OrderStatusPending}, nil
		},
	}

	body := `{
		"customer_name": "Dana Reyes",
		"warehouse_name": "Central",
		"delivery_address": {"line1": "5 Dock Rd", "city": "Porto", "state": "PT", "postal_code": "4000", "country": "PT"},
		"items": [
			{"name": "Crate of apples", "qty": 2, "unit_price": "14.50"},
			{"name": "Olive oil", "qty": 1, "unit_price": "9.99"}
		]
	}`
	handler := Create(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withActor(req, actorID, enums.StaffRoleManager)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
	if captured.Actor.UserID != actorID {
		t.Fatalf("actor not propagated")
	}
	if len(captured.Items) != 2 {
		t.Fatalf("expected 2 line items got %d", len(captured.Items))
	}
	if !captured.Items[0].UnitPrice.Equal(decimal.RequireFromString("14.50")) {
		t.Fatalf("unexpected unit price %s", captured.Items[0].UnitPrice)
	}

	var envelope struct {
		Data models.Order `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderNumber != 1042 {
		t.Fatalf("unexpected order number %d", envelope.Data.OrderNumber)
	}
}

func TestCreateRejectsBadUnitPrice(t *testing.T) {
	handler := Create(&stubOrdersService{}, nil)
	body := `{
		"customer_name": "Dana Reyes",
		"warehouse_name": "Central",
		"delivery_address": {"line1": "5 Dock Rd", "city": "Porto", "state": "PT", "postal_code": "4000", "country": "PT"},
		"items": [{"name": "Crate", "qty": 1, "unit_price": "a lot"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withActor(req, uuid.New(), enums.StaffRoleManager)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateRequiresActor(t *testing.T) {
	handler := Create(&stubOrdersService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestListParsesFilters(t *testing.T) {
	customerID := uuid.New()
	svc := &stubOrdersService{
		list: func(ctx context.Context, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
			if params.Limit != 5 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			if filters.Status == nil || *filters.Status != enums.OrderStatusDelivering {
				t.Fatalf("status filter not parsed")
			}
			if filters.CustomerID == nil || *filters.CustomerID != customerID {
				t.Fatalf("customer filter not parsed")
			}
			if filters.DateFrom == nil || !filters.DateFrom.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
				t.Fatalf("date_from not parsed: %v", filters.DateFrom)
			}
			return &internalorders.OrderList{Orders: []internalorders.OrderSummary{{OrderNumber: 7}}}, nil
		},
	}

	handler := List(svc, nil)
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/orders?limit=5&status=delivering&customer_id="+customerID.String()+"&date_from=2026-08-01T00:00:00Z", nil)
	req = withActor(req, uuid.New(), enums.StaffRoleManager)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data internalorders.OrderList `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 1 || envelope.Data.Orders[0].OrderNumber != 7 {
		t.Fatalf("unexpected orders in response")
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	handler := List(&stubOrdersService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=teleported", nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDetailSuccess(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		get: func(ctx context.Context, incoming uuid.UUID) (*models.Order, error) {
			if incoming != orderID {
				t.Fatalf("unexpected order id %s", incoming)
			}
			return &models.Order{ID: orderID, OrderNumber: 9, Status: enums.OrderStatusReady}, nil
		},
	}

	handler := Detail(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	req = withOrderParam(req, orderID.String())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data models.Order `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderNumber != 9 {
		t.Fatalf("unexpected order in response")
	}
}

func TestDetailRejectsMalformedID(t *testing.T) {
	handler := Detail(&stubOrdersService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/not-a-uuid", nil)
	req = withOrderParam(req, "not-a-uuid")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTransitionSuccess(t *testing.T) {
	orderID := uuid.New()
	actorID := uuid.New()
	called := false
	svc := &stubOrdersService{
		transition: func(ctx context.Context, input internalorders.TransitionInput) (*internalorders.TransitionResult, error) {
			if input.OrderID != orderID {
				t.Fatalf("unexpected order id %s", input.OrderID)
			}
			if input.Target != enums.OrderStatusCollecting {
				t.Fatalf("unexpected target %s", input.Target)
			}
			if input.Actor.UserID != actorID || input.Actor.Role != enums.StaffRoleCollector {
				t.Fatalf("actor not propagated")
			}
			called = true
			return &internalorders.TransitionResult{
				Order: &models.Order{ID: orderID, Status: input.Target},
				From:  enums.OrderStatusAssignedToCollector,
			}, nil
		},
	}

	handler := Transition(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/transition",
		strings.NewReader(`{"status":"collecting"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withOrderParam(req, orderID.String())
	req = withActor(req, actorID, enums.StaffRoleCollector)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatalf("service not invoked")
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	orderID := uuid.New()
	handler := Transition(&stubOrdersService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/transition",
		strings.NewReader(`{"status":"teleported"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withOrderParam(req, orderID.String())
	req = withActor(req, uuid.New(), enums.StaffRoleCollector)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCancelRequiresReason(t *testing.T) {
	orderID := uuid.New()
	handler := Cancel(&stubOrdersService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel",
		strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req = withOrderParam(req, orderID.String())
	req = withActor(req, uuid.New(), enums.StaffRoleManager)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCancelSuccess(t *testing.T) {
	orderID := uuid.New()
	actorID := uuid.New()
	called := false
	svc := &stubOrdersService{
		cancel: func(ctx context.Context, incoming uuid.UUID, reason string, actor internalorders.Actor) (*internalorders.TransitionResult, error) {
			if incoming != orderID {
				t.Fatalf("unexpected order id %s", incoming)
			}
			if reason != "customer unreachable" {
				t.Fatalf("unexpected reason %q", reason)
			}
			if actor.UserID != actorID {
				t.Fatalf("actor not propagated")
			}
			called = true
			return &internalorders.TransitionResult{
				Order: &models.Order{ID: orderID, Status: enums.OrderStatusCancelled},
				From:  enums.OrderStatusPending,
			}, nil
		},
	}

	handler := Cancel(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel",
		strings.NewReader(`{"reason":"customer unreachable"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withOrderParam(req, orderID.String())
	req = withActor(req, actorID, enums.StaffRoleManager)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatalf("service not invoked")
	}
}
