package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/pkg/auth"
	"github.com/orderdeskhq/orderdesk-backend/pkg/config"
	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/pagination"
	"github.com/orderdeskhq/orderdesk-backend/pkg/types"
)

type stubOrdersService struct {
	order         *models.Order
	transitionErr error
	transitions   int
}

func (s *stubOrdersService) Create(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.order, nil
}

func (s *stubOrdersService) List(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	return nil, nil
}

func (s *stubOrdersService) Transition(ctx context.Context, input orders.TransitionInput) (*orders.TransitionResult, error) {
	s.transitions++
	if s.transitionErr != nil {
		return nil, s.transitionErr
	}
	return &orders.TransitionResult{}, nil
}

func (s *stubOrdersService) Cancel(ctx context.Context, orderID uuid.UUID, reason string, actor orders.Actor) (*orders.TransitionResult, error) {
	return nil, nil
}

var _ orders.Service = (*stubOrdersService)(nil)

func testDirectActor() orders.Actor {
	return orders.Actor{UserID: uuid.New(), Role: enums.StaffRoleCollector}
}

func staticTokenSource(token string) TokenSource {
	return func(context.Context, orders.Actor) (string, error) {
		return token, nil
	}
}

func TestDirectPort_Success(t *testing.T) {
	svc := &stubOrdersService{}
	port, err := NewDirectPort(svc)
	require.NoError(t, err)

	alreadyReady, err := port.MarkReady(context.Background(), uuid.New(), testDirectActor())
	require.NoError(t, err)
	assert.False(t, alreadyReady)
	assert.Equal(t, 1, svc.transitions)
}

func TestDirectPort_AlreadyReady(t *testing.T) {
	svc := &stubOrdersService{
		order:         &models.Order{ID: uuid.New(), Status: enums.OrderStatusReady},
		transitionErr: pkgerrors.New(pkgerrors.CodeStateConflict, "order already ready"),
	}
	port, err := NewDirectPort(svc)
	require.NoError(t, err)

	alreadyReady, err := port.MarkReady(context.Background(), svc.order.ID, testDirectActor())
	require.NoError(t, err)
	assert.True(t, alreadyReady)
}

func TestDirectPort_ConflictOnOtherStatusPropagates(t *testing.T) {
	svc := &stubOrdersService{
		order:         &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending},
		transitionErr: pkgerrors.New(pkgerrors.CodeStateConflict, "cannot skip ahead"),
	}
	port, err := NewDirectPort(svc)
	require.NoError(t, err)

	_, err = port.MarkReady(context.Background(), svc.order.ID, testDirectActor())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestHTTPPort_Success(t *testing.T) {
	orderID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders/"+orderID.String()+"/transition", r.URL.Path)
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ready", body["status"])

		_ = json.NewEncoder(w).Encode(types.SuccessEnvelope{Data: map[string]any{"id": orderID}})
	}))
	defer server.Close()

	port, err := NewHTTPPort(server.URL, staticTokenSource("svc-token"), 2*time.Second)
	require.NoError(t, err)

	alreadyReady, err := port.MarkReady(context.Background(), orderID, testDirectActor())
	require.NoError(t, err)
	assert.False(t, alreadyReady)
}

func TestHTTPPort_AlreadyReadyConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(types.ErrorEnvelope{Error: types.APIError{
			Code:    string(pkgerrors.CodeStateConflict),
			Message: "state transition disallowed",
			Details: map[string]any{"current": "ready"},
		}})
	}))
	defer server.Close()

	port, err := NewHTTPPort(server.URL, staticTokenSource("svc-token"), 2*time.Second)
	require.NoError(t, err)

	alreadyReady, err := port.MarkReady(context.Background(), uuid.New(), testDirectActor())
	require.NoError(t, err)
	assert.True(t, alreadyReady)
}

func TestServiceTokenSourceMintsVerifiableActorToken(t *testing.T) {
	jwtCfg := config.JWTConfig{Secret: "test-secret", Issuer: "orderdesk", ExpirationMinutes: 5}
	actor := testDirectActor()

	token, err := ServiceTokenSource(jwtCfg)(context.Background(), actor)
	require.NoError(t, err)

	claims, err := auth.ParseAccessToken(jwtCfg, token)
	require.NoError(t, err)
	assert.Equal(t, actor.UserID, claims.UserID)
	assert.Equal(t, actor.Role, claims.Role)
}

func TestHTTPPortSendsMintedTokenPerRequest(t *testing.T) {
	jwtCfg := config.JWTConfig{Secret: "test-secret", Issuer: "orderdesk", ExpirationMinutes: 5}
	actor := testDirectActor()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims, err := auth.ParseAccessToken(jwtCfg, raw)
		require.NoError(t, err)
		assert.Equal(t, actor.UserID, claims.UserID)
		_ = json.NewEncoder(w).Encode(types.SuccessEnvelope{Data: map[string]any{}})
	}))
	defer server.Close()

	port, err := NewHTTPPort(server.URL, ServiceTokenSource(jwtCfg), 2*time.Second)
	require.NoError(t, err)

	_, err = port.MarkReady(context.Background(), uuid.New(), actor)
	require.NoError(t, err)
}

func TestHTTPPort_StructuredErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(types.ErrorEnvelope{Error: types.APIError{
			Code:    string(pkgerrors.CodeTerminalState),
			Message: "order is in a terminal state",
		}})
	}))
	defer server.Close()

	port, err := NewHTTPPort(server.URL, staticTokenSource("svc-token"), 2*time.Second)
	require.NoError(t, err)

	_, err = port.MarkReady(context.Background(), uuid.New(), testDirectActor())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeTerminalState, pkgerrors.As(err).Code())
}
