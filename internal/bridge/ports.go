package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/pkg/auth"
	"github.com/orderdeskhq/orderdesk-backend/pkg/config"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/types"
)

// TransitionPort moves an order to ready. Both implementations route through
// the same state machine validation; the HTTP port exists as a fallback when
// the worker has no direct store access.
type TransitionPort interface {
	// MarkReady reports alreadyReady=true when the order was in ready
	// before the call, which callers treat as a no-op success.
	MarkReady(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (alreadyReady bool, err error)
}

// DirectPort drives the transition through the orders service against the
// store.
type DirectPort struct {
	orders orders.Service
}

// NewDirectPort wraps the orders service as a transition port.
func NewDirectPort(svc orders.Service) (*DirectPort, error) {
	if svc == nil {
		return nil, errors.New("orders service required")
	}
	return &DirectPort{orders: svc}, nil
}

func (p *DirectPort) MarkReady(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (bool, error) {
	_, err := p.orders.Transition(ctx, orders.TransitionInput{
		OrderID: orderID,
		Target:  enums.OrderStatusReady,
		Actor:   actor,
	})
	if err == nil {
		return false, nil
	}
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
		order, getErr := p.orders.Get(ctx, orderID)
		if getErr == nil && order.Status == enums.OrderStatusReady {
			return true, nil
		}
	}
	return false, err
}

// TokenSource produces the bearer credential for a fallback transition
// request. The API authenticates staff JWTs, so the source mints one for the
// acting staff member rather than reusing any platform token.
type TokenSource func(ctx context.Context, actor orders.Actor) (string, error)

// ServiceTokenSource mints short-lived access tokens signed with the API's
// own JWT config, attributed to the acting staff member.
func ServiceTokenSource(jwtCfg config.JWTConfig) TokenSource {
	return func(_ context.Context, actor orders.Actor) (string, error) {
		return auth.MintAccessToken(jwtCfg, time.Now().UTC(), auth.AccessTokenPayload{
			UserID: actor.UserID,
			Role:   actor.Role,
		})
	}
}

// HTTPPort replays the transition through the service API with a bearer
// credential.
type HTTPPort struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

// NewHTTPPort builds the fallback transition port. baseURL points at the API
// root.
func NewHTTPPort(baseURL string, tokens TokenSource, timeout time.Duration) (*HTTPPort, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("transition api url required")
	}
	if tokens == nil {
		return nil, errors.New("transition token source required")
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &HTTPPort{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (p *HTTPPort) MarkReady(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (bool, error) {
	payload, err := json.Marshal(transitionRequest{Status: string(enums.OrderStatusReady)})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode transition request")
	}

	url := fmt.Sprintf("%s/v1/orders/%s/transition", p.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build transition request")
	}
	token, err := p.tokens(ctx, actor)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint transition token")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.http.Do(req)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition api unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return false, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Code == "" {
		return false, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("transition api returned %d", resp.StatusCode))
	}

	code := pkgerrors.Code(envelope.Error.Code)
	if code == pkgerrors.CodeStateConflict && conflictCurrentStatus(envelope.Error.Details) == enums.OrderStatusReady {
		return true, nil
	}
	return false, pkgerrors.New(code, envelope.Error.Message)
}

// conflictCurrentStatus digs the order's current status out of a structured
// conflict response.
func conflictCurrentStatus(details any) enums.OrderStatus {
	fields, ok := details.(map[string]any)
	if !ok {
		return ""
	}
	current, ok := fields["current"].(string)
	if !ok {
		return ""
	}
	return enums.OrderStatus(current)
}
