package orders

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderdeskhq/orderdesk-backend/api/middleware"
	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	"github.com/orderdeskhq/orderdesk-backend/api/validators"
	internalorders "github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/pagination"
	"github.com/orderdeskhq/orderdesk-backend/pkg/types"
)

type createLineItemRequest struct {
	ProductID *string `json:"product_id,omitempty" validate:"omitempty,uuid4"`
	Name      string  `json:"name" validate:"required"`
	Qty       int     `json:"qty" validate:"required,min=1"`
	UnitPrice string  `json:"unit_price" validate:"required"`
}

type createOrderRequest struct {
	CustomerID      *string                 `json:"customer_id,omitempty" validate:"omitempty,uuid4"`
	CustomerName    string                  `json:"customer_name" validate:"required"`
	CustomerPhone   *string                 `json:"customer_phone,omitempty"`
	DeliveryAddress types.Address           `json:"delivery_address" validate:"required"`
	WarehouseName   string                  `json:"warehouse_name" validate:"required"`
	Notes           *string                 `json:"notes,omitempty"`
	Items           []createLineItemRequest `json:"items" validate:"required,min=1,dive"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason,omitempty"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Create persists a new order in pending status.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateOrderInput{
			CustomerName:    payload.CustomerName,
			CustomerPhone:   payload.CustomerPhone,
			DeliveryAddress: payload.DeliveryAddress,
			WarehouseName:   payload.WarehouseName,
			Notes:           payload.Notes,
			Actor:           actor,
		}
		if payload.CustomerID != nil {
			customerID, err := uuid.Parse(*payload.CustomerID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
				return
			}
			input.CustomerID = &customerID
		}

		for _, item := range payload.Items {
			price, err := decimal.NewFromString(strings.TrimSpace(item.UnitPrice))
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid unit_price for item %q", item.Name)))
				return
			}
			lineInput := internalorders.CreateLineItemInput{
				Name:      item.Name,
				Qty:       item.Qty,
				UnitPrice: price,
			}
			if item.ProductID != nil {
				productID, err := uuid.Parse(*item.ProductID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
					return
				}
				lineInput.ProductID = &productID
			}
			input.Items = append(input.Items, lineInput)
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// List returns a cursor page of order summaries.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters, err := buildListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns the full order including line items.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Transition moves the order to the requested status.
func Transition(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		result, err := svc.Transition(r.Context(), internalorders.TransitionInput{
			OrderID: orderID,
			Target:  target,
			Reason:  payload.Reason,
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result.Order)
	}
}

// Cancel moves the order to cancelled with a mandatory reason.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Cancel(r.Context(), orderID, payload.Reason, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result.Order)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	actorID, err := uuid.Parse(userID)
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	role, err := enums.ParseStaffRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "unknown actor role")
	}
	return internalorders.Actor{UserID: actorID, Role: role}, nil
}

func buildListFilters(r *http.Request) (internalorders.ListFilters, error) {
	var filters internalorders.ListFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid status %q", raw))
		}
		filters.Status = &status
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("customer_id")); raw != "" {
		customerID, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer_id")
		}
		filters.CustomerID = &customerID
	}

	dateFrom, err := parseDateParam(r.URL.Query().Get("date_from"), "date_from")
	if err != nil {
		return filters, err
	}
	filters.DateFrom = dateFrom

	dateTo, err := parseDateParam(r.URL.Query().Get("date_to"), "date_to")
	if err != nil {
		return filters, err
	}
	filters.DateTo = dateTo

	return filters, nil
}

func parseDateParam(value, field string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid %s", field))
		}
	}
	return &t, nil
}
