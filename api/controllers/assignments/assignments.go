package assignments

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orderdeskhq/orderdesk-backend/api/middleware"
	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	"github.com/orderdeskhq/orderdesk-backend/api/validators"
	internalassignments "github.com/orderdeskhq/orderdesk-backend/internal/assignments"
	internalorders "github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

type assignRequest struct {
	Role    string `json:"role" validate:"required"`
	StaffID string `json:"staff_id" validate:"required,uuid4"`
}

type assignResponse struct {
	Assignment      *models.Assignment `json:"assignment"`
	OrderStatus     enums.OrderStatus  `json:"order_status"`
	StatusUnchanged bool               `json:"status_unchanged"`
}

// Assign binds a collector or courier to the order slot.
func Assign(svc internalassignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignments service unavailable"))
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

		var payload assignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseAssignmentRole(payload.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid assignment role"))
			return
		}
		staffID, err := uuid.Parse(payload.StaffID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid staff id"))
			return
		}

		result, err := svc.Assign(r.Context(), internalassignments.AssignInput{
			OrderID: orderID,
			Role:    role,
			StaffID: staffID,
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, assignResponse{
			Assignment:      result.Assignment,
			OrderStatus:     result.OrderStatus,
			StatusUnchanged: result.StatusUnchanged,
		})
	}
}

// Get returns the active assignment row for the order.
func Get(svc internalassignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignments service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.GetForOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
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
