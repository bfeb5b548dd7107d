package staff

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	"github.com/orderdeskhq/orderdesk-backend/api/validators"
	"github.com/orderdeskhq/orderdesk-backend/internal/bridge"
	internalstaff "github.com/orderdeskhq/orderdesk-backend/internal/staff"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type setChannelRequest struct {
	ChannelID string `json:"channel_id" validate:"required"`
}

// List returns staff profiles, optionally filtered by role.
func List(svc internalstaff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "staff service unavailable"))
			return
		}

		var role *enums.StaffRole
		if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
			parsed, err := enums.ParseStaffRole(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
				return
			}
			role = &parsed
		}
		activeOnly := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("active")), "true")

		profiles, err := svc.List(r.Context(), role, activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profiles)
	}
}

// Get returns a single staff profile.
func Get(svc internalstaff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "staff service unavailable"))
			return
		}

		staffID, err := parseStaffID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Get(r.Context(), staffID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// SetActive toggles whether the staff member can receive assignments.
func SetActive(svc internalstaff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "staff service unavailable"))
			return
		}

		staffID, err := parseStaffID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setActiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetActive(r.Context(), staffID, *payload.Active); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"active": *payload.Active})
	}
}

// SetChannel registers the chat channel a staff member receives bot
// notifications on. The channel id arrives as the raw string pasted from the
// chat client, so it is validated before it touches the profile.
func SetChannel(svc internalstaff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "staff service unavailable"))
			return
		}

		staffID, err := parseStaffID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setChannelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		channelID, err := bridge.ValidateChannelID(payload.ChannelID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetChatChannel(r.Context(), staffID, channelID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"channel_id": channelID})
	}
}

func parseStaffID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "staffId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id is required")
	}
	staffID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid staff id")
	}
	return staffID, nil
}
