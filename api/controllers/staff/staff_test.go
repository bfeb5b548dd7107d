package staff

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

type stubStaffService struct {
	channelStaffID uuid.UUID
	channelID      int64
	setChannelErr  error
}

func (s *stubStaffService) Get(ctx context.Context, staffID uuid.UUID) (*models.StaffProfile, error) {
	return &models.StaffProfile{ID: staffID}, nil
}

func (s *stubStaffService) List(ctx context.Context, role *enums.StaffRole, activeOnly bool) ([]models.StaffProfile, error) {
	return nil, nil
}

func (s *stubStaffService) SetActive(ctx context.Context, staffID uuid.UUID, active bool) error {
	return nil
}

func (s *stubStaffService) SetChatChannel(ctx context.Context, staffID uuid.UUID, channelID int64) error {
	s.channelStaffID = staffID
	s.channelID = channelID
	return s.setChannelErr
}

func (s *stubStaffService) EnsureEligible(ctx context.Context, staffID uuid.UUID, role enums.AssignmentRole) (*models.StaffProfile, error) {
	return &models.StaffProfile{ID: staffID}, nil
}

func (s *stubStaffService) ResolveByChannel(ctx context.Context, channelID int64) (*models.StaffProfile, error) {
	return nil, nil
}

func withStaffParam(req *http.Request, staffID string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("staffId", staffID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func TestSetChannelParsesRawID(t *testing.T) {
	svc := &stubStaffService{}
	staffID := uuid.New()

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/staff/x/channel",
		strings.NewReader(`{"channel_id": "-100200300"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withStaffParam(req, staffID.String())

	resp := httptest.NewRecorder()
	SetChannel(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.channelStaffID != staffID {
		t.Fatalf("staff id not propagated")
	}
	if svc.channelID != -100200300 {
		t.Fatalf("unexpected channel id %d", svc.channelID)
	}
}

func TestSetChannelRejectsNonNumericID(t *testing.T) {
	svc := &stubStaffService{}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/staff/x/channel",
		strings.NewReader(`{"channel_id": "not-a-channel"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withStaffParam(req, uuid.NewString())

	resp := httptest.NewRecorder()
	SetChannel(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.channelID != 0 {
		t.Fatalf("service should not be called with an invalid channel id")
	}
}

func TestSetChannelRejectsZeroID(t *testing.T) {
	svc := &stubStaffService{}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/staff/x/channel",
		strings.NewReader(`{"channel_id": "0"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withStaffParam(req, uuid.NewString())

	resp := httptest.NewRecorder()
	SetChannel(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d (%s)", resp.Code, resp.Body.String())
	}
}
