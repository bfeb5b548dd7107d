package staff

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
)

// Service exposes read-mostly staff profile operations.
type Service interface {
	Get(ctx context.Context, staffID uuid.UUID) (*models.StaffProfile, error)
	List(ctx context.Context, role *enums.StaffRole, activeOnly bool) ([]models.StaffProfile, error)
	SetActive(ctx context.Context, staffID uuid.UUID, active bool) error
	// SetChatChannel records the chat channel a staff member registered for
	// bot notifications.
	SetChatChannel(ctx context.Context, staffID uuid.UUID, channelID int64) error
	// EnsureEligible verifies the staff member exists, is active, and holds
	// the role matching the assignment slot.
	EnsureEligible(ctx context.Context, staffID uuid.UUID, role enums.AssignmentRole) (*models.StaffProfile, error)
	// ResolveByChannel maps a chat channel back to the staff member who
	// registered it.
	ResolveByChannel(ctx context.Context, channelID int64) (*models.StaffProfile, error)
}

type service struct {
	repo Repository
}

// NewService builds a staff service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("staff repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, staffID uuid.UUID) (*models.StaffProfile, error) {
	if staffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	profile, err := s.repo.FindByID(ctx, staffID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "staff profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff profile")
	}
	return profile, nil
}

func (s *service) List(ctx context.Context, role *enums.StaffRole, activeOnly bool) ([]models.StaffProfile, error) {
	profiles, err := s.repo.ListByRole(ctx, role, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list staff profiles")
	}
	return profiles, nil
}

func (s *service) SetActive(ctx context.Context, staffID uuid.UUID, active bool) error {
	if staffID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	if err := s.repo.SetActive(ctx, staffID, active); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "staff profile not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update staff profile")
	}
	return nil
}

func (s *service) SetChatChannel(ctx context.Context, staffID uuid.UUID, channelID int64) error {
	if staffID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	if channelID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "channel id required")
	}
	if err := s.repo.SetChatChannel(ctx, staffID, channelID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "staff profile not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update staff profile")
	}
	return nil
}

func (s *service) ResolveByChannel(ctx context.Context, channelID int64) (*models.StaffProfile, error) {
	if channelID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "channel id required")
	}
	profile, err := s.repo.FindByChatChannel(ctx, channelID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no staff member registered for channel")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff profile")
	}
	return profile, nil
}

func (s *service) EnsureEligible(ctx context.Context, staffID uuid.UUID, role enums.AssignmentRole) (*models.StaffProfile, error) {
	profile, err := s.Get(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !profile.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff member is inactive")
	}
	if string(profile.Role) != string(role) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("staff member is a %s, not a %s", profile.Role, role))
	}
	return profile, nil
}
