// Package markers implements the marker store: listing, creation and deletion of
// map markers behind the write policy.
package markers

import (
	"context"
	"errors"
	"time"

	"github.com/goldenbrick/markermap/internal/apperr"
	"github.com/goldenbrick/markermap/internal/auth"
	"github.com/goldenbrick/markermap/internal/media"
	"github.com/goldenbrick/markermap/internal/models"
	"github.com/goldenbrick/markermap/internal/storage"
	"github.com/goldenbrick/markermap/internal/validation"
)

// Service applies validation and the write policy in front of a MarkerRepository.
type Service struct {
	repo storage.MarkerRepository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo storage.MarkerRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns every marker, newest first. Reading is public.
func (s *Service) List(ctx context.Context) ([]View, error) {
	rows, errList := s.repo.List(ctx)
	if errList != nil {
		return nil, storageError(errList)
	}
	return NewViews(rows), nil
}

// Get returns one marker.
func (s *Service) Get(ctx context.Context, id uint64) (*View, error) {
	row, errGet := s.repo.Get(ctx, id)
	if errGet != nil {
		return nil, storageError(errGet)
	}
	view := NewView(*row)
	return &view, nil
}

// Create stores a new marker attributed to identity. Only admins may create.
func (s *Service) Create(ctx context.Context, identity *auth.Identity, in CreateInput) (*View, error) {
	if !auth.CanWrite(identity) {
		return nil, apperr.Forbidden()
	}

	in.normalize()
	if errValidate := validation.Struct(&in); errValidate != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, errValidate.Error(), errValidate)
	}
	items, errItems := media.FromInputs(in.ContentItems)
	if errItems != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, errItems.Error(), errItems)
	}
	gallery, errEncode := media.Encode(items)
	if errEncode != nil {
		return nil, apperr.Internal(errEncode)
	}

	now := s.now().UTC()
	createdBy := identity.Username
	row := &models.Marker{
		Title:         in.Title,
		Description:   in.Description,
		Latitude:      *in.Position.Lat,
		Longitude:     *in.Position.Lng,
		IconImage:     in.IconImage,
		ContentItems:  gallery,
		GoogleMapsURL: in.GoogleMapsURL,
		Category:      in.Category,
		CreatedBy:     &createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if errCreate := s.repo.Create(ctx, row); errCreate != nil {
		return nil, storageError(errCreate)
	}
	view := NewView(*row)
	return &view, nil
}

// Delete removes a marker and returns its id. Only admins may delete; a second
// delete of the same id reports NotFound.
func (s *Service) Delete(ctx context.Context, identity *auth.Identity, id uint64) (uint64, error) {
	if !auth.CanWrite(identity) {
		return 0, apperr.Forbidden()
	}
	if id == 0 {
		return 0, apperr.Validation("Invalid marker id")
	}
	if errDelete := s.repo.Delete(ctx, id); errDelete != nil {
		return 0, storageError(errDelete)
	}
	return id, nil
}

// storageError maps repository failures to client errors.
func storageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound("Marker")
	case errors.Is(err, storage.ErrUnavailable):
		return apperr.StorageUnavailable(err)
	default:
		return apperr.Internal(err)
	}
}
