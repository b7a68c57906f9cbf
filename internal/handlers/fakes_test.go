package handlers

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"placesapi/internal/apperr"
	"placesapi/internal/models"
)

type fakeUserRepo struct {
	users     []*models.User
	createErr error
	lookupErr error
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return apperr.ErrEmailTaken
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	stored := *user
	f.users = append(f.users, &stored)
	return nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, user := range f.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeUserRepo) List(_ context.Context) ([]models.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	out := make([]models.User, 0, len(f.users))
	for _, user := range f.users {
		out = append(out, *user)
	}
	return out, nil
}

// fakePlaceRepo mirrors the production invariant: a place and its
// owner's back-reference change together or not at all.
type fakePlaceRepo struct {
	places        []*models.Place
	users         *fakeUserRepo
	appendFailure error
}

func (f *fakePlaceRepo) Create(_ context.Context, place *models.Place) error {
	if f.appendFailure != nil {
		// Owner-list update failed: the whole unit aborts, no place stored.
		return f.appendFailure
	}
	var owner *models.User
	for _, user := range f.users.users {
		if user.ID == place.Creator {
			owner = user
			break
		}
	}
	if owner == nil {
		return apperr.ErrNotFound
	}
	place.ID = primitive.NewObjectID()
	stored := *place
	f.places = append(f.places, &stored)
	owner.Places = append(owner.Places, place.ID)
	return nil
}

func (f *fakePlaceRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Place, error) {
	for _, place := range f.places {
		if place.ID == id {
			copied := *place
			return &copied, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakePlaceRepo) FindByCreator(_ context.Context, creator primitive.ObjectID) ([]models.Place, error) {
	out := make([]models.Place, 0)
	for _, place := range f.places {
		if place.Creator == creator {
			out = append(out, *place)
		}
	}
	return out, nil
}

func (f *fakePlaceRepo) Update(_ context.Context, id primitive.ObjectID, title, description string) (*models.Place, error) {
	for _, place := range f.places {
		if place.ID == id {
			place.Title = title
			place.Description = description
			copied := *place
			return &copied, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakePlaceRepo) Delete(_ context.Context, id primitive.ObjectID) (*models.Place, error) {
	for i, place := range f.places {
		if place.ID == id {
			removed := *place
			f.places = append(f.places[:i], f.places[i+1:]...)
			for _, user := range f.users.users {
				if user.ID == removed.Creator {
					kept := user.Places[:0]
					for _, pid := range user.Places {
						if pid != id {
							kept = append(kept, pid)
						}
					}
					user.Places = kept
				}
			}
			return &removed, nil
		}
	}
	return nil, apperr.ErrNotFound
}

type fakeGeocoder struct {
	location models.Location
	err      error
}

func (f fakeGeocoder) Resolve(_ context.Context, _ string) (models.Location, error) {
	if f.err != nil {
		return models.Location{}, f.err
	}
	return f.location, nil
}

var errStorageDown = errors.New("storage unavailable")

func buildMultipartForm(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()
	if withImage {
		return buildMultipartFormWithFile(t, fields, "photo.jpg")
	}
	return buildMultipartFormWithFile(t, fields, "")
}

func buildMultipartFormWithFile(t *testing.T, fields map[string]string, filename string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("image", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("fake-image-bytes")); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}
