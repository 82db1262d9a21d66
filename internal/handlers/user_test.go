package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"sponup-backend/internal/models"
	"sponup-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers struct {
	err    error
	update services.ProfileUpdate
}

func (s *stubUsers) Register(_ context.Context, in services.RegisterInput) (*models.User, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return &models.User{ID: "uid-1", Role: in.Role, FirstName: in.FirstName}, "jwt", nil
}

func (s *stubUsers) SignIn(context.Context, string) (*models.User, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return &models.User{ID: "uid-1", Role: models.RoleSponsor}, "jwt", nil
}

func (s *stubUsers) GetUser(_ context.Context, id string) (*models.User, error) {
	return &models.User{ID: id}, s.err
}

func (s *stubUsers) GetPublicProfile(_ context.Context, id string) (*services.PublicUser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.PublicUser{ID: id, DisplayName: "Sam Smith"}, nil
}

func (s *stubUsers) UpdateProfile(_ context.Context, userID string, update services.ProfileUpdate) (*models.User, error) {
	s.update = update
	return &models.User{ID: userID}, s.err
}

func userRouter(stub *stubUsers) chi.Router {
	h := NewUserHandler(stub)
	r := chi.NewRouter()
	r.Post("/users", h.CreateUser)
	r.Post("/sessions", h.CreateSession)
	r.Get("/me", h.GetMe)
	r.Patch("/me", h.UpdateMe)
	r.Get("/users/{user_id}", h.GetUser)
	return r
}

func TestCreateUser(t *testing.T) {
	body := map[string]string{
		"id_token":   "token:uid-1",
		"role":       "athlete",
		"first_name": "Bo",
		"last_name":  "Jackson",
		"age_group":  "12u",
	}

	t.Run("registered", func(t *testing.T) {
		rec := serve(t, userRouter(&stubUsers{}), http.MethodPost, "/users", "", "", body)

		require.Equal(t, http.StatusCreated, rec.Code)
		var got SessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "jwt", got.Token)
		assert.Equal(t, models.RoleAthlete, got.User.Role)
	})

	t.Run("unknown role", func(t *testing.T) {
		bad := map[string]string{"id_token": "t", "role": "coach", "first_name": "Bo", "last_name": "J"}
		rec := serve(t, userRouter(&stubUsers{}), http.MethodPost, "/users", "", "", bad)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "role", decodeError(t, rec).Field)
	})

	t.Run("already registered", func(t *testing.T) {
		rec := serve(t, userRouter(&stubUsers{err: services.ErrConflict}), http.MethodPost, "/users", "", "", body)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestCreateSessionWithBadIdentityToken(t *testing.T) {
	rec := serve(t, userRouter(&stubUsers{err: services.ErrInvalidToken}), http.MethodPost, "/sessions", "", "",
		map[string]string{"id_token": "forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateMe(t *testing.T) {
	t.Run("partial update", func(t *testing.T) {
		stub := &stubUsers{}
		rec := serve(t, userRouter(stub), http.MethodPatch, "/me", "B", models.RoleAthlete,
			map[string]string{"shipping_address": "1 Main St"})

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, stub.update.ShippingAddress)
		assert.Equal(t, "1 Main St", *stub.update.ShippingAddress)
		assert.Nil(t, stub.update.FirstName)
	})

	t.Run("bad reward email", func(t *testing.T) {
		rec := serve(t, userRouter(&stubUsers{}), http.MethodPatch, "/me", "B", models.RoleAthlete,
			map[string]string{"email_for_rewards": "nope"})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "email_for_rewards", decodeError(t, rec).Field)
	})
}

func TestGetUserProfile(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		rec := serve(t, userRouter(&stubUsers{}), http.MethodGet, "/users/S", "B", models.RoleAthlete, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"display_name":"Sam Smith"`)
	})

	t.Run("missing", func(t *testing.T) {
		rec := serve(t, userRouter(&stubUsers{err: services.ErrNotFound}), http.MethodGet, "/users/nobody", "B", models.RoleAthlete, nil)

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not found", decodeError(t, rec).Error)
	})
}
