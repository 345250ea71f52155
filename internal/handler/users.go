package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lmarchetti/sidechat/internal/apperr"
	"github.com/lmarchetti/sidechat/internal/auth"
	"github.com/lmarchetti/sidechat/internal/model"
)

// ListSidebarUsers returns every user except the caller, for the
// conversation sidebar.
func ListSidebarUsers(db UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := auth.GetUserFromContext(ctx)
		if err != nil {
			respondError(w, apperr.Unauthorized("not authorized"))
			return
		}

		users, err := db.ListUsersExcept(ctx, userID)
		if err != nil {
			respondError(w, err)
			return
		}
		if users == nil {
			users = []model.User{}
		}
		respondJSON(w, http.StatusOK, users)
	}
}

type pagination struct {
	CurrentPage     int   `json:"currentPage"`
	TotalPages      int   `json:"totalPages"`
	TotalUsers      int64 `json:"totalUsers"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// ListUsers is the admin-only paginated user listing.
func ListUsers(db UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit < 1 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		users, err := db.ListUsers(ctx, int32(limit), int32((page-1)*limit))
		if err != nil {
			respondError(w, err)
			return
		}
		if users == nil {
			users = []model.User{}
		}

		total, err := db.CountUsers(ctx)
		if err != nil {
			respondError(w, err)
			return
		}
		totalPages := int((total + int64(limit) - 1) / int64(limit))

		respondJSON(w, http.StatusOK, map[string]any{
			"users": users,
			"pagination": pagination{
				CurrentPage:     page,
				TotalPages:      totalPages,
				TotalUsers:      total,
				HasNextPage:     page < totalPages,
				HasPreviousPage: page > 1,
			},
		})
	}
}

// UpdateUserRole is the admin-only role switch.
func UpdateUserRole(db UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := uuid.Parse(chi.URLParam(r, "userID"))
		if err != nil {
			respondError(w, apperr.InvalidArg("invalid user id"))
			return
		}

		var req struct {
			Role model.Role `json:"role"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
		if !req.Role.Valid() {
			respondError(w, apperr.InvalidArg("Invalid role"))
			return
		}

		user, err := db.UpdateUserRole(ctx, userID, req.Role)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, user)
	}
}
