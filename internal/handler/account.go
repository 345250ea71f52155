package handler

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lmarchetti/sidechat/internal/apperr"
	"github.com/lmarchetti/sidechat/internal/auth"
	"github.com/lmarchetti/sidechat/internal/database"
	"github.com/lmarchetti/sidechat/internal/model"
	"github.com/lmarchetti/sidechat/internal/objstore"
)

// UserStore is the slice of the database layer the account and admin
// handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, p database.CreateUserParams) (model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (database.UserCredentials, error)
	GetUserCredentials(ctx context.Context, id uuid.UUID) (database.UserCredentials, error)
	ListUsersExcept(ctx context.Context, userID uuid.UUID) ([]model.User, error)
	ListUsers(ctx context.Context, limit, offset int32) ([]model.User, error)
	CountUsers(ctx context.Context) (int64, error)
	UpdateUserRole(ctx context.Context, id uuid.UUID, role model.Role) (model.User, error)
	UpdateProfilePic(ctx context.Context, id uuid.UUID, url string) (model.User, error)
	UpdateUserInfo(ctx context.Context, id uuid.UUID, fullName, email string) (model.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
}

// Signup handles user account creation.
func Signup(db UserStore, sessions *auth.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req struct {
			FullName string `json:"fullName"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}

		req.Email = strings.TrimSpace(req.Email)
		req.FullName = strings.TrimSpace(req.FullName)
		if req.FullName == "" || req.Email == "" {
			respondError(w, apperr.InvalidArg("fullName and email are required"))
			return
		}
		if len(req.Password) < 6 {
			respondError(w, apperr.InvalidArg("Password must be at least 6 characters"))
			return
		}

		hashedPw, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(w, err)
			return
		}

		user, err := db.CreateUser(ctx, database.CreateUserParams{
			ID:             uuid.New(),
			FullName:       req.FullName,
			Email:          req.Email,
			HashedPassword: hashedPw,
			Role:           model.RoleUser,
		})
		if err != nil {
			respondError(w, err)
			return
		}

		if err := sessions.Issue(ctx, w, user.ID); err != nil {
			respondError(w, err)
			return
		}

		slog.InfoContext(ctx, "user signed up", slog.String("email", user.Email))
		respondJSON(w, http.StatusCreated, user)
	}
}

// Login verifies credentials and starts a session.
func Login(db UserStore, sessions *auth.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}

		creds, err := db.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
		if err != nil {
			// Same answer for a missing user and a bad password.
			respondError(w, apperr.InvalidArg("Invalid email or password"))
			return
		}

		ok, err := auth.CheckPasswordHash(req.Password, creds.HashedPassword)
		if err != nil {
			log.Printf("cannot verify password, hash may be corrupted: %v", err)
			respondError(w, apperr.Internal("server error"))
			return
		}
		if !ok {
			respondError(w, apperr.InvalidArg("Invalid email or password"))
			return
		}

		if err := sessions.Issue(ctx, w, creds.User.ID); err != nil {
			respondError(w, err)
			return
		}

		slog.InfoContext(ctx, "user logged in", slog.String("email", creds.User.Email))
		respondJSON(w, http.StatusOK, creds.User)
	}
}

// Logout revokes the refresh token and clears the session cookies.
func Logout(sessions *auth.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.Revoke(w, r)
		respondJSON(w, http.StatusOK, map[string]string{"message": "User logged out successfully"})
	}
}

// CheckAuth returns the authenticated user's own record.
func CheckAuth(db UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := auth.GetUserFromContext(ctx)
		if err != nil {
			respondError(w, apperr.Unauthorized("not authorized"))
			return
		}

		user, err := db.GetUserByID(ctx, userID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, user)
	}
}

// UpdateProfile replaces the caller's profile picture. The payload is
// a base64 data URL; the stored object's URL ends up on the user row.
func UpdateProfile(db UserStore, media objstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := auth.GetUserFromContext(ctx)
		if err != nil {
			respondError(w, apperr.Unauthorized("not authorized"))
			return
		}

		var req struct {
			ProfilePic string `json:"profilePic"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
		if req.ProfilePic == "" {
			respondError(w, apperr.InvalidArg("Profile picture is required"))
			return
		}

		data, contentType, err := objstore.DecodeDataURL(req.ProfilePic)
		if err != nil {
			respondError(w, err)
			return
		}

		url, err := media.Put(ctx, uuid.NewString(), data, contentType)
		if err != nil {
			respondError(w, err)
			return
		}

		current, err := db.GetUserByID(ctx, userID)
		if err != nil {
			respondError(w, err)
			return
		}

		user, err := db.UpdateProfilePic(ctx, userID, url)
		if err != nil {
			respondError(w, err)
			return
		}

		if current.ProfilePic != "" {
			if err := media.Delete(ctx, current.ProfilePic); err != nil {
				log.Printf("failed to delete old profile pic: %v", err)
			}
		}

		respondJSON(w, http.StatusOK, user)
	}
}

// UpdateAccount changes the caller's name, email, or password. A
// password change requires the current password.
func UpdateAccount(db UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := auth.GetUserFromContext(ctx)
		if err != nil {
			respondError(w, apperr.Unauthorized("not authorized"))
			return
		}

		var req struct {
			FullName        string `json:"fullName"`
			Email           string `json:"email"`
			CurrentPassword string `json:"currentPassword"`
			NewPassword     string `json:"newPassword"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}

		user, err := db.GetUserByID(ctx, userID)
		if err != nil {
			respondError(w, err)
			return
		}

		fullName := user.FullName
		if name := strings.TrimSpace(req.FullName); name != "" {
			fullName = name
		}

		email := user.Email
		if newEmail := strings.TrimSpace(req.Email); newEmail != "" && newEmail != user.Email {
			taken, err := db.EmailTaken(ctx, newEmail, userID)
			if err != nil {
				respondError(w, err)
				return
			}
			if taken {
				respondError(w, apperr.AlreadyExists("Email already in use"))
				return
			}
			email = newEmail
		}

		if req.CurrentPassword != "" && req.NewPassword != "" {
			if len(req.NewPassword) < 6 {
				respondError(w, apperr.InvalidArg("New password must be at least 6 characters"))
				return
			}

			creds, err := db.GetUserCredentials(ctx, userID)
			if err != nil {
				respondError(w, err)
				return
			}

			ok, err := auth.CheckPasswordHash(req.CurrentPassword, creds.HashedPassword)
			if err != nil || !ok {
				respondError(w, apperr.InvalidArg("Current password is incorrect"))
				return
			}

			hashed, err := auth.HashPassword(req.NewPassword)
			if err != nil {
				respondError(w, err)
				return
			}
			if err := db.UpdatePassword(ctx, userID, hashed); err != nil {
				respondError(w, err)
				return
			}
		}

		updated, err := db.UpdateUserInfo(ctx, userID, fullName, email)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}
