package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"traveltales/middleware"
	"traveltales/models"
	"traveltales/services"
)

type UserHandler struct {
	userService   *services.UserService
	socialService *services.SocialService
}

type userResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

func NewUserHandler(userService *services.UserService, socialService *services.SocialService) *UserHandler {
	return &UserHandler{
		userService:   userService,
		socialService: socialService,
	}
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username     *string `json:"username"`
		Email        *string `json:"email"`
		DateOfBirth  *string `json:"dateOfBirth"`
		ProfileImage *string `json:"profileImage"`
	}
	if err := decodeJSON(r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}

	update := models.UserUpdate{
		Username:     input.Username,
		Email:        input.Email,
		ProfileImage: input.ProfileImage,
	}
	if input.DateOfBirth != nil {
		dob, err := services.ParseDate(*input.DateOfBirth)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}
		update.DateOfBirth = &dob
	}

	user, err := h.userService.UpdateUser(r.Context(), middleware.ActorFrom(r.Context()), mux.Vars(r)["id"], update)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Message: "User updated successfully", User: user})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.DeleteUser(r.Context(), mux.Vars(r)["id"]); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted"})
}

func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}

	user, err := h.userService.SetRole(r.Context(), mux.Vars(r)["id"], input.Role)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Message: "Role updated", User: user})
}

// Follow makes the caller follow the user in the path.
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	if err := h.socialService.Follow(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Followed successfully"})
}

func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	if err := h.socialService.Unfollow(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Unfollowed successfully"})
}

func (h *UserHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.socialService.Reconcile(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
