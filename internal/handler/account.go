package handler

import (
	"net/http"

	"github.com/fanvault/fanvault/internal/ctxkeys"
	"github.com/fanvault/fanvault/internal/service"
)

type AccountHandler struct {
	userService *service.UserService
	authService *service.AuthService
}

func NewAccountHandler(userService *service.UserService, authService *service.AuthService) *AccountHandler {
	return &AccountHandler{
		userService: userService,
		authService: authService,
	}
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.userService.DeleteAccount(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.authService.ClearJWTCookie(w)
	ok(w, nil)
}
