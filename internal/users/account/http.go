// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/warden/internal/platform/middleware"
	requestutil "github.com/taibuivan/warden/internal/platform/request"
	"github.com/taibuivan/warden/internal/platform/respond"
	"github.com/taibuivan/warden/internal/platform/validate"
	"github.com/taibuivan/warden/internal/users/otp"
)

// # Response Codes

const (
	CodeGetUserData  = "SUCCESSFULLY_GET_USER_DATA"
	CodeUpdatedNames = "SUCCESSFULLY_RESET_UPDATED_NAMES"
	CodeDeletedUser  = "SUCCESSFULLY_DELETED_USER"
)

// Handler implements the profile endpoints.
type Handler struct {
	service *Service
	cookie  *middleware.AccessCookie
	csrf    *middleware.CSRF
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service, cookie *middleware.AccessCookie, csrf *middleware.CSRF) *Handler {
	return &Handler{service: service, cookie: cookie, csrf: csrf}
}

// Mount registers the profile routes on router. Every route needs a session.
//
// # Endpoints
//   - GET    /me          : Current profile
//   - POST   /change-name : Rename
//   - DELETE /delete-me   : Delete the account (OTP step-up)
func (handler *Handler) Mount(router chi.Router) {
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.me)

		r.With(handler.csrf.Protect).Post("/change-name", handler.changeNames)
		r.With(handler.csrf.Protect).Delete("/delete-me", handler.deleteMe)
	})
}

type changeNamesRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type deleteRequest struct {
	OTP string `json:"otp"`
}

// Me handles GET /api/v1/auth/me.
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.service.Me(request.Context(), principal.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, CodeGetUserData, "User data fetched successfully.", profile)
}

/*
ChangeNames renames the signed-in user.

POST /api/v1/auth/change-name

Request:
  - Body: {firstName?, lastName?}, at least one

Response:
  - 200: SUCCESSFULLY_RESET_UPDATED_NAMES with the updated profile
*/
func (handler *Handler) changeNames(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changeNamesRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.service.ChangeNames(request.Context(), principal.UserID, input.FirstName, input.LastName)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, CodeUpdatedNames, "User names have been successfully updated.", profile)
}

/*
DeleteMe deletes the signed-in account and clears the access cookie.

DELETE /api/v1/auth/delete-me

Request:
  - Body: {otp}
*/
func (handler *Handler) deleteMe(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input deleteRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := (&validate.Validator{}).Code(FieldOTP, input.OTP, otp.CodeLength).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), principal.UserID, input.OTP); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookie.Clear(writer)
	respond.OK(writer, CodeDeletedUser, "User has been successfully deleted.", nil)
}
