package handler

import (
	"net/http"

	"github.com/RoyceAzure/lab/storefront/internal/api/response"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/service"
)

type UserHandler struct {
	userService service.IUserService
}

func NewUserHandler(userService service.IUserService) *UserHandler {
	if userService == nil {
		panic("userService cannot be nil")
	}
	return &UserHandler{userService: userService}
}

// @Summary get my profile
// @Description 第一次呼叫會以 token 內容建立 profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=model.UserProfile}
// @Failure 401 {object} response.Response
// @Router /user/profile [get]
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.GetProfile(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, profile)
}

// @Summary update my profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body service.UpdateProfileRequest true "profile"
// @Success 200 {object} response.Response{data=model.UserProfile}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /user/profile [put]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	profile, err := h.userService.UpdateProfile(r.Context(), auth.IdentityFromContext(r.Context()), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, profile)
}

// @Summary list my addresses
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.Address}
// @Failure 401 {object} response.Response
// @Router /user/addresses [get]
func (h *UserHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.userService.ListAddresses(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, addresses)
}

// @Summary create address
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param address body service.AddressRequest true "address"
// @Success 201 {object} response.Response{data=model.Address}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /user/addresses [post]
func (h *UserHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var req service.AddressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	address, err := h.userService.CreateAddress(r.Context(), auth.IdentityFromContext(r.Context()), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, address)
}

// @Summary update address
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "address id"
// @Param address body service.AddressRequest true "address"
// @Success 200 {object} response.Response{data=model.Address}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /user/addresses/{id} [put]
func (h *UserHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var req service.AddressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	address, err := h.userService.UpdateAddress(r.Context(), auth.IdentityFromContext(r.Context()), id, req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, address)
}

// @Summary delete address
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "address id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /user/addresses/{id} [delete]
func (h *UserHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.userService.DeleteAddress(r.Context(), auth.IdentityFromContext(r.Context()), id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Message(w, "Address deleted")
}
