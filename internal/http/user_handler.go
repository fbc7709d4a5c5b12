package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/service"
)

type createUserRequest struct {
	Name  string         `json:"name" binding:"required"`
	Email string         `json:"email" binding:"required"`
	Role  model.UserRole `json:"role"`
}

type updateRoleRequest struct {
	Role model.UserRole `json:"role" binding:"required"`
}

func (h *Handler) me(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	user, err := h.users.Me(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *Handler) getUser(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *Handler) listUsers(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	page, ok := pageQuery(c)
	if !ok {
		return
	}
	result, err := h.users.ListUsers(c.Request.Context(), principal, optionalQuery[model.UserRole](c, "role"), page)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *Handler) createUser(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	user, err := h.users.CreateUser(c.Request.Context(), principal, service.CreateUserInput{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, user)
}

func (h *Handler) updateUserRole(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	user, err := h.users.UpdateRole(c.Request.Context(), principal, id, req.Role)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}
