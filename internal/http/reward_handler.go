package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/waste-dispatch/internal/service"
)

type productRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PointsCost  *int64  `json:"points_cost"`
	Stock       *int64  `json:"stock"`
	ImageURL    *string `json:"image_url"`
	Active      *bool   `json:"active"`
}

func (r productRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		PointsCost:  r.PointsCost,
		Stock:       r.Stock,
		ImageURL:    r.ImageURL,
		Active:      r.Active,
	}
}

type redeemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity"`
}

type bonusRequest struct {
	Points int64  `json:"points" binding:"required"`
	Note   string `json:"note"`
}

func (h *Handler) createProduct(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.products.CreateProduct(c.Request.Context(), principal, req.input())
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.products.UpdateProduct(c.Request.Context(), principal, id, req.input())
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.products.DeleteProduct(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) getProduct(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.products.GetProduct(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (h *Handler) listProducts(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	products, err := h.products.ListProducts(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, products)
}

func (h *Handler) redeem(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	order, err := h.products.Redeem(c.Request.Context(), principal, req.ProductID, req.Quantity)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, order)
}

func (h *Handler) myOrders(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	h.orders(c, principal.UserID)
}

func (h *Handler) userOrders(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.orders(c, id)
}

func (h *Handler) orders(c *gin.Context, userID uuid.UUID) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	orders, err := h.products.ListOrders(c.Request.Context(), principal, userID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, orders)
}

func (h *Handler) myRewards(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	h.rewardHistory(c, principal.UserID)
}

func (h *Handler) userRewards(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.rewardHistory(c, id)
}

func (h *Handler) rewardHistory(c *gin.Context, userID uuid.UUID) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	page, ok := pageQuery(c)
	if !ok {
		return
	}
	balance, err := h.rewards.Balance(c.Request.Context(), principal, userID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	history, err := h.rewards.History(c.Request.Context(), principal, userID, page)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"balance": balance, "history": history})
}

func (h *Handler) grantBonus(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req bonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := h.rewards.Bonus(c.Request.Context(), principal, id, req.Points, req.Note)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, entry)
}

func (h *Handler) reconcileUser(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.rewards.Reconcile(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}
