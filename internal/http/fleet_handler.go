package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/service"
)

type createTeamRequest struct {
	Name           string               `json:"name" binding:"required"`
	Specialization model.Specialization `json:"specialization"`
	Members        []uuid.UUID          `json:"members"`
}

type updateTeamRequest struct {
	Name           *string               `json:"name"`
	Specialization *model.Specialization `json:"specialization"`
	Status         *model.TeamStatus     `json:"status"`
	Members        *[]uuid.UUID          `json:"members"`
}

type createTruckRequest struct {
	RegistrationNumber string               `json:"registration_number" binding:"required"`
	Type               model.Specialization `json:"type"`
	Capacity           float64              `json:"capacity"`
	CapacityUnit       model.CapacityUnit   `json:"capacity_unit"`
	AssignedTeamID     *uuid.UUID           `json:"assigned_team_id"`
	Longitude          *float64             `json:"longitude"`
	Latitude           *float64             `json:"latitude"`
}

// updateTruckRequest uses clear_team to unassign, since a null assigned_team_id is indistinguishable from an absent one.
type updateTruckRequest struct {
	RegistrationNumber *string               `json:"registration_number"`
	Type               *model.Specialization `json:"type"`
	Capacity           *float64              `json:"capacity"`
	CapacityUnit       *model.CapacityUnit   `json:"capacity_unit"`
	Status             *model.TruckStatus    `json:"status"`
	AssignedTeamID     *uuid.UUID            `json:"assigned_team_id"`
	ClearTeam          bool                  `json:"clear_team"`
	Longitude          *float64              `json:"longitude"`
	Latitude           *float64              `json:"latitude"`
}

func (h *Handler) createTeam(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	team, err := h.fleet.CreateTeam(c.Request.Context(), principal, service.CreateTeamInput{
		Name:           req.Name,
		Specialization: req.Specialization,
		Members:        req.Members,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, team)
}

func (h *Handler) updateTeam(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	team, err := h.fleet.UpdateTeam(c.Request.Context(), principal, id, service.UpdateTeamInput{
		Name:           req.Name,
		Specialization: req.Specialization,
		Status:         req.Status,
		Members:        req.Members,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, team)
}

func (h *Handler) deleteTeam(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.fleet.DeleteTeam(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) getTeam(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	team, err := h.fleet.GetTeam(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, team)
}

func (h *Handler) listTeams(c *gin.Context) {
	teams, err := h.fleet.ListTeams(c.Request.Context(), model.TeamFilter{
		Status:         optionalQuery[model.TeamStatus](c, "status"),
		Specialization: optionalQuery[model.Specialization](c, "specialization"),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, teams)
}

func (h *Handler) createTruck(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req createTruckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	truck, err := h.fleet.CreateTruck(c.Request.Context(), principal, service.CreateTruckInput{
		RegistrationNumber: req.RegistrationNumber,
		Type:               req.Type,
		Capacity:           req.Capacity,
		CapacityUnit:       req.CapacityUnit,
		AssignedTeamID:     req.AssignedTeamID,
		Longitude:          req.Longitude,
		Latitude:           req.Latitude,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, truck)
}

func (h *Handler) updateTruck(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateTruckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	truck, err := h.fleet.UpdateTruck(c.Request.Context(), principal, id, service.UpdateTruckInput{
		RegistrationNumber: req.RegistrationNumber,
		Type:               req.Type,
		Capacity:           req.Capacity,
		CapacityUnit:       req.CapacityUnit,
		Status:             req.Status,
		AssignedTeamID:     req.AssignedTeamID,
		ClearTeam:          req.ClearTeam,
		Longitude:          req.Longitude,
		Latitude:           req.Latitude,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, truck)
}

func (h *Handler) deleteTruck(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.fleet.DeleteTruck(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) getTruck(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	truck, err := h.fleet.GetTruck(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, truck)
}

func (h *Handler) listTrucks(c *gin.Context) {
	teamID, ok := optionalUUIDQuery(c, "team_id")
	if !ok {
		return
	}
	trucks, err := h.fleet.ListTrucks(c.Request.Context(), model.TruckFilter{
		Status: optionalQuery[model.TruckStatus](c, "status"),
		TeamID: teamID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, trucks)
}
