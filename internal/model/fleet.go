package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Specialization is shared by team specializations and truck types.
type Specialization string

const (
	SpecializationGeneral     Specialization = "general"
	SpecializationRecyclables Specialization = "recyclables"
	SpecializationEWaste      Specialization = "e-waste"
	SpecializationOrganic     Specialization = "organic"
	SpecializationHazardous   Specialization = "hazardous"
)

func (s Specialization) Valid() bool {
	switch s {
	case SpecializationGeneral, SpecializationRecyclables, SpecializationEWaste,
		SpecializationOrganic, SpecializationHazardous:
		return true
	}
	return false
}

var materialSpecializations = map[string]Specialization{
	"plastic":        SpecializationRecyclables,
	"plastics":       SpecializationRecyclables,
	"paper":          SpecializationRecyclables,
	"cardboard":      SpecializationRecyclables,
	"glass":          SpecializationRecyclables,
	"metal":          SpecializationRecyclables,
	"aluminium":      SpecializationRecyclables,
	"aluminum":       SpecializationRecyclables,
	"recyclable":     SpecializationRecyclables,
	"recyclables":    SpecializationRecyclables,
	"e-waste":        SpecializationEWaste,
	"ewaste":         SpecializationEWaste,
	"electronic":     SpecializationEWaste,
	"electronics":    SpecializationEWaste,
	"battery":        SpecializationEWaste,
	"batteries":      SpecializationEWaste,
	"organic":        SpecializationOrganic,
	"food":           SpecializationOrganic,
	"garden":         SpecializationOrganic,
	"green":          SpecializationOrganic,
	"biodegradable":  SpecializationOrganic,
	"hazardous":      SpecializationHazardous,
	"chemical":       SpecializationHazardous,
	"chemicals":      SpecializationHazardous,
	"medical":        SpecializationHazardous,
	"oil":            SpecializationHazardous,
	"asbestos":       SpecializationHazardous,
	"paint":          SpecializationHazardous,
	"general":        SpecializationGeneral,
	"mixed":          SpecializationGeneral,
	"municipal":      SpecializationGeneral,
	"general-waste":  SpecializationGeneral,
	"household":      SpecializationGeneral,
	"construction":   SpecializationGeneral,
	"textile":        SpecializationGeneral,
	"textiles":       SpecializationGeneral,
}

// SpecializationForMaterial maps a free-text dominant material to the specialization handling it.
func SpecializationForMaterial(material string) Specialization {
	key := strings.ToLower(strings.TrimSpace(material))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	if spec, ok := materialSpecializations[key]; ok {
		return spec
	}
	return SpecializationGeneral
}

// CompatibleSpecializations lists the team specializations allowed to collect the material,
// the dedicated one first. General crews do not take hazardous or electronic waste.
func CompatibleSpecializations(material string) []Specialization {
	spec := SpecializationForMaterial(material)
	switch spec {
	case SpecializationGeneral:
		return []Specialization{SpecializationGeneral}
	case SpecializationHazardous, SpecializationEWaste:
		return []Specialization{spec}
	default:
		return []Specialization{spec, SpecializationGeneral}
	}
}

type TeamStatus string

const (
	TeamStatusActive  TeamStatus = "active"
	TeamStatusOffDuty TeamStatus = "off_duty"
)

func (s TeamStatus) Valid() bool {
	return s == TeamStatusActive || s == TeamStatusOffDuty
}

type Team struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Specialization Specialization `json:"specialization"`
	Status         TeamStatus     `json:"status"`
	Members        []uuid.UUID    `json:"members" gorm:"-"`
	Trucks         []uuid.UUID    `json:"trucks" gorm:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type TeamFilter struct {
	Status         *TeamStatus
	Specialization *Specialization
}

type TruckStatus string

const (
	TruckStatusAvailable   TruckStatus = "available"
	TruckStatusInUse       TruckStatus = "in_use"
	TruckStatusMaintenance TruckStatus = "maintenance"
)

func (s TruckStatus) Valid() bool {
	switch s {
	case TruckStatusAvailable, TruckStatusInUse, TruckStatusMaintenance:
		return true
	}
	return false
}

type CapacityUnit string

const (
	CapacityUnitKg          CapacityUnit = "kg"
	CapacityUnitCubicMeters CapacityUnit = "cubic_meters"
)

func (u CapacityUnit) Valid() bool {
	return u == CapacityUnitKg || u == CapacityUnitCubicMeters
}

type Truck struct {
	ID                 uuid.UUID      `json:"id"`
	RegistrationNumber string         `json:"registration_number"`
	Type               Specialization `json:"type"`
	Capacity           float64        `json:"capacity"`
	CapacityUnit       CapacityUnit   `json:"capacity_unit"`
	Status             TruckStatus    `json:"status"`
	AssignedTeamID     *uuid.UUID     `json:"assigned_team_id"`
	Longitude          *float64       `json:"longitude"`
	Latitude           *float64       `json:"latitude"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// NormalizeRegistration folds registration numbers to their canonical upper-case form.
func NormalizeRegistration(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}

type TruckFilter struct {
	Status *TruckStatus
	TeamID *uuid.UUID
}

// CrewCandidate is an available truck paired with the active team it belongs to.
type CrewCandidate struct {
	TruckID            uuid.UUID
	RegistrationNumber string
	TeamID             uuid.UUID
	TeamName           string
	Specialization     Specialization
	Longitude          *float64
	Latitude           *float64
}
