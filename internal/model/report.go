package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ReportStatus string

const (
	ReportStatusPendingDispatch ReportStatus = "pending_dispatch"
	ReportStatusDispatched      ReportStatus = "dispatched"
	ReportStatusCollected       ReportStatus = "collected"
	ReportStatusNoWaste         ReportStatus = "no_waste"
	ReportStatusError           ReportStatus = "error"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusPendingDispatch, ReportStatusDispatched, ReportStatusCollected,
		ReportStatusNoWaste, ReportStatusError:
		return true
	}
	return false
}

type VolumeUnit string

const (
	VolumeUnitKg          VolumeUnit = "kg"
	VolumeUnitLiters      VolumeUnit = "liters"
	VolumeUnitCubicMeters VolumeUnit = "cubic_meters"
)

func (u VolumeUnit) Valid() bool {
	switch u {
	case VolumeUnitKg, VolumeUnitLiters, VolumeUnitCubicMeters:
		return true
	}
	return false
}

type WasteCategory struct {
	Type                string  `json:"type"`
	EstimatedPercentage float64 `json:"estimatedPercentage"`
}

type EstimatedVolume struct {
	Value float64    `json:"value"`
	Unit  VolumeUnit `json:"unit"`
}

// Classification is the result returned by the image classification service.
type Classification struct {
	ContainsWaste       bool            `json:"containsWaste"`
	WasteCategories     []WasteCategory `json:"wasteCategories"`
	DominantWasteType   string          `json:"dominantWasteType"`
	EstimatedVolume     EstimatedVolume `json:"estimatedVolume"`
	PossibleSource      string          `json:"possibleSource"`
	EnvironmentalImpact string          `json:"environmentalImpact"`
	ConfidenceLevel     float64         `json:"confidenceLevel"`
	ErrorMessage        *string         `json:"errorMessage"`
}

type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Address   string  `json:"address"`
}

func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

type WasteReport struct {
	ID                  uuid.UUID                          `json:"id"`
	SubmitterID         uuid.UUID                          `json:"submitter_id"`
	ImageURL            string                             `json:"image_url"`
	ContainsWaste       bool                               `json:"contains_waste"`
	WasteCategories     datatypes.JSONSlice[WasteCategory] `json:"waste_categories"`
	DominantWasteType   string                             `json:"dominant_waste_type"`
	VolumeValue         float64                            `json:"volume_value"`
	VolumeUnit          VolumeUnit                         `json:"volume_unit"`
	PossibleSource      string                             `json:"possible_source"`
	EnvironmentalImpact string                             `json:"environmental_impact"`
	ConfidenceLevel     float64                            `json:"confidence_level"`
	Longitude           float64                            `json:"longitude"`
	Latitude            float64                            `json:"latitude"`
	Address             string                             `json:"address"`
	Status              ReportStatus                       `json:"status"`
	ErrorMessage        *string                            `json:"error_message,omitempty"`
	CreatedAt           time.Time                          `json:"created_at"`
	UpdatedAt           time.Time                          `json:"updated_at"`
}

func (r WasteReport) Location() Location {
	return Location{Longitude: r.Longitude, Latitude: r.Latitude, Address: r.Address}
}

// ApplyClassification copies the classifier output onto the report and derives its initial status.
func (r *WasteReport) ApplyClassification(c Classification) {
	r.ContainsWaste = c.ContainsWaste
	r.WasteCategories = c.WasteCategories
	r.DominantWasteType = c.DominantWasteType
	r.VolumeValue = c.EstimatedVolume.Value
	r.VolumeUnit = c.EstimatedVolume.Unit
	r.PossibleSource = c.PossibleSource
	r.EnvironmentalImpact = c.EnvironmentalImpact
	r.ConfidenceLevel = c.ConfidenceLevel
	if !r.VolumeUnit.Valid() {
		r.VolumeUnit = VolumeUnitKg
	}
	if c.ContainsWaste {
		r.Status = ReportStatusPendingDispatch
	} else {
		r.Status = ReportStatusNoWaste
	}
}

type ReportFilter struct {
	Status      *ReportStatus
	SubmitterID *uuid.UUID
}
