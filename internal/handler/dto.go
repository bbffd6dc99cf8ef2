package handler

import (
	"github.com/shopspring/decimal"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/lifecycle"
	"github.com/matthewbaird/propmanage/internal/types"
)

// Request bodies. Field names follow the client's JSON.

type createBuildingRequest struct {
	Name    string `json:"name" validate:"required,max=128"`
	Address string `json:"address" validate:"max=256"`
}

type createRoomRequest struct {
	RoomNumber       string           `json:"room_number" validate:"required,max=32"`
	Area             float64          `json:"area" validate:"gte=0"`
	Status           types.RoomStatus `json:"status" validate:"omitempty,oneof=Vacant Maintenance"`
	LastWaterReading decimal.Decimal  `json:"last_water_reading" validate:"gte=0"`
	LastElecReading  decimal.Decimal  `json:"last_elec_reading" validate:"gte=0"`
}

func (req createRoomRequest) room(buildingID int64) types.Room {
	status := req.Status
	if status == "" {
		status = types.RoomVacant
	}
	return types.Room{
		BuildingID:       buildingID,
		RoomNumber:       req.RoomNumber,
		Area:             req.Area,
		Status:           status,
		LastWaterReading: req.LastWaterReading,
		LastElecReading:  req.LastElecReading,
	}
}

type roomStatusRequest struct {
	Status types.RoomStatus `json:"status" validate:"required"`
}

type createTenantRequest struct {
	Name  string `json:"name" validate:"required,max=128"`
	Phone string `json:"phone" validate:"required,max=32"`
}

type createLeaseRequest struct {
	RoomID     int64           `json:"room_id" validate:"required,gt=0"`
	TenantID   int64           `json:"tenant_id" validate:"required,gt=0"`
	StartDate  types.Date      `json:"start_date" validate:"required"`
	EndDate    types.Date      `json:"end_date" validate:"required"`
	RentAmount decimal.Decimal `json:"rent_amount" validate:"gt=0"`
	Deposit    decimal.Decimal `json:"deposit" validate:"gte=0"`
}

func (req createLeaseRequest) input() lifecycle.LeaseInput {
	return lifecycle.LeaseInput{
		RoomID:     req.RoomID,
		TenantID:   req.TenantID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		RentAmount: req.RentAmount,
		Deposit:    req.Deposit,
	}
}

// meterReadingRequest uses pointers so an omitted reading fails validation
// instead of reading as zero.
type meterReadingRequest struct {
	CurrentWaterReading *decimal.Decimal `json:"current_water_reading" validate:"required,gte=0"`
	CurrentElecReading  *decimal.Decimal `json:"current_elec_reading" validate:"required,gte=0"`
}

// reading must only be called after validation.
func (req meterReadingRequest) reading() billing.Reading {
	return billing.Reading{Water: *req.CurrentWaterReading, Elec: *req.CurrentElecReading}
}
