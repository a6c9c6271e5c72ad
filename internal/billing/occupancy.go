package billing

import (
	"time"

	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

// Spans reports whether an active contract covers now, bounds included.
func Spans(c *models.Contract, now time.Time) bool {
	return c.Status == models.ContractActive && !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// RoomStatus derives a room's status from the contracts referencing it.
// A running contract means occupied, a future one reserved. Without either,
// a manually set maintenance status is kept and anything else becomes vacant.
func RoomStatus(contracts []models.Contract, now time.Time, current models.RoomStatus) models.RoomStatus {
	reserved := false
	for i := range contracts {
		c := &contracts[i]
		if c.Status != models.ContractActive {
			continue
		}
		if Spans(c, now) {
			return models.RoomOccupied
		}
		if c.StartDate.After(now) {
			reserved = true
		}
	}
	switch {
	case reserved:
		return models.RoomReserved
	case current == models.RoomMaintenance:
		return models.RoomMaintenance
	default:
		return models.RoomVacant
	}
}

// TenantStatus derives a tenant's status from the contracts listing them as a
// tenant or as representative.
func TenantStatus(tenantID utils.SixID, contracts []models.Contract, now time.Time) models.TenantStatus {
	status := models.TenantNeverRented
	for i := range contracts {
		c := &contracts[i]
		if !c.HasTenant(tenantID) {
			continue
		}
		if Spans(c, now) {
			return models.TenantRenting
		}
		status = models.TenantVacated
	}
	return status
}
