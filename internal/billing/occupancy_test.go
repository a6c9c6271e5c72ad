package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

func contract(status models.ContractStatus, start, end time.Time, tenants ...utils.SixID) models.Contract {
	c := models.Contract{Status: status, StartDate: start, EndDate: end, TenantIDs: tenants}
	if len(tenants) > 0 {
		c.RepresentativeID = tenants[0]
	}
	return c
}

func TestRoomStatus(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	running := contract(models.ContractActive, now.AddDate(0, -3, 0), now.AddDate(0, 9, 0))
	future := contract(models.ContractActive, now.AddDate(0, 1, 0), now.AddDate(1, 0, 0))
	ended := contract(models.ContractActive, now.AddDate(-1, 0, 0), now.AddDate(0, 0, -1))
	cancelled := contract(models.ContractCancelled, now.AddDate(0, -1, 0), now.AddDate(0, 11, 0))

	cases := []struct {
		name      string
		contracts []models.Contract
		current   models.RoomStatus
		want      models.RoomStatus
	}{
		{"no contracts", nil, models.RoomOccupied, models.RoomVacant},
		{"running contract", []models.Contract{running}, models.RoomVacant, models.RoomOccupied},
		{"future contract", []models.Contract{future}, models.RoomVacant, models.RoomReserved},
		{"running beats future", []models.Contract{future, running}, models.RoomVacant, models.RoomOccupied},
		{"ended contract", []models.Contract{ended}, models.RoomOccupied, models.RoomVacant},
		{"cancelled contract ignored", []models.Contract{cancelled}, models.RoomOccupied, models.RoomVacant},
		{"maintenance kept when idle", []models.Contract{ended}, models.RoomMaintenance, models.RoomMaintenance},
		{"occupancy overrides maintenance", []models.Contract{running}, models.RoomMaintenance, models.RoomOccupied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RoomStatus(tc.contracts, now, tc.current))
		})
	}
}

func TestRoomStatus_BoundsInclusive(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	c := []models.Contract{contract(models.ContractActive, start, end)}

	assert.Equal(t, models.RoomOccupied, RoomStatus(c, start, models.RoomVacant))
	assert.Equal(t, models.RoomOccupied, RoomStatus(c, end, models.RoomVacant))
	assert.Equal(t, models.RoomVacant, RoomStatus(c, end.Add(time.Second), models.RoomVacant))
}

func TestTenantStatus(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	alice, bob, carol := utils.NewSixID(), utils.NewSixID(), utils.NewSixID()

	old := contract(models.ContractExpired, now.AddDate(-2, 0, 0), now.AddDate(-1, 0, 0), alice)
	current := contract(models.ContractActive, now.AddDate(0, -1, 0), now.AddDate(0, 11, 0), bob, alice)
	onlyRep := models.Contract{Status: models.ContractActive, StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 1, 0), RepresentativeID: carol}

	assert.Equal(t, models.TenantRenting, TenantStatus(alice, []models.Contract{old, current}, now))
	assert.Equal(t, models.TenantVacated, TenantStatus(alice, []models.Contract{old}, now))
	assert.Equal(t, models.TenantNeverRented, TenantStatus(carol, []models.Contract{old, current}, now))
	assert.Equal(t, models.TenantRenting, TenantStatus(carol, []models.Contract{onlyRep}, now), "representative counts as tenant")
}
