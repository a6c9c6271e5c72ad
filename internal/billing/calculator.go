package billing

import "trohub/app/internal/models"

// Input is everything needed to price one billing period.
type Input struct {
	Rent            int64
	ElectricityRate int64 // per kWh
	WaterRate       int64 // per m³
	Start           models.MeterPair
	End             models.MeterPair
	// Usage, when set, is taken as-is instead of End minus Start.
	Usage *models.MeterPair
	Fees  []models.ServiceFee
}

// Breakdown is the priced result. Amounts are whole đồng.
type Breakdown struct {
	Rent             int64
	ElectricityUsage int64
	ElectricityCost  int64
	WaterUsage       int64
	WaterCost        int64
	FeesTotal        int64
	Total            int64

	// A negative delta was clamped to zero usage.
	ElectricityClamped bool
	WaterClamped       bool
}

// Clamped reports whether either utility had a negative delta.
func (b Breakdown) Clamped() bool {
	return b.ElectricityClamped || b.WaterClamped
}

// Calculate prices a period. Usage never goes below zero, so neither do costs.
func Calculate(in Input) Breakdown {
	b := Breakdown{Rent: in.Rent}

	var elec, water int64
	if in.Usage != nil {
		elec, water = in.Usage.Electricity, in.Usage.Water
	} else {
		elec = in.End.Electricity - in.Start.Electricity
		water = in.End.Water - in.Start.Water
	}
	b.ElectricityUsage, b.ElectricityClamped = clampUsage(elec)
	b.WaterUsage, b.WaterClamped = clampUsage(water)

	b.ElectricityCost = b.ElectricityUsage * in.ElectricityRate
	b.WaterCost = b.WaterUsage * in.WaterRate
	b.FeesTotal = SumFees(in.Fees)
	b.Total = b.Rent + b.ElectricityCost + b.WaterCost + b.FeesTotal
	return b
}

// SumFees adds up flat service fees.
func SumFees(fees []models.ServiceFee) int64 {
	var sum int64
	for _, f := range fees {
		sum += f.Price
	}
	return sum
}

func clampUsage(delta int64) (int64, bool) {
	if delta < 0 {
		return 0, true
	}
	return delta, false
}

// Fill copies the priced lines and readings onto an invoice. Paid is left alone;
// callers re-settle afterwards.
func (b Breakdown) Fill(inv *models.Invoice, in Input) {
	inv.Rent = b.Rent
	inv.ElectricityStart = in.Start.Electricity
	inv.ElectricityEnd = in.End.Electricity
	inv.ElectricityUsage = b.ElectricityUsage
	inv.ElectricityCost = b.ElectricityCost
	inv.WaterStart = in.Start.Water
	inv.WaterEnd = in.End.Water
	inv.WaterUsage = b.WaterUsage
	inv.WaterCost = b.WaterCost
	inv.ServiceFees = append([]models.ServiceFee(nil), in.Fees...)
	if inv.ServiceFees == nil {
		inv.ServiceFees = []models.ServiceFee{}
	}
	inv.Total = b.Total
}
