package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"trohub/app/internal/billing"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

// GenerateResult summarises one auto-invoice run. Per-contract failures are
// collected in Errors and never abort the run.
type GenerateResult struct {
	Month                int           `json:"month"`
	Year                 int           `json:"year"`
	CreatedCount         int           `json:"createdCount"`
	TotalActiveContracts int           `json:"totalActiveContracts"`
	SkippedCount         int           `json:"skippedCount"` // Already invoiced for the period
	InvoiceIDs           []utils.SixID `json:"invoiceIds"`
	Errors               []string      `json:"errors"`
	Warnings             []string      `json:"warnings"`
}

// PrecheckResult reports what a run for the current period would do.
type PrecheckResult struct {
	Month               int      `json:"month"`
	Year                int      `json:"year"`
	ActiveContracts     int      `json:"activeContracts"`
	AlreadyInvoiced     int      `json:"alreadyInvoiced"`
	MissingReadings     int      `json:"missingReadings"`
	MissingReadingRooms []string `json:"missingReadingRooms"`
	ReadyToGenerate     int      `json:"readyToGenerate"`
}

type IAutoInvoiceService interface {
	Generate(ctx context.Context, now time.Time) (*GenerateResult, error)
	Precheck(ctx context.Context, now time.Time) (*PrecheckResult, error)
}

type autoInvoiceService struct {
	contracts IContractService
	readings  IMeterReadingService
	invoices  IInvoiceService
	rooms     IRoomService
}

func NewAutoInvoiceService(contracts IContractService, readings IMeterReadingService, invoices IInvoiceService, rooms IRoomService) IAutoInvoiceService {
	return &autoInvoiceService{contracts: contracts, readings: readings, invoices: invoices, rooms: rooms}
}

// Generate creates one invoice per active contract for the period containing
// now. Contracts already invoiced for the period are skipped, so reruns are
// safe. Only a failure to list the contracts aborts the run.
func (s *autoInvoiceService) Generate(ctx context.Context, now time.Time) (*GenerateResult, error) {
	p := billing.PeriodOf(now)
	contracts, err := s.contracts.FindActiveAt(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list active contracts: %w", err)
	}

	res := &GenerateResult{
		Month:                p.Month,
		Year:                 p.Year,
		TotalActiveContracts: len(contracts),
		InvoiceIDs:           []utils.SixID{},
		Errors:               []string{},
		Warnings:             []string{},
	}
	for i := range contracts {
		c := &contracts[i]
		inv, skipped, err := s.generateOne(ctx, c, p, now, res)
		switch {
		case err != nil:
			zap.S().Warnf("Auto-invoice %s: contract %s: %v", p, c.Code, err)
			res.Errors = append(res.Errors, err.Error())
		case skipped:
			res.SkippedCount++
		default:
			res.CreatedCount++
			res.InvoiceIDs = append(res.InvoiceIDs, inv.ID)
		}
	}

	zap.S().Infof("Auto-invoice %s: created %d of %d active contracts, %d skipped, %d error(s)",
		p, res.CreatedCount, res.TotalActiveContracts, res.SkippedCount, len(res.Errors))
	return res, nil
}

func (s *autoInvoiceService) generateOne(ctx context.Context, c *models.Contract, p billing.Period, now time.Time, res *GenerateResult) (*models.Invoice, bool, error) {
	exists, err := s.invoices.ExistsForPeriod(ctx, c.ID, p.Month, p.Year)
	if err != nil {
		return nil, false, fmt.Errorf("contract %s: %w", c.Code, err)
	}
	if exists {
		return nil, true, nil
	}

	reading, err := s.readings.FindForPeriod(ctx, c.RoomID, p.Month, p.Year)
	if IsNotFound(err) {
		return nil, false, fmt.Errorf("room %s has no meter reading for %s", s.roomLabel(ctx, c.RoomID), p)
	}
	if err != nil {
		return nil, false, fmt.Errorf("contract %s: %w", c.Code, err)
	}

	in := billing.Input{
		Rent:            c.Rent,
		ElectricityRate: c.ElectricityRate,
		WaterRate:       c.WaterRate,
		End:             models.MeterPair{Electricity: reading.ElectricityNew, Water: reading.WaterNew},
		Fees:            c.ServiceFees,
	}
	if billing.IsFirstPeriod(c.StartDate.In(now.Location()), p) {
		// The first bill runs from the readings taken at move-in.
		in.Start = c.InitialReadings
	} else {
		in.Start = models.MeterPair{Electricity: reading.ElectricityOld, Water: reading.WaterOld}
		in.Usage = &models.MeterPair{Electricity: reading.ElectricityUsage, Water: reading.WaterUsage}
	}

	b := billing.Calculate(in)
	if b.Clamped() {
		msg := fmt.Sprintf("room %s: meter reading for %s went backwards, usage counted as zero", s.roomLabel(ctx, c.RoomID), p)
		zap.S().Warn(msg)
		res.Warnings = append(res.Warnings, msg)
	}

	inv := &models.Invoice{
		ContractID: c.ID,
		RoomID:     c.RoomID,
		TenantID:   c.RepresentativeID,
		Month:      p.Month,
		Year:       p.Year,
		Generated:  true,
	}
	b.Fill(inv, in)
	inv.DueDate = billing.DueDate(p, c.PaymentDay, now)
	billing.SettleInvoice(inv, now)

	created, err := s.invoices.Insert(ctx, inv)
	if IsConflict(err) {
		// Another run got there first.
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("contract %s: %w", c.Code, err)
	}
	return created, false, nil
}

func (s *autoInvoiceService) Precheck(ctx context.Context, now time.Time) (*PrecheckResult, error) {
	p := billing.PeriodOf(now)
	contracts, err := s.contracts.FindActiveAt(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list active contracts: %w", err)
	}

	res := &PrecheckResult{Month: p.Month, Year: p.Year, ActiveContracts: len(contracts), MissingReadingRooms: []string{}}
	for i := range contracts {
		c := &contracts[i]
		exists, err := s.invoices.ExistsForPeriod(ctx, c.ID, p.Month, p.Year)
		if err != nil {
			return nil, err
		}
		if exists {
			res.AlreadyInvoiced++
			continue
		}
		_, err = s.readings.FindForPeriod(ctx, c.RoomID, p.Month, p.Year)
		if IsNotFound(err) {
			res.MissingReadings++
			res.MissingReadingRooms = append(res.MissingReadingRooms, s.roomLabel(ctx, c.RoomID))
			continue
		}
		if err != nil {
			return nil, err
		}
		res.ReadyToGenerate++
	}
	return res, nil
}

// roomLabel prefers the human room code and falls back to the id.
func (s *autoInvoiceService) roomLabel(ctx context.Context, id utils.SixID) string {
	if s.rooms != nil {
		if room, err := s.rooms.FindByID(ctx, id); err == nil {
			return room.Code
		}
	}
	return id.String()
}
