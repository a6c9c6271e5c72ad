package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"trohub/app/internal/billing"
	"trohub/app/internal/cache"
	"trohub/app/internal/config"
	"trohub/app/internal/models"
)

const dashboardCachePrefix = "dashboard:"

type RoomCounts struct {
	Total       int64 `json:"total"`
	Vacant      int64 `json:"vacant"`
	Reserved    int64 `json:"reserved"`
	Occupied    int64 `json:"occupied"`
	Maintenance int64 `json:"maintenance"`
}

// DashboardStats are the headline figures for the current billing period.
// Rates are percentages rendered with two decimals.
type DashboardStats struct {
	Month             int        `json:"month"`
	Year              int        `json:"year"`
	Buildings         int64      `json:"buildings"`
	Rooms             RoomCounts `json:"rooms"`
	OccupancyRate     string     `json:"occupancyRate"`
	RentingTenants    int64      `json:"rentingTenants"`
	ActiveContracts   int64      `json:"activeContracts"`
	ExpiringContracts int64      `json:"expiringContracts"` // Ending within 30 days
	Billed            int64      `json:"billed"`            // Invoice totals for the period
	Collected         int64      `json:"collected"`         // Payments received this month
	CollectionRate    string     `json:"collectionRate"`
	Outstanding       int64      `json:"outstanding"` // Remaining on all open invoices
	OverdueInvoices   int64      `json:"overdueInvoices"`
	OpenIncidents     int64      `json:"openIncidents"`
	GeneratedAt       time.Time  `json:"generatedAt"`
}

type IDashboardService interface {
	Get(ctx context.Context) (*DashboardStats, error)
	Invalidate(ctx context.Context) error
}

type dashboardService struct {
	db  *mongo.Database
	rdb redis.Cmdable
	cfg *config.Config
	now Clock
}

// NewDashboardService caches results in rdb when it is non-nil.
func NewDashboardService(db *mongo.Database, cfg *config.Config, rdb redis.Cmdable) IDashboardService {
	return &dashboardService{db: db, rdb: rdb, cfg: cfg, now: NewClock(cfg)}
}

func (s *dashboardService) Get(ctx context.Context) (*DashboardStats, error) {
	now := s.now()
	p := billing.PeriodOf(now)
	key := fmt.Sprintf("%s%04d-%02d", dashboardCachePrefix, p.Year, p.Month)

	if s.rdb != nil {
		var cached DashboardStats
		found, err := cache.GetJSON(ctx, s.rdb, key, &cached)
		if err != nil {
			zap.S().Warnf("Dashboard cache read failed: %v", err)
		} else if found {
			return &cached, nil
		}
	}

	stats, err := s.compute(ctx, p, now)
	if err != nil {
		return nil, err
	}
	if s.rdb != nil && s.cfg.GetCacheTTL > 0 {
		if err := cache.SetJSON(ctx, s.rdb, key, stats, s.cfg.GetCacheTTL); err != nil {
			zap.S().Warnf("Dashboard cache write failed: %v", err)
		}
	}
	return stats, nil
}

func (s *dashboardService) Invalidate(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}
	return cache.DeleteByPrefix(ctx, s.rdb, dashboardCachePrefix)
}

func (s *dashboardService) compute(ctx context.Context, p billing.Period, now time.Time) (*DashboardStats, error) {
	stats := &DashboardStats{Month: p.Month, Year: p.Year, GeneratedAt: now}
	count := func(collection string, filter bson.M, dst *int64) error {
		n, err := s.db.Collection(collection).CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", collection, err)
		}
		*dst = n
		return nil
	}

	var err error
	if stats.Rooms, err = s.roomCounts(ctx); err != nil {
		return nil, err
	}
	monthStart := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, now.Location())
	next := p.Next()
	monthEnd := time.Date(next.Year, time.Month(next.Month), 1, 0, 0, 0, 0, now.Location())

	counts := []struct {
		collection string
		filter     bson.M
		dst        *int64
	}{
		{buildingsCollection, bson.M{}, &stats.Buildings},
		{tenantsCollection, bson.M{"status": models.TenantRenting}, &stats.RentingTenants},
		{contractsCollection, bson.M{"status": models.ContractActive, "start_date": bson.M{"$lte": now}, "end_date": bson.M{"$gte": now}}, &stats.ActiveContracts},
		{contractsCollection, bson.M{"status": models.ContractActive, "end_date": bson.M{"$gte": now, "$lte": now.AddDate(0, 0, 30)}}, &stats.ExpiringContracts},
		{invoicesCollection, bson.M{"status": models.InvoiceOverdue}, &stats.OverdueInvoices},
		{incidentsCollection, bson.M{"status": bson.M{"$in": bson.A{models.IncidentOpen, models.IncidentInProgress}}}, &stats.OpenIncidents},
	}
	for _, c := range counts {
		if err := count(c.collection, c.filter, c.dst); err != nil {
			return nil, err
		}
	}

	if stats.Billed, err = s.sum(ctx, invoicesCollection, bson.M{"month": p.Month, "year": p.Year}, "$total"); err != nil {
		return nil, err
	}
	if stats.Outstanding, err = s.sum(ctx, invoicesCollection, bson.M{"status": bson.M{"$ne": models.InvoicePaid}}, "$remaining"); err != nil {
		return nil, err
	}
	paidAt := bson.M{"$gte": monthStart, "$lt": monthEnd}
	if stats.Collected, err = s.sum(ctx, paymentsCollection, bson.M{"paid_at": paidAt}, "$amount"); err != nil {
		return nil, err
	}

	stats.OccupancyRate = Percentage(stats.Rooms.Occupied, stats.Rooms.Total)
	stats.CollectionRate = Percentage(stats.Collected, stats.Billed)
	return stats, nil
}

func (s *dashboardService) roomCounts(ctx context.Context) (RoomCounts, error) {
	var rc RoomCounts
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.db.Collection(roomsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return rc, fmt.Errorf("failed to aggregate room statuses: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.RoomStatus `bson:"_id"`
		Count  int64             `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return rc, fmt.Errorf("failed to decode room statuses: %w", err)
	}
	for _, r := range rows {
		rc.Total += r.Count
		switch r.Status {
		case models.RoomVacant:
			rc.Vacant = r.Count
		case models.RoomReserved:
			rc.Reserved = r.Count
		case models.RoomOccupied:
			rc.Occupied = r.Count
		case models.RoomMaintenance:
			rc.Maintenance = r.Count
		}
	}
	return rc, nil
}

func (s *dashboardService) sum(ctx context.Context, collection string, match bson.M, field string) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": nil, "sum": bson.M{"$sum": field}}}},
	}
	cursor, err := s.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum %s %s: %w", collection, field, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Sum int64 `bson:"sum"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode %s sum: %w", collection, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Sum, nil
}

// Percentage renders part/whole*100 with two decimals, "0.00" when whole is zero.
func Percentage(part, whole int64) string {
	if whole == 0 {
		return decimal.Zero.StringFixed(2)
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(whole)).
		StringFixed(2)
}
