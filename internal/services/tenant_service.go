package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"trohub/app/internal/billing"
	"trohub/app/internal/config"
	"trohub/app/internal/db"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

const tenantsCollection = "tenants"

type TenantInput struct {
	FullName    string     `json:"full_name" binding:"required,max=100"`
	Phone       string     `json:"phone" binding:"required,min=9,max=15"`
	Email       string     `json:"email" binding:"omitempty,email"`
	IDNumber    string     `json:"id_number" binding:"required,min=9,max=12"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Hometown    string     `json:"hometown" binding:"max=200"`
	Occupation  string     `json:"occupation" binding:"max=100"`
}

type ITenantService interface {
	Create(ctx context.Context, in TenantInput) (*models.Tenant, error)
	FindByID(ctx context.Context, id utils.SixID) (*models.Tenant, error)
	// FindByIDs returns the tenants found; missing ids are reported as NotFoundError.
	FindByIDs(ctx context.Context, ids []utils.SixID) ([]models.Tenant, error)
	List(ctx context.Context, search string, status models.TenantStatus, page models.Page) ([]models.Tenant, int64, error)
	Update(ctx context.Context, id utils.SixID, in TenantInput) (*models.Tenant, error)
	Delete(ctx context.Context, id utils.SixID) error
	RefreshStatus(ctx context.Context, id utils.SixID) (models.TenantStatus, error)
	RefreshAll(ctx context.Context) (int, error)
}

type tenantService struct {
	db  *mongo.Database
	now Clock
}

func NewTenantService(db *mongo.Database, cfg *config.Config) ITenantService {
	return &tenantService{db: db, now: NewClock(cfg)}
}

func (s *tenantService) coll() *mongo.Collection {
	return s.db.Collection(tenantsCollection)
}

func (s *tenantService) Create(ctx context.Context, in TenantInput) (*models.Tenant, error) {
	t := &models.Tenant{Status: models.TenantNeverRented}
	applyTenantInput(t, in)
	t, err := db.InsertOne(ctx, s.coll(), t, s.now())
	if err != nil {
		return nil, writeErr(err, fmt.Sprintf("a tenant with ID number %s already exists", t.IDNumber))
	}
	return t, nil
}

func applyTenantInput(t *models.Tenant, in TenantInput) {
	t.FullName = strings.TrimSpace(in.FullName)
	t.Phone = strings.TrimSpace(in.Phone)
	t.Email = strings.ToLower(strings.TrimSpace(in.Email))
	t.IDNumber = strings.TrimSpace(in.IDNumber)
	t.DateOfBirth = in.DateOfBirth
	t.Hometown = in.Hometown
	t.Occupation = in.Occupation
}

func (s *tenantService) FindByID(ctx context.Context, id utils.SixID) (*models.Tenant, error) {
	t, err := findByID[models.Tenant](ctx, s.coll(), "tenant", id)
	if err != nil {
		return nil, err
	}
	s.derive(ctx, t)
	return t, nil
}

func (s *tenantService) FindByIDs(ctx context.Context, ids []utils.SixID) ([]models.Tenant, error) {
	if len(ids) == 0 {
		return []models.Tenant{}, nil
	}
	tenants, err := findAll[models.Tenant](ctx, s.coll(), bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	found := make(map[utils.SixID]bool, len(tenants))
	for _, t := range tenants {
		found[t.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, notFound("tenant", id)
		}
	}
	return tenants, nil
}

func (s *tenantService) List(ctx context.Context, search string, status models.TenantStatus, page models.Page) ([]models.Tenant, int64, error) {
	filter := bson.M{}
	if search = strings.TrimSpace(search); search != "" {
		filter["$or"] = bson.A{
			bson.M{"full_name": containsFold(search)},
			bson.M{"phone": containsFold(search)},
			bson.M{"id_number": containsFold(search)},
		}
	}
	if status != "" {
		filter["status"] = status
	}
	tenants, total, err := findPage[models.Tenant](ctx, s.coll(), filter, bson.D{{Key: "full_name", Value: 1}}, page)
	if err != nil {
		return nil, 0, err
	}
	for i := range tenants {
		s.derive(ctx, &tenants[i])
	}
	return tenants, total, nil
}

func (s *tenantService) Update(ctx context.Context, id utils.SixID, in TenantInput) (*models.Tenant, error) {
	t, err := findByID[models.Tenant](ctx, s.coll(), "tenant", id)
	if err != nil {
		return nil, err
	}
	applyTenantInput(t, in)
	t.Touch(s.now())
	if _, err := s.coll().ReplaceOne(ctx, bson.M{"_id": id}, t); err != nil {
		return nil, writeErr(err, fmt.Sprintf("a tenant with ID number %s already exists", t.IDNumber))
	}
	s.derive(ctx, t)
	return t, nil
}

// Delete refuses while any contract lists the tenant.
func (s *tenantService) Delete(ctx context.Context, id utils.SixID) error {
	if _, err := findByID[models.Tenant](ctx, s.coll(), "tenant", id); err != nil {
		return err
	}
	n, err := s.db.Collection(contractsCollection).CountDocuments(ctx, tenantContractsFilter(id))
	if err != nil {
		return fmt.Errorf("failed to count contracts of tenant %s: %w", id, err)
	}
	if n > 0 {
		return NewConflictError("tenant is listed on %d contract(s)", n)
	}
	if _, err := s.coll().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete tenant %s: %w", id, err)
	}
	return nil
}

func (s *tenantService) RefreshStatus(ctx context.Context, id utils.SixID) (models.TenantStatus, error) {
	t, err := findByID[models.Tenant](ctx, s.coll(), "tenant", id)
	if err != nil {
		return "", err
	}
	contracts, err := findAll[models.Contract](ctx, s.db.Collection(contractsCollection), tenantContractsFilter(id))
	if err != nil {
		return t.Status, err
	}
	if err := s.store(ctx, t, billing.TenantStatus(id, contracts, s.now())); err != nil {
		return t.Status, err
	}
	return t.Status, nil
}

// RefreshAll recomputes every tenant's cached status and returns how many changed.
func (s *tenantService) RefreshAll(ctx context.Context) (int, error) {
	tenants, err := findAll[models.Tenant](ctx, s.coll(), bson.M{})
	if err != nil {
		return 0, err
	}
	contracts, err := findAll[models.Contract](ctx, s.db.Collection(contractsCollection), bson.M{})
	if err != nil {
		return 0, err
	}
	byTenant := make(map[utils.SixID][]models.Contract)
	for _, c := range contracts {
		seen := map[utils.SixID]bool{}
		for _, id := range append([]utils.SixID{c.RepresentativeID}, c.TenantIDs...) {
			if !seen[id] {
				seen[id] = true
				byTenant[id] = append(byTenant[id], c)
			}
		}
	}

	now := s.now()
	changed := 0
	for i := range tenants {
		status := billing.TenantStatus(tenants[i].ID, byTenant[tenants[i].ID], now)
		if status == tenants[i].Status {
			continue
		}
		if err := s.store(ctx, &tenants[i], status); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

func (s *tenantService) derive(ctx context.Context, t *models.Tenant) {
	contracts, err := findAll[models.Contract](ctx, s.db.Collection(contractsCollection), tenantContractsFilter(t.ID))
	if err != nil {
		zap.S().Warnf("Keeping cached status of tenant %s: %v", t.ID, err)
		return
	}
	if err := s.store(ctx, t, billing.TenantStatus(t.ID, contracts, s.now())); err != nil {
		zap.S().Warnf("Failed to write back status of tenant %s: %v", t.ID, err)
	}
}

func (s *tenantService) store(ctx context.Context, t *models.Tenant, status models.TenantStatus) error {
	if status == t.Status {
		return nil
	}
	if _, err := s.coll().UpdateOne(ctx, bson.M{"_id": t.ID}, bson.M{"$set": bson.M{"status": status}}); err != nil {
		return fmt.Errorf("failed to store status of tenant %s: %w", t.ID, err)
	}
	t.Status = status
	return nil
}

func tenantContractsFilter(id utils.SixID) bson.M {
	return bson.M{"$or": bson.A{bson.M{"tenant_ids": id}, bson.M{"representative_id": id}}}
}
