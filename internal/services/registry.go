package services

import (
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"trohub/app/internal/config"
)

// Registry holds one instance of every service, wired to each other.
// The API and the background worker build theirs the same way.
type Registry struct {
	Config        IConfigService
	Users         IUserService
	Templates     IEmailTemplateService
	Buildings     IBuildingService
	Rooms         IRoomService
	Tenants       ITenantService
	Contracts     IContractService
	Readings      IMeterReadingService
	Invoices      IInvoiceService
	Payments      IPaymentService
	AutoInvoice   IAutoInvoiceService
	Incidents     IIncidentService
	Notifications INotificationService
	Dashboard     IDashboardService
}

func NewRegistry(db *mongo.Database, cfg *config.Config, rdb *redis.Client, settings IConfigService) *Registry {
	r := &Registry{Config: settings}
	r.Users = NewUserService(db, cfg)
	r.Templates = NewEmailTemplateService(db)
	r.Buildings = NewBuildingService(db, cfg)
	r.Rooms = NewRoomService(db, cfg, r.Buildings)
	r.Tenants = NewTenantService(db, cfg)
	r.Contracts = NewContractService(db, cfg, r.Rooms, r.Tenants)
	r.Readings = NewMeterReadingService(db, cfg, r.Rooms)
	r.Invoices = NewInvoiceService(db, cfg, r.Contracts, r.Rooms, settings)
	r.Payments = NewPaymentService(db, cfg, r.Rooms)
	r.AutoInvoice = NewAutoInvoiceService(r.Contracts, r.Readings, r.Invoices, r.Rooms)
	r.Incidents = NewIncidentService(db, cfg, r.Rooms)
	r.Notifications = NewNotificationService(db, cfg)
	var dashboardCache redis.Cmdable
	if rdb != nil {
		dashboardCache = rdb
	}
	r.Dashboard = NewDashboardService(db, cfg, dashboardCache)
	return r
}
