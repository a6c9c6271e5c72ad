package handlers_test

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
	"trohub/app/internal/utils"
)

// --- Mocks ---
// Each mock embeds its interface so only the methods a test exercises need a body.

type MockUserService struct {
	services.IUserService
	mock.Mock
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, userID utils.SixID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) SuspendUser(ctx context.Context, userIDToSuspend, adminUserID utils.SixID) error {
	args := m.Called(ctx, userIDToSuspend, adminUserID)
	return args.Error(0)
}

type MockConfigService struct {
	services.IConfigService
	mock.Mock
}

func (m *MockConfigService) GetAllPublic(ctx context.Context) (map[string]interface{}, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockConfigService) SetConfigValue(ctx context.Context, key string, value interface{}, isPublic bool) error {
	args := m.Called(ctx, key, value, isPublic)
	return args.Error(0)
}

type MockEmailTemplateService struct {
	services.IEmailTemplateService
	mock.Mock
}

func (m *MockEmailTemplateService) SaveTemplate(ctx context.Context, tmpl *models.EmailTemplate) error {
	args := m.Called(ctx, tmpl)
	return args.Error(0)
}

type MockBuildingService struct {
	services.IBuildingService
	mock.Mock
}

func (m *MockBuildingService) List(ctx context.Context, actor services.Actor, search string, page models.Page) ([]models.Building, int64, error) {
	args := m.Called(ctx, actor, search, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Building), args.Get(1).(int64), args.Error(2)
}

func (m *MockBuildingService) Delete(ctx context.Context, actor services.Actor, id utils.SixID) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

type MockRoomService struct {
	services.IRoomService
	mock.Mock
}

func (m *MockRoomService) List(ctx context.Context, filter services.RoomFilter, page models.Page) ([]models.Room, int64, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Room), args.Get(1).(int64), args.Error(2)
}

func (m *MockRoomService) SetMaintenance(ctx context.Context, actor services.Actor, id utils.SixID, on bool) (*models.Room, error) {
	args := m.Called(ctx, actor, id, on)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

type MockContractService struct {
	services.IContractService
	mock.Mock
}

func (m *MockContractService) Create(ctx context.Context, actor services.Actor, in services.ContractInput) (*models.Contract, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

func (m *MockContractService) Terminate(ctx context.Context, actor services.Actor, id utils.SixID, in services.TerminateInput) (*models.Contract, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

type MockInvoiceService struct {
	services.IInvoiceService
	mock.Mock
}

func (m *MockInvoiceService) Create(ctx context.Context, actor services.Actor, in services.InvoiceInput) (*models.Invoice, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) FindByID(ctx context.Context, id utils.SixID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Get(ctx context.Context, actor services.Actor, id utils.SixID) (*models.Invoice, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) List(ctx context.Context, actor services.Actor, filter services.InvoiceFilter, page models.Page) ([]models.Invoice, int64, error) {
	args := m.Called(ctx, actor, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceService) Update(ctx context.Context, actor services.Actor, in services.InvoiceInput) (*models.Invoice, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Delete(ctx context.Context, actor services.Actor, id utils.SixID) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

type MockPaymentService struct {
	services.IPaymentService
	mock.Mock
}

func (m *MockPaymentService) Create(ctx context.Context, actor services.Actor, in services.PaymentInput) (*models.Payment, *models.Invoice, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Payment), args.Get(1).(*models.Invoice), args.Error(2)
}

func (m *MockPaymentService) List(ctx context.Context, actor services.Actor, filter services.PaymentFilter, page models.Page) ([]models.Payment, int64, error) {
	args := m.Called(ctx, actor, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Payment), args.Get(1).(int64), args.Error(2)
}

type MockAutoInvoiceService struct {
	mock.Mock
}

func (m *MockAutoInvoiceService) Generate(ctx context.Context, now time.Time) (*services.GenerateResult, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.GenerateResult), args.Error(1)
}

func (m *MockAutoInvoiceService) Precheck(ctx context.Context, now time.Time) (*services.PrecheckResult, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PrecheckResult), args.Error(1)
}

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Get(ctx context.Context) (*services.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DashboardStats), args.Error(1)
}

func (m *MockDashboardService) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockNotificationService struct {
	services.INotificationService
	mock.Mock
}

func (m *MockNotificationService) ListForUser(ctx context.Context, userID utils.SixID, unreadOnly bool, page models.Page) ([]services.NotificationView, int64, error) {
	args := m.Called(ctx, userID, unreadOnly, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]services.NotificationView), args.Get(1).(int64), args.Error(2)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) InvoiceCreated(ctx context.Context, inv *models.Invoice) {
	m.Called(ctx, inv)
}

func (m *MockNotifier) PaymentReceived(ctx context.Context, inv *models.Invoice, p *models.Payment) {
	m.Called(ctx, inv, p)
}

type MockRunEnqueuer struct {
	mock.Mock
}

func (m *MockRunEnqueuer) GenerateInvoices(ctx context.Context, at time.Time) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}
