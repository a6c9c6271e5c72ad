package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

// --- Mock ContractService ---
type MockContractService struct {
	mock.Mock
}

func (m *MockContractService) Create(ctx context.Context, actor Actor, in ContractInput) (*models.Contract, error) {
	args := m.Called(ctx, actor, in)
	c, _ := args.Get(0).(*models.Contract)
	return c, args.Error(1)
}

func (m *MockContractService) FindByID(ctx context.Context, id utils.SixID) (*models.Contract, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*models.Contract)
	return c, args.Error(1)
}

func (m *MockContractService) List(ctx context.Context, filter ContractFilter, page models.Page) ([]models.Contract, int64, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).([]models.Contract), args.Get(1).(int64), args.Error(2)
}

func (m *MockContractService) Update(ctx context.Context, actor Actor, id utils.SixID, in ContractInput) (*models.Contract, error) {
	args := m.Called(ctx, actor, id, in)
	c, _ := args.Get(0).(*models.Contract)
	return c, args.Error(1)
}

func (m *MockContractService) Terminate(ctx context.Context, actor Actor, id utils.SixID, in TerminateInput) (*models.Contract, error) {
	args := m.Called(ctx, actor, id, in)
	c, _ := args.Get(0).(*models.Contract)
	return c, args.Error(1)
}

func (m *MockContractService) Delete(ctx context.Context, actor Actor, id utils.SixID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockContractService) FindActiveAt(ctx context.Context, now time.Time) ([]models.Contract, error) {
	args := m.Called(ctx, now)
	c, _ := args.Get(0).([]models.Contract)
	return c, args.Error(1)
}

func (m *MockContractService) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock MeterReadingService ---
type MockMeterReadingService struct {
	mock.Mock
}

func (m *MockMeterReadingService) Create(ctx context.Context, actor Actor, in MeterReadingInput) (*models.MeterReading, error) {
	args := m.Called(ctx, actor, in)
	r, _ := args.Get(0).(*models.MeterReading)
	return r, args.Error(1)
}

func (m *MockMeterReadingService) FindByID(ctx context.Context, id utils.SixID) (*models.MeterReading, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*models.MeterReading)
	return r, args.Error(1)
}

func (m *MockMeterReadingService) FindForPeriod(ctx context.Context, roomID utils.SixID, month, year int) (*models.MeterReading, error) {
	args := m.Called(ctx, roomID, month, year)
	r, _ := args.Get(0).(*models.MeterReading)
	return r, args.Error(1)
}

func (m *MockMeterReadingService) List(ctx context.Context, filter MeterReadingFilter, page models.Page) ([]models.MeterReading, int64, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).([]models.MeterReading), args.Get(1).(int64), args.Error(2)
}

func (m *MockMeterReadingService) Update(ctx context.Context, actor Actor, id utils.SixID, in MeterReadingInput) (*models.MeterReading, error) {
	args := m.Called(ctx, actor, id, in)
	r, _ := args.Get(0).(*models.MeterReading)
	return r, args.Error(1)
}

func (m *MockMeterReadingService) Delete(ctx context.Context, actor Actor, id utils.SixID) error {
	return m.Called(ctx, actor, id).Error(0)
}

// --- Mock InvoiceService ---
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Create(ctx context.Context, actor Actor, in InvoiceInput) (*models.Invoice, error) {
	args := m.Called(ctx, actor, in)
	inv, _ := args.Get(0).(*models.Invoice)
	return inv, args.Error(1)
}

func (m *MockInvoiceService) Insert(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	args := m.Called(ctx, inv)
	out, _ := args.Get(0).(*models.Invoice)
	return out, args.Error(1)
}

func (m *MockInvoiceService) FindByID(ctx context.Context, id utils.SixID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	inv, _ := args.Get(0).(*models.Invoice)
	return inv, args.Error(1)
}

func (m *MockInvoiceService) Get(ctx context.Context, actor Actor, id utils.SixID) (*models.Invoice, error) {
	args := m.Called(ctx, actor, id)
	inv, _ := args.Get(0).(*models.Invoice)
	return inv, args.Error(1)
}

func (m *MockInvoiceService) List(ctx context.Context, actor Actor, filter InvoiceFilter, page models.Page) ([]models.Invoice, int64, error) {
	args := m.Called(ctx, actor, filter, page)
	return args.Get(0).([]models.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceService) Update(ctx context.Context, actor Actor, in InvoiceInput) (*models.Invoice, error) {
	args := m.Called(ctx, actor, in)
	inv, _ := args.Get(0).(*models.Invoice)
	return inv, args.Error(1)
}

func (m *MockInvoiceService) Delete(ctx context.Context, actor Actor, id utils.SixID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockInvoiceService) ExistsForPeriod(ctx context.Context, contractID utils.SixID, month, year int) (bool, error) {
	args := m.Called(ctx, contractID, month, year)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceService) RefreshOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceService) FindOverdue(ctx context.Context) ([]models.Invoice, error) {
	args := m.Called(ctx)
	inv, _ := args.Get(0).([]models.Invoice)
	return inv, args.Error(1)
}

func (m *MockInvoiceService) Reconcile(ctx context.Context, actor Actor, id utils.SixID) (*models.Invoice, error) {
	args := m.Called(ctx, actor, id)
	inv, _ := args.Get(0).(*models.Invoice)
	return inv, args.Error(1)
}

// --- Mock RoomService ---
type MockRoomService struct {
	mock.Mock
}

func (m *MockRoomService) Create(ctx context.Context, actor Actor, in RoomInput) (*models.Room, error) {
	args := m.Called(ctx, actor, in)
	r, _ := args.Get(0).(*models.Room)
	return r, args.Error(1)
}

func (m *MockRoomService) FindByID(ctx context.Context, id utils.SixID) (*models.Room, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*models.Room)
	return r, args.Error(1)
}

func (m *MockRoomService) List(ctx context.Context, filter RoomFilter, page models.Page) ([]models.Room, int64, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).([]models.Room), args.Get(1).(int64), args.Error(2)
}

func (m *MockRoomService) Update(ctx context.Context, actor Actor, id utils.SixID, in RoomInput) (*models.Room, error) {
	args := m.Called(ctx, actor, id, in)
	r, _ := args.Get(0).(*models.Room)
	return r, args.Error(1)
}

func (m *MockRoomService) Delete(ctx context.Context, actor Actor, id utils.SixID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockRoomService) SetMaintenance(ctx context.Context, actor Actor, id utils.SixID, on bool) (*models.Room, error) {
	args := m.Called(ctx, actor, id, on)
	r, _ := args.Get(0).(*models.Room)
	return r, args.Error(1)
}

func (m *MockRoomService) Authorize(ctx context.Context, actor Actor, id utils.SixID) (*models.Room, error) {
	args := m.Called(ctx, actor, id)
	r, _ := args.Get(0).(*models.Room)
	return r, args.Error(1)
}

func (m *MockRoomService) Scope(ctx context.Context, actor Actor) (RoomScope, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(RoomScope), args.Error(1)
}

func (m *MockRoomService) RefreshStatus(ctx context.Context, id utils.SixID) (models.RoomStatus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.RoomStatus), args.Error(1)
}

func (m *MockRoomService) RefreshAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
