package handlers_test

import (
	"net/http"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"trohub/app/internal/api/handlers"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
	"trohub/app/internal/tasks"
	"trohub/app/internal/utils"
)

func referenceInvoice() *models.Invoice {
	return &models.Invoice{
		Base:      models.NewBase(),
		Code:      "HD202503-7K2QX",
		Month:     3,
		Year:      2025,
		Total:     2400000,
		Remaining: 2400000,
		Status:    models.InvoiceUnpaid,
	}
}

func TestInvoiceCreate_NotifiesAndInvalidates(t *testing.T) {
	contractID := utils.NewSixID()
	inv := referenceInvoice()
	invoices := new(MockInvoiceService)
	dashboard := new(MockDashboardService)
	notifier := new(MockNotifier)
	invoices.On("Create", mock.Anything, testActor, mock.MatchedBy(func(in services.InvoiceInput) bool {
		return in.ContractID == contractID && in.ElectricityEnd == 150 && in.WaterEnd == 15
	})).Return(inv, nil)
	notifier.On("InvoiceCreated", mock.Anything, inv).Once()
	dashboard.On("Invalidate", mock.Anything).Return(nil).Once()
	r := newRouter()
	r.POST("/api/hoa-don", handlers.NewRestInvoiceHandler(testCfg, invoices, dashboard, notifier).Create)

	w := doRequest(r, http.MethodPost, "/api/hoa-don", map[string]interface{}{
		"contract_id":       contractID.String(),
		"month":             3,
		"year":              2025,
		"electricity_start": 100,
		"electricity_end":   150,
		"water_start":       10,
		"water_end":         15,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"total":2400000`)
	notifier.AssertExpectations(t)
	dashboard.AssertExpectations(t)
}

func TestInvoiceCreate_NegativeReading(t *testing.T) {
	invoices := new(MockInvoiceService)
	r := newRouter()
	r.POST("/api/hoa-don", handlers.NewRestInvoiceHandler(testCfg, invoices, nil, nil).Create)

	w := doRequest(r, http.MethodPost, "/api/hoa-don", map[string]interface{}{
		"contract_id":     utils.NewSixID().String(),
		"electricity_end": -5,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "electricity_end must be at least 0", decode(t, w).Message)
}

func TestInvoiceUpdate_RequiresID(t *testing.T) {
	invoices := new(MockInvoiceService)
	r := newRouter()
	r.PUT("/api/hoa-don", handlers.NewRestInvoiceHandler(testCfg, invoices, nil, nil).Update)

	w := doRequest(r, http.MethodPut, "/api/hoa-don", map[string]interface{}{"electricity_end": 160})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "id is required", decode(t, w).Message)
	invoices.AssertNotCalled(t, "Update")
}

func TestInvoiceDelete_ByQuery(t *testing.T) {
	id := utils.NewSixID()
	invoices := new(MockInvoiceService)
	invoices.On("Delete", mock.Anything, testActor, id).Return(services.NewConflictError("invoice has payments; delete them first"))
	r := newRouter()
	r.DELETE("/api/hoa-don", handlers.NewRestInvoiceHandler(testCfg, invoices, nil, nil).Delete)

	w := doRequest(r, http.MethodDelete, "/api/hoa-don", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodDelete, "/api/hoa-don?id="+id.String(), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invoice has payments; delete them first", decode(t, w).Message)
}

func TestInvoiceList_Filter(t *testing.T) {
	tenantID := utils.NewSixID()
	invoices := new(MockInvoiceService)
	invoices.On("List", mock.Anything, testActor, services.InvoiceFilter{TenantID: tenantID, Status: models.InvoiceOverdue, Month: 3, Year: 2025}, mock.Anything).
		Return([]models.Invoice{*referenceInvoice()}, int64(1), nil)
	r := newRouter()
	r.GET("/api/hoa-don", handlers.NewRestInvoiceHandler(testCfg, invoices, nil, nil).List)

	w := doRequest(r, http.MethodGet, "/api/hoa-don?tenant_id="+tenantID.String()+"&status=overdue&month=3&year=2025", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/api/hoa-don?month=march", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "month must be a number", decode(t, w).Message)
}

func TestInvoiceGet_ForeignBuilding(t *testing.T) {
	id := utils.NewSixID()
	invoices := new(MockInvoiceService)
	invoices.On("Get", mock.Anything, testActor, id).Return(nil, &services.PermissionError{Message: "you do not manage this building"})
	r := newRouter()
	r.GET("/api/hoa-don/:id", handlers.NewRestInvoiceHandler(testCfg, invoices, nil, nil).Get)

	w := doRequest(r, http.MethodGet, "/api/hoa-don/"+id.String(), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "you do not manage this building", decode(t, w).Message)
	invoices.AssertExpectations(t)
}

func TestPaymentCreate(t *testing.T) {
	invoiceID := utils.NewSixID()
	inv := referenceInvoice()
	inv.Paid, inv.Remaining, inv.Status = 1000000, 1400000, models.InvoicePartiallyPaid
	payment := &models.Payment{Base: models.NewBase(), InvoiceID: invoiceID, Amount: 1000000, Method: models.MethodCash}
	payments := new(MockPaymentService)
	notifier := new(MockNotifier)
	dashboard := new(MockDashboardService)
	payments.On("Create", mock.Anything, testActor, mock.MatchedBy(func(in services.PaymentInput) bool {
		return in.InvoiceID == invoiceID && in.Amount == 1000000
	})).Return(payment, inv, nil)
	notifier.On("PaymentReceived", mock.Anything, inv, payment).Once()
	dashboard.On("Invalidate", mock.Anything).Return(nil)
	r := newRouter()
	r.POST("/api/thanh-toan", handlers.NewRestPaymentHandler(testCfg, payments, dashboard, notifier).Create)

	w := doRequest(r, http.MethodPost, "/api/thanh-toan", map[string]interface{}{
		"invoice_id": invoiceID.String(),
		"amount":     1000000,
		"method":     "cash",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	data := string(decode(t, w).Data)
	assert.Contains(t, data, `"remaining":1400000`)
	assert.Contains(t, data, `"status":"partially_paid"`)
	notifier.AssertExpectations(t)
}

func TestPaymentCreate_Validation(t *testing.T) {
	payments := new(MockPaymentService)
	r := newRouter()
	r.POST("/api/thanh-toan", handlers.NewRestPaymentHandler(testCfg, payments, nil, nil).Create)

	w := doRequest(r, http.MethodPost, "/api/thanh-toan", map[string]interface{}{"amount": 0, "method": "cash"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "amount is required", decode(t, w).Message)

	w = doRequest(r, http.MethodPost, "/api/thanh-toan", map[string]interface{}{"amount": 100, "method": "cheque"})
	assert.Equal(t, "method must be one of: cash bank_transfer e_wallet", decode(t, w).Message)
	payments.AssertNotCalled(t, "Create")
}

func TestPaymentList_DateRange(t *testing.T) {
	payments := new(MockPaymentService)
	payments.On("List", mock.Anything, testActor, mock.MatchedBy(func(f services.PaymentFilter) bool {
		return f.From != nil && f.From.Day() == 1 && f.To == nil && f.Method == models.MethodBankTransfer
	}), mock.Anything).Return([]models.Payment{}, int64(0), nil)
	r := newRouter()
	r.GET("/api/thanh-toan", handlers.NewRestPaymentHandler(testCfg, payments, nil, nil).List)

	w := doRequest(r, http.MethodGet, "/api/thanh-toan?from=2025-03-01&method=bank_transfer", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/api/thanh-toan?to=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "to must be a date (YYYY-MM-DD)", decode(t, w).Message)
}

func TestAutoInvoiceRun_Sync(t *testing.T) {
	inv := referenceInvoice()
	auto := new(MockAutoInvoiceService)
	invoices := new(MockInvoiceService)
	notifier := new(MockNotifier)
	dashboard := new(MockDashboardService)
	auto.On("Generate", mock.Anything, mock.Anything).Return(&services.GenerateResult{
		Month:                3,
		Year:                 2025,
		CreatedCount:         1,
		TotalActiveContracts: 2,
		InvoiceIDs:           []utils.SixID{inv.ID},
		Errors:               []string{"Phòng P102: no meter reading for 03/2025"},
	}, nil)
	invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	notifier.On("InvoiceCreated", mock.Anything, inv).Once()
	dashboard.On("Invalidate", mock.Anything).Return(nil).Once()
	r := newRouter()
	r.POST("/api/auto-invoice", handlers.NewRestAutoInvoiceHandler(testCfg, auto, invoices, dashboard, notifier, nil).Run)

	w := doRequest(r, http.MethodPost, "/api/auto-invoice", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := string(decode(t, w).Data)
	assert.Contains(t, data, `"createdCount":1`)
	assert.Contains(t, data, "P102")
	notifier.AssertExpectations(t)
	dashboard.AssertExpectations(t)
}

func TestAutoInvoiceRun_Async(t *testing.T) {
	auto := new(MockAutoInvoiceService)
	enqueuer := new(MockRunEnqueuer)
	enqueuer.On("GenerateInvoices", mock.Anything, mock.Anything).Return(&asynq.TaskInfo{ID: "invoice-generate:2025-03"}, nil).Once()
	enqueuer.On("GenerateInvoices", mock.Anything, mock.Anything).Return(nil, tasks.ErrDuplicate).Once()
	r := newRouter()
	r.POST("/api/auto-invoice", handlers.NewRestAutoInvoiceHandler(testCfg, auto, nil, nil, nil, enqueuer).Run)

	w := doRequest(r, http.MethodPost, "/api/auto-invoice?async=true", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, string(decode(t, w).Data), "invoice-generate:2025-03")

	w = doRequest(r, http.MethodPost, "/api/auto-invoice?async=true", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	auto.AssertNotCalled(t, "Generate")
}

func TestAutoInvoicePrecheck(t *testing.T) {
	auto := new(MockAutoInvoiceService)
	auto.On("Precheck", mock.Anything, mock.Anything).Return(&services.PrecheckResult{
		Month: 3, Year: 2025, ActiveContracts: 4, AlreadyInvoiced: 1, MissingReadings: 1, ReadyToGenerate: 2,
	}, nil)
	r := newRouter()
	r.GET("/api/auto-invoice", handlers.NewRestAutoInvoiceHandler(testCfg, auto, nil, nil, nil, nil).Precheck)

	w := doRequest(r, http.MethodGet, "/api/auto-invoice", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"readyToGenerate":2`)
}
