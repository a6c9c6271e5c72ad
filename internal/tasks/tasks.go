package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"trohub/app/internal/billing"
	"trohub/app/internal/config"
	"trohub/app/internal/email"
	"trohub/app/internal/services"
	"trohub/app/internal/sms"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery         = "email:deliver"
	TypeSMSDelivery           = "sms:deliver"
	TypeInvoiceGenerate       = "billing:invoice:generate"
	TypeInvoiceRefreshOverdue = "billing:invoice:refresh_overdue"
)

// dedupeRetention keeps finished tasks around so a repeated task id is rejected.
const dedupeRetention = 24 * time.Hour

// IAsynqClient is the part of asynq.Client the app uses, so it can be mocked.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// --- Task Client (Enqueuing tasks) ---

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

func NewClient(cfg *config.Config) *asynq.Client {
	return asynq.NewClient(redisOpt(cfg))
}

type EmailTaskPayload struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

type SMSTaskPayload struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// InvoiceGeneratePayload carries the reference time of a generation run.
// A zero At means the time the task is processed.
type InvoiceGeneratePayload struct {
	At time.Time `json:"at"`
}

// Enqueuer builds and enqueues the app's tasks.
type Enqueuer struct {
	client IAsynqClient
}

func NewEnqueuer(client IAsynqClient) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}
	info, err := e.client.EnqueueContext(ctx, asynq.NewTask(taskType, data), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s: %w", taskType, err)
	}
	return info, nil
}

func (e *Enqueuer) Email(ctx context.Context, to, templateID string, data map[string]interface{}) error {
	_, err := e.enqueue(ctx, TypeEmailDelivery, EmailTaskPayload{To: to, TemplateID: templateID, Data: data})
	return err
}

// SMS enqueues a text message. A non-empty dedupeKey drops repeats of the same
// key for a day; ErrDuplicate is returned for those.
func (e *Enqueuer) SMS(ctx context.Context, to, body, dedupeKey string) error {
	var opts []asynq.Option
	if dedupeKey != "" {
		opts = append(opts, asynq.TaskID("sms:"+dedupeKey), asynq.Retention(dedupeRetention))
	}
	_, err := e.enqueue(ctx, TypeSMSDelivery, SMSTaskPayload{To: to, Body: body}, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return ErrDuplicate
	}
	return err
}

// GenerateInvoices enqueues an auto-invoice run for the period containing at.
// Only one run per period is accepted while the previous one is retained.
func (e *Enqueuer) GenerateInvoices(ctx context.Context, at time.Time) (*asynq.TaskInfo, error) {
	p := billing.PeriodOf(at)
	info, err := e.enqueue(ctx, TypeInvoiceGenerate, InvoiceGeneratePayload{At: at},
		asynq.TaskID(fmt.Sprintf("invoice-generate:%04d-%02d", p.Year, p.Month)),
		asynq.Retention(dedupeRetention),
		asynq.MaxRetry(3),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil, ErrDuplicate
	}
	return info, err
}

// ErrDuplicate reports a task that was already enqueued under the same id.
var ErrDuplicate = errors.New("task already enqueued")

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	smsSender   sms.Sender
	templates   services.IEmailTemplateService
	settings    services.IConfigService
	autoInvoice services.IAutoInvoiceService
	invoices    services.IInvoiceService
	contracts   services.IContractService
	rooms       services.IRoomService
	tenants     services.ITenantService
	dashboard   services.IDashboardService
	notifier    *Notifier
	now         services.Clock
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	smsSender sms.Sender,
	templates services.IEmailTemplateService,
	settings services.IConfigService,
	autoInvoice services.IAutoInvoiceService,
	invoices services.IInvoiceService,
	contracts services.IContractService,
	rooms services.IRoomService,
	tenants services.ITenantService,
	dashboard services.IDashboardService,
	notifier *Notifier,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		smsSender:   smsSender,
		templates:   templates,
		settings:    settings,
		autoInvoice: autoInvoice,
		invoices:    invoices,
		contracts:   contracts,
		rooms:       rooms,
		tenants:     tenants,
		dashboard:   dashboard,
		notifier:    notifier,
		now:         services.NewClock(cfg),
	}
}

// NewServer configures the Asynq server; the caller runs it with Mux.
func NewServer(cfg *config.Config) *asynq.Server {
	return asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				zap.S().Errorf("Task %s failed (payload %s): %v", task.Type(), string(task.Payload()), err)
			}),
			Logger: zap.S(),
		},
	)
}

// Mux routes every task type to its handler.
func (p *TaskProcessor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, p.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeSMSDelivery, p.HandleSMSDeliveryTask)
	mux.HandleFunc(TypeInvoiceGenerate, p.HandleInvoiceGenerateTask)
	mux.HandleFunc(TypeInvoiceRefreshOverdue, p.HandleRefreshOverdueTask)
	return mux
}

// NewScheduler registers the periodic billing tasks from config. It returns
// nil when no cron spec is configured.
func NewScheduler(cfg *config.Config) (*asynq.Scheduler, error) {
	entries := map[string]string{
		TypeInvoiceGenerate:       cfg.AutoInvoiceCron,
		TypeInvoiceRefreshOverdue: cfg.OverdueSweepCron,
	}
	var scheduler *asynq.Scheduler
	for taskType, spec := range entries {
		if spec == "" {
			continue
		}
		if scheduler == nil {
			scheduler = asynq.NewScheduler(redisOpt(cfg), &asynq.SchedulerOpts{Location: cfg.Timezone, Logger: zap.S()})
		}
		payload := []byte("{}")
		id, err := scheduler.Register(spec, asynq.NewTask(taskType, payload), asynq.MaxRetry(3))
		if err != nil {
			return nil, fmt.Errorf("failed to schedule %s (%s): %w", taskType, spec, err)
		}
		zap.S().Infof("Scheduled %s with cron %q (entry %s)", taskType, spec, id)
	}
	return scheduler, nil
}

// --- Task Handlers ---

func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("email task without recipient: %w", asynq.SkipRetry)
	}

	subject, body, err := p.templates.Render(ctx, payload.TemplateID, payload.Locale, payload.Data)
	if services.IsNotFound(err) {
		return fmt.Errorf("email template %s not found: %w", payload.TemplateID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("failed to render email %s: %w", payload.TemplateID, err)
	}

	from := p.cfg.SmtpFromAddress
	msg := email.BuildMessage(from, []string{payload.To}, subject, body, p.now())
	if err := p.emailSender.Send(ctx, []string{payload.To}, subject, msg); err != nil {
		return err
	}
	zap.S().Infof("Email task processed: To=%s, Template=%s", payload.To, payload.TemplateID)
	return nil
}

func (p *TaskProcessor) HandleSMSDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload SMSTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal sms task payload: %v: %w", err, asynq.SkipRetry)
	}
	_, err := p.smsSender.Send(ctx, payload.To, payload.Body)
	if errors.Is(err, sms.ErrInvalidPhone) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}

// HandleInvoiceGenerateTask runs the auto-invoice generator and mails every
// invoice it created.
func (p *TaskProcessor) HandleInvoiceGenerateTask(ctx context.Context, t *asynq.Task) error {
	var payload InvoiceGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal invoice generate payload: %v: %w", err, asynq.SkipRetry)
	}
	at := payload.At
	if at.IsZero() {
		at = p.now()
	}

	res, err := p.autoInvoice.Generate(ctx, at)
	if err != nil {
		return err
	}
	zap.S().Infof("Auto-invoice %02d/%d: created %d of %d active contracts, skipped %d, %d errors",
		res.Month, res.Year, res.CreatedCount, res.TotalActiveContracts, res.SkippedCount, len(res.Errors))
	for _, msg := range res.Errors {
		zap.S().Warnf("Auto-invoice %02d/%d: %s", res.Month, res.Year, msg)
	}
	for _, msg := range res.Warnings {
		zap.S().Warnf("Auto-invoice %02d/%d: %s", res.Month, res.Year, msg)
	}

	for _, id := range res.InvoiceIDs {
		inv, err := p.invoices.FindByID(ctx, id)
		if err != nil {
			zap.S().Errorf("Could not load generated invoice %s for mailing: %v", id, err)
			continue
		}
		p.notifier.InvoiceCreated(ctx, inv)
	}
	if res.CreatedCount > 0 && p.dashboard != nil {
		if err := p.dashboard.Invalidate(ctx); err != nil {
			zap.S().Warnf("Failed to invalidate dashboard cache: %v", err)
		}
	}
	return nil
}

// HandleRefreshOverdueTask is the periodic status sweep: it expires ended
// contracts, refreshes cached room and tenant statuses, flips late invoices to
// overdue and, when enabled, texts a reminder for each overdue invoice.
func (p *TaskProcessor) HandleRefreshOverdueTask(ctx context.Context, t *asynq.Task) error {
	now := p.now()

	expired, err := p.contracts.ExpireEnded(ctx, now)
	if err != nil {
		return err
	}
	rooms, err := p.rooms.RefreshAll(ctx)
	if err != nil {
		return err
	}
	tenants, err := p.tenants.RefreshAll(ctx)
	if err != nil {
		return err
	}
	overdue, err := p.invoices.RefreshOverdue(ctx, now)
	if err != nil {
		return err
	}
	zap.S().Infof("Status sweep: %d contracts expired, %d rooms and %d tenants changed, %d invoices now overdue",
		expired, rooms, tenants, overdue)

	if p.dashboard != nil {
		if err := p.dashboard.Invalidate(ctx); err != nil {
			zap.S().Warnf("Failed to invalidate dashboard cache: %v", err)
		}
	}

	if p.settings == nil || !p.settings.GetBool(ctx, "SMS_REMINDERS_ENABLED", false) {
		return nil
	}
	invoices, err := p.invoices.FindOverdue(ctx)
	if err != nil {
		return err
	}
	sent := 0
	for i := range invoices {
		if p.notifier.OverdueReminder(ctx, &invoices[i], now) {
			sent++
		}
	}
	zap.S().Infof("Queued %d overdue reminders", sent)
	return nil
}
