package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"trohub/app/internal/models"
)

const DefaultLocale = "vi-VN"

// Default email templates used as fallback when not found in database
var defaultEmailTemplates = map[string]models.EmailTemplate{
	models.TemplateInvoiceCreated: {
		TemplateID: models.TemplateInvoiceCreated,
		Locale:     DefaultLocale,
		Subject:    "Hoá đơn {{.code}} kỳ {{.period}}",
		Body: "Chào {{.name}},\n\nHoá đơn tiền phòng {{.room}} kỳ {{.period}} đã được lập.\n" +
			"Tổng cộng: {{.total}} đ\nHạn thanh toán: {{.due_date}}\n\nXin cảm ơn.",
	},
	models.TemplateOverdueReminder: {
		TemplateID: models.TemplateOverdueReminder,
		Locale:     DefaultLocale,
		Subject:    "Nhắc thanh toán hoá đơn {{.code}}",
		Body: "Chào {{.name}},\n\nHoá đơn {{.code}} phòng {{.room}} đã quá hạn {{.due_date}}.\n" +
			"Số tiền còn lại: {{.remaining}} đ. Vui lòng thanh toán sớm.",
	},
	models.TemplatePaymentReceived: {
		TemplateID: models.TemplatePaymentReceived,
		Locale:     DefaultLocale,
		Subject:    "Đã nhận thanh toán hoá đơn {{.code}}",
		Body: "Chào {{.name}},\n\nChúng tôi đã nhận {{.amount}} đ cho hoá đơn {{.code}}.\n" +
			"Số tiền còn lại: {{.remaining}} đ.",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, tmpl *models.EmailTemplate) error
	// Render executes the template's subject and body against data.
	Render(ctx context.Context, templateID, locale string, data map[string]interface{}) (subject, body string, err error)
}

const emailTemplatesCollection = "email_templates"

// EmailTemplateService handles operations related to email templates
type EmailTemplateService struct {
	db *mongo.Database
}

func NewEmailTemplateService(db *mongo.Database) *EmailTemplateService {
	return &EmailTemplateService{db: db}
}

// GetTemplate retrieves a template by ID and locale, falling back to the built-in default.
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID string, locale string) (*models.EmailTemplate, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	filter := bson.M{"template_id": templateID, "locale": locale}

	var tmpl models.EmailTemplate
	err := s.db.Collection(emailTemplatesCollection).FindOne(ctx, filter).Decode(&tmpl)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if def, ok := defaultEmailTemplates[templateID]; ok {
				return &def, nil
			}
			return nil, &NotFoundError{Resource: "email template", ID: templateID + "/" + locale}
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}
	return &tmpl, nil
}

// SaveTemplate upserts a template keyed by (template_id, locale).
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, tmpl *models.EmailTemplate) error {
	if _, ok := defaultEmailTemplates[tmpl.TemplateID]; !ok {
		return NewValidationError("unknown template_id %q", tmpl.TemplateID)
	}
	if tmpl.Locale == "" {
		tmpl.Locale = DefaultLocale
	}
	for name, src := range map[string]string{"subject": tmpl.Subject, "body": tmpl.Body} {
		if _, err := template.New(name).Parse(src); err != nil {
			return NewValidationError("invalid %s template: %v", name, err)
		}
	}

	filter := bson.M{"template_id": tmpl.TemplateID, "locale": tmpl.Locale}
	update := bson.M{"$set": bson.M{
		"template_id": tmpl.TemplateID,
		"locale":      tmpl.Locale,
		"subject":     tmpl.Subject,
		"body":        tmpl.Body,
	}}
	opts := options.Update().SetUpsert(true)
	if _, err := s.db.Collection(emailTemplatesCollection).UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	return nil
}

func (s *EmailTemplateService) Render(ctx context.Context, templateID, locale string, data map[string]interface{}) (string, string, error) {
	tmpl, err := s.GetTemplate(ctx, templateID, locale)
	if err != nil {
		return "", "", err
	}
	return RenderTemplate(tmpl, data)
}

// RenderTemplate executes a template without touching the database.
func RenderTemplate(tmpl *models.EmailTemplate, data map[string]interface{}) (string, string, error) {
	subject, err := execute("subject", tmpl.Subject, data)
	if err != nil {
		return "", "", err
	}
	body, err := execute("body", tmpl.Body, data)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func execute(name, src string, data map[string]interface{}) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return buf.String(), nil
}
