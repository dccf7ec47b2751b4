package coord

import (
	"fmt"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"

	auth "github.com/kachraalert/kachra-auth"
)

// RegisterCoordRoutes mounts the coordination API on a router group,
// normally rooted at /api/v1. Every route requires a bearer token; the
// admin routes additionally require the admin/driver account type.
func RegisterCoordRoutes[T any](app router.Router[T], opts ...CoordControllerOption) {
	controller := NewCoordController(opts...)

	protected := controller.Auther.ProtectedRoute(nil)
	adminOnly := controller.Auther.RequireAccountType(auth.AccountTypeAdminDriver)

	app.Get(controller.Routes.Alerts, controller.ListAlerts, protected).SetName("coord.alerts.list")
	app.Post(controller.Routes.Alerts, controller.BroadcastAlert, protected, adminOnly).SetName("coord.alerts.broadcast")
	app.Post(controller.Routes.AlertRead, controller.MarkAlertRead, protected).SetName("coord.alerts.read")
	app.Post(controller.Routes.AlertReadAll, controller.MarkAllAlertsRead, protected).SetName("coord.alerts.read-all")

	app.Get(controller.Routes.Invoices, controller.ListInvoices, protected).SetName("coord.invoices.list")
	app.Get(controller.Routes.InvoicesAll, controller.ListAllInvoices, protected, adminOnly).SetName("coord.invoices.all")
	app.Post(controller.Routes.Invoices, controller.IssueInvoice, protected, adminOnly).SetName("coord.invoices.issue")
	app.Post(controller.Routes.InvoicePay, controller.PayInvoice, protected).SetName("coord.invoices.pay")
	app.Get(controller.Routes.InvoicePayments, controller.ListPayments, protected, adminOnly).SetName("coord.invoices.payments")

	app.Get(controller.Routes.Schedules, controller.ListSchedules, protected).SetName("coord.schedules.list")
	app.Post(controller.Routes.Schedules, controller.CreateSchedule, protected, adminOnly).SetName("coord.schedules.create")
	app.Post(controller.Routes.ScheduleStatus, controller.UpdateScheduleStatus, protected, adminOnly).SetName("coord.schedules.status")
	app.Delete(controller.Routes.ScheduleDetail, controller.DeleteSchedule, protected, adminOnly).SetName("coord.schedules.delete")

	app.Get(controller.Routes.Reports, controller.ListReports, protected).SetName("coord.reports.list")
	app.Post(controller.Routes.Reports, controller.FileReport, protected).SetName("coord.reports.file")
	app.Get(controller.Routes.ReportsOpen, controller.ListOpenReports, protected, adminOnly).SetName("coord.reports.open")
	app.Post(controller.Routes.ReportStatus, controller.UpdateReportStatus, protected, adminOnly).SetName("coord.reports.status")
	app.Get(controller.Routes.ReportAttachment, controller.ReportAttachment, protected).SetName("coord.reports.attachment")
}

type CoordControllerRoutes struct {
	Alerts           string
	AlertRead        string
	AlertReadAll     string
	Invoices         string
	InvoicesAll      string
	InvoicePay       string
	InvoicePayments  string
	Schedules        string
	ScheduleStatus   string
	ScheduleDetail   string
	Reports          string
	ReportsOpen      string
	ReportStatus     string
	ReportAttachment string
}

type CoordController struct {
	Logger       Logger
	Alerts       *AlertService
	Billing      *BillingService
	Schedules    *ScheduleService
	Reports      *ReportService
	Auther       *auth.RouteAuthenticator
	Routes       *CoordControllerRoutes
	ErrorHandler router.ErrorHandler
}

type CoordControllerOption func(*CoordController) *CoordController

func WithCoordLogger(logger Logger) CoordControllerOption {
	return func(c *CoordController) *CoordController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithCoordServices(alerts *AlertService, billing *BillingService, schedules *ScheduleService, reports *ReportService) CoordControllerOption {
	return func(c *CoordController) *CoordController {
		c.Alerts = alerts
		c.Billing = billing
		c.Schedules = schedules
		c.Reports = reports
		return c
	}
}

func WithCoordAuther(auther *auth.RouteAuthenticator) CoordControllerOption {
	return func(c *CoordController) *CoordController {
		c.Auther = auther
		return c
	}
}

func NewCoordController(opts ...CoordControllerOption) *CoordController {
	c := &CoordController{
		Routes: &CoordControllerRoutes{
			Alerts:           "/alerts",
			AlertRead:        "/alerts/:id/read",
			AlertReadAll:     "/alerts/read-all",
			Invoices:         "/invoices",
			InvoicesAll:      "/invoices/all",
			InvoicePay:       "/invoices/:id/pay",
			InvoicePayments:  "/invoices/:id/payments",
			Schedules:        "/schedules",
			ScheduleStatus:   "/schedules/:id/status",
			ScheduleDetail:   "/schedules/:id",
			Reports:          "/reports",
			ReportsOpen:      "/reports/open",
			ReportStatus:     "/reports/:id/status",
			ReportAttachment: "/reports/:id/attachment",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Alerts == nil || c.Billing == nil || c.Schedules == nil || c.Reports == nil {
		panic("Missing services in coord controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in coord controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.Auther.ErrorHandler
	}

	return c
}

func (c *CoordController) ListAlerts(ctx router.Context) error {
	target := ctx.Query("target", "")

	alerts, err := c.Alerts.List(ctx.Context(), target, 100)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"alerts": alerts})
}

// BroadcastAlertRequest payload
type BroadcastAlertRequest struct {
	Title    string `form:"title" json:"title"`
	Body     string `form:"body" json:"body"`
	Severity string `form:"severity" json:"severity"`
	Target   string `form:"target" json:"target"`
}

// Validate will run validation rules
func (r BroadcastAlertRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Body, validation.Required, validation.Length(1, 2000)),
		validation.Field(&r.Severity, validation.Required,
			validation.In(SeverityInfo, SeverityWarning, SeverityUrgent)),
		validation.Field(&r.Target, validation.Length(0, 200)),
	)
}

func (c *CoordController) BroadcastAlert(ctx router.Context) error {
	userID, err := c.callerID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(BroadcastAlertRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.validationError(ctx, map[string]string{"payload": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, auth.FormatValidationErrorToMap(err))
	}

	alert, err := c.Alerts.Broadcast(ctx.Context(), userID, BroadcastAlertPayload{
		Title:    payload.Title,
		Body:     payload.Body,
		Severity: payload.Severity,
		Target:   payload.Target,
	})
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{"alert": alert})
}

func (c *CoordController) MarkAlertRead(ctx router.Context) error {
	userID, err := c.callerID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	alertID, err := c.paramID(ctx)
	if err != nil {
		return c.validationError(ctx, map[string]string{"id": "Invalid alert id"})
	}

	alert, err := c.Alerts.MarkRead(ctx.Context(), alertID, userID)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"alert": alert})
}

// MarkAllAlertsRead acknowledges every alert visible to the caller.
func (c *CoordController) MarkAllAlertsRead(ctx router.Context) error {
	userID, err := c.callerID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	target := ctx.Query("target", "")

	marked, err := c.Alerts.MarkAllRead(ctx.Context(), userID, target)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"marked": marked})
}

func (c *CoordController) ListInvoices(ctx router.Context) error {
	userID, err := c.callerID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	invoices, err := c.Billing.ListForUser(ctx.Context(), userID)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"invoices": invoices})
}

func (c *CoordController) ListAllInvoices(ctx router.Context) error {
	invoices, err := c.Billing.ListAll(ctx.Context(), 200)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"invoices": invoices})
}

// IssueInvoiceRequest payload
type IssueInvoiceRequest struct {
	UserID    string `form:"user_id" json:"user_id"`
	Period    string `form:"period" json:"period"`
	AmountNPR int64  `form:"amount_npr" json:"amount_npr"`
	DueAt     string `form:"due_at" json:"due_at"`
}

// Validate will run validation rules
func (r IssueInvoiceRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, validation.By(validUUIDRule)),
		validation.Field(&r.Period, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.AmountNPR, validation.Required, validation.Min(1)),
	)
}

func (c *CoordController) IssueInvoice(ctx router.Context) error {
	payload := new(IssueInvoiceRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.validationError(ctx, map[string]string{"payload": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, auth.FormatValidationErrorToMap(err))
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return c.validationError(ctx, map[string]string{"user_id": "Invalid user id"})
	}

	issue := IssueInvoicePayload{
		UserID:    userID,
		Period:    payload.Period,
		AmountNPR: payload.AmountNPR,
	}
	if payload.DueAt != "" {
		dueAt, err := parseISODate(payload.DueAt)
		if err != nil {
			return c.validationError(ctx, map[string]string{"due_at": "Expected YYYY-MM-DD"})
		}
		issue.DueAt = dueAt
	}

	invoice, err := c.Billing.Issue(ctx.Context(), issue)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{"invoice": invoice})
}

// PayInvoiceRequest payload
type PayInvoiceRequest struct {
	AmountNPR int64  `form:"amount_npr" json:"amount_npr"`
	Provider  string `form:"provider" json:"provider"`
	Reference string `form:"reference" json:"reference"`
}

// Validate will run validation rules
func (r PayInvoiceRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AmountNPR, validation.Required, validation.Min(1)),
		validation.Field(&r.Provider, validation.Required,
			validation.In(ProviderCash, ProviderKhalti, ProviderEsewa, ProviderTest)),
		validation.Field(&r.Reference, validation.Length(0, 200)),
	)
}

func (c *CoordController) PayInvoice(ctx router.Context) error {
	userID, err := c.callerID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	invoiceID, err := c.paramID(ctx)
	if err != nil {
		return c.validationError(ctx, map[string]string{"id": "Invalid invoice id"})
	}

	payload := new(PayInvoiceRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.validationError(ctx, map[string]string{"payload": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, auth.FormatValidationErrorToMap(err))
	}

	payment, err := c.Billing.Pay(ctx.Context(), PayInvoicePayload{
		InvoiceID: invoiceID,
		UserID:    userID,
		AmountNPR: payload.AmountNPR,
		Provider:  payload.Provider,
		Reference: payload.Reference,
	})
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{"payment": payment})
}

func (c *CoordController) ListPayments(ctx router.Context) error {
	invoiceID, err := c.paramID(ctx)
	if err != nil {
		return c.validationError(ctx, map[string]string{"id": "Invalid invoice id"})
	}

	payments, err := c.Billing.PaymentsForInvoice(ctx.Context(), invoiceID)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"payments": payments})
}

func (c *CoordController) ListSchedules(ctx router.Context) error {
	schedules, err := c.Schedules.ListUpcoming(ctx.Context(), 100)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"schedules": schedules})
}

// CreateScheduleRequest payload
type CreateScheduleRequest struct {
	Date      string `form:"date" json:"date"`
	TimeLabel string `form:"time_label" json:"time_label"`
	Waste     string `form:"waste" json:"waste"`
}

// Validate will run validation rules
func (r CreateScheduleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Date, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&r.TimeLabel, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Waste, validation.Required,
			validation.In(WasteOrganic, WasteRecyclable, WasteGeneral, WasteHazardous)),
	)
}

func (c *CoordController) CreateSchedule(ctx router.Context) error {
	userID, err := c.callerID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(CreateScheduleRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.validationError(ctx, map[string]string{"payload": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, auth.FormatValidationErrorToMap(err))
	}

	schedule, err := c.Schedules.Create(ctx.Context(), userID, CreateSchedulePayload{
		DateISO:   payload.Date,
		TimeLabel: payload.TimeLabel,
		Waste:     payload.Waste,
	})
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{"schedule": schedule})
}

// UpdateStatusRequest payload
type UpdateStatusRequest struct {
	Status string `form:"status" json:"status"`
}

// Validate will run validation rules
func (r UpdateStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required),
	)
}

func (c *CoordController) UpdateScheduleStatus(ctx router.Context) error {
	scheduleID, err := c.paramID(ctx)
	if err != nil {
		return c.validationError(ctx, map[string]string{"id": "Invalid schedule id"})
	}

	payload := new(UpdateStatusRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.validationError(ctx, map[string]string{"payload": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, auth.FormatValidationErrorToMap(err))
	}

	schedule, err := c.Schedules.UpdateStatus(ctx.Context(), scheduleID, payload.Status)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"schedule": schedule})
}

func (c *CoordController) DeleteSchedule(ctx router.Context) error {
	scheduleID, err := c.paramID(ctx)
	if err != nil {
		return c.validationError(ctx, map[string]string{"id": "Invalid schedule id"})
	}

	if err := c.Schedules.Delete(ctx.Context(), scheduleID); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"message": "Schedule removed"})
}

func (c *CoordController) ListReports(ctx router.Context) error {
	userID, err := c.callerID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	reports, err := c.Reports.ListForUser(ctx.Context(), userID)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"reports": reports})
}

func (c *CoordController) ListOpenReports(ctx router.Context) error {
	reports, err := c.Reports.ListOpen(ctx.Context(), 100)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"reports": reports})
}

// ReportAttachmentRequest is one inbound attachment. Data is base64 in
// the JSON body.
type ReportAttachmentRequest struct {
	Name     string `form:"name" json:"name"`
	MimeType string `form:"mime_type" json:"mime_type"`
	Data     []byte `form:"data" json:"data"`
}

// FileReportRequest payload
type FileReportRequest struct {
	Title       string                    `form:"title" json:"title"`
	Category    string                    `form:"category" json:"category"`
	Priority    string                    `form:"priority" json:"priority"`
	Description string                    `form:"description" json:"description"`
	Attachments []ReportAttachmentRequest `form:"attachments" json:"attachments"`
}

// Validate will run validation rules
func (r FileReportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Category, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Priority, validation.Length(0, 50)),
		validation.Field(&r.Description, validation.Required, validation.Length(1, 5000)),
		validation.Field(&r.Attachments, validation.Length(0, 5)),
	)
}

func (c *CoordController) FileReport(ctx router.Context) error {
	userID, err := c.callerID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(FileReportRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.validationError(ctx, map[string]string{"payload": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, auth.FormatValidationErrorToMap(err))
	}

	uploads := make([]AttachmentUpload, 0, len(payload.Attachments))
	for _, att := range payload.Attachments {
		uploads = append(uploads, AttachmentUpload{
			OriginalName: att.Name,
			MimeType:     att.MimeType,
			Data:         att.Data,
		})
	}

	report, err := c.Reports.File(ctx.Context(), userID, FileReportPayload{
		Title:       payload.Title,
		Category:    payload.Category,
		Priority:    payload.Priority,
		Description: payload.Description,
		Attachments: uploads,
	})
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{"report": report})
}

func (c *CoordController) UpdateReportStatus(ctx router.Context) error {
	reportID, err := c.paramID(ctx)
	if err != nil {
		return c.validationError(ctx, map[string]string{"id": "Invalid report id"})
	}

	payload := new(UpdateStatusRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.validationError(ctx, map[string]string{"payload": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, auth.FormatValidationErrorToMap(err))
	}

	report, err := c.Reports.UpdateStatus(ctx.Context(), reportID, payload.Status)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"report": report})
}

// ReportAttachment streams a stored attachment back to its owner or an
// admin. The blob key comes in as a query param since it contains slashes.
func (c *CoordController) ReportAttachment(ctx router.Context) error {
	userID, err := c.callerID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	reportID, err := c.paramID(ctx)
	if err != nil {
		return c.validationError(ctx, map[string]string{"id": "Invalid report id"})
	}

	key := ctx.Query("key", "")
	if key == "" {
		return c.validationError(ctx, map[string]string{"key": "Missing attachment key"})
	}

	data, att, err := c.Reports.Attachment(ctx.Context(), reportID, key)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if !auth.IsAccountTypeFromRouter(ctx, auth.AccountTypeAdminDriver) {
		report, err := c.Reports.repo.Reports().GetByID(ctx.Context(), reportID.String())
		if err != nil || report.CreatedBy != userID {
			return c.ErrorHandler(ctx, ErrNotOwner)
		}
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"attachment": att,
		"data":       data,
	})
}

func (c *CoordController) callerID(ctx router.Context) (uuid.UUID, error) {
	claims, ok := auth.GetRouterClaims(ctx, "")
	if !ok {
		return uuid.Nil, auth.ErrTokenMalformed
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, auth.ErrTokenMalformed
	}

	return id, nil
}

func (c *CoordController) paramID(ctx router.Context) (uuid.UUID, error) {
	return uuid.Parse(ctx.Param("id", ""))
}

func validUUIDRule(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("must be a valid UUID")
	}
	return nil
}

func parseISODate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

func (c *CoordController) validationError(ctx router.Context, fields map[string]string) error {
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"message":   "Validation failed",
			"text_code": "VALIDATION_ERROR",
			"fields":    fields,
		},
	})
}
