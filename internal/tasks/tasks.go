package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"greendrake/estate/internal/config"
	"greendrake/estate/internal/email"
	"greendrake/estate/internal/logging"
	"greendrake/estate/internal/rules"
	"greendrake/estate/internal/services"
	"greendrake/estate/internal/utils"
)

// TaskType defines the type of a background task.
const (
	TypeInvoiceDelivery = "billing:invoice:deliver"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// RedisOpt reuses the connection settings of an existing client.
func RedisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(RedisOpt(rdb))
}

// InvoiceTaskPayload identifies the invoice to deliver.
type InvoiceTaskPayload struct {
	InvoiceID string `json:"invoice_id"`
}

// NewInvoiceDeliveryTask builds the task emailing one invoice.
func NewInvoiceDeliveryTask(invoiceID utils.SixID) (*asynq.Task, error) {
	payload, err := json.Marshal(InvoiceTaskPayload{InvoiceID: invoiceID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice task payload: %w", err)
	}
	return asynq.NewTask(TypeInvoiceDelivery, payload,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	), nil
}

// Enqueuer schedules invoice deliveries on asynq. It satisfies
// services.InvoiceDeliveryEnqueuer.
type Enqueuer struct {
	client *asynq.Client
	log    *zap.Logger
}

func NewEnqueuer(client *asynq.Client, logger *zap.Logger) *Enqueuer {
	return &Enqueuer{client: client, log: logging.OrNop(logger)}
}

func (e *Enqueuer) EnqueueInvoiceDelivery(ctx context.Context, invoiceID utils.SixID) error {
	task, err := NewInvoiceDeliveryTask(invoiceID)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue invoice delivery: %w", err)
	}
	e.log.Info("invoice delivery enqueued", zap.String("invoice_id", invoiceID.String()), zap.String("task_id", info.ID))
	return nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor holds the dependencies of the task handlers.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	billing     services.IBillingService
	parties     services.IPartyService
	properties  services.IPropertyService
	log         *zap.Logger
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	billing services.IBillingService,
	parties services.IPartyService,
	properties services.IPropertyService,
	logger *zap.Logger,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		billing:     billing,
		parties:     parties,
		properties:  properties,
		log:         logging.OrNop(logger).Named("tasks"),
	}
}

// Mux routes task types to the processor's handlers.
func (p *TaskProcessor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeInvoiceDelivery, p.HandleInvoiceDeliveryTask)
	return mux
}

// SetupServer configures the asynq server. The caller starts it with the
// processor's Mux and shuts it down.
func SetupServer(rdb *redis.Client, logger *zap.Logger) *asynq.Server {
	logger = logging.OrNop(logger).Named("asynq")
	return asynq.NewServer(
		RedisOpt(rdb),
		asynq.Config{
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
			},
			Logger: logger.Sugar(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed",
					zap.String("type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err))
			}),
		},
	)
}

// --- Task Handlers ---

// HandleInvoiceDeliveryTask emails an invoice to its partner and marks it sent.
// Already sent invoices are skipped.
func (p *TaskProcessor) HandleInvoiceDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload InvoiceTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal invoice task payload: %v: %w", err, asynq.SkipRetry)
	}
	invoiceID, err := utils.ParseSixID(payload.InvoiceID)
	if err != nil || invoiceID.IsZero() {
		return fmt.Errorf("invalid invoice ID %q in payload: %w", payload.InvoiceID, asynq.SkipRetry)
	}

	inv, err := p.billing.GetInvoice(ctx, invoiceID)
	if errors.Is(err, rules.ErrNotFound) {
		return fmt.Errorf("invoice %s: %v: %w", invoiceID, err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	if inv.Sent {
		p.log.Info("invoice already sent", zap.String("invoice_id", invoiceID.String()))
		return nil
	}

	partner, err := p.parties.GetPartner(ctx, inv.PartnerID)
	if errors.Is(err, rules.ErrNotFound) {
		return fmt.Errorf("partner of invoice %s: %v: %w", invoiceID, err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	if partner.Email == "" {
		p.log.Warn("partner has no email, invoice not delivered",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("partner_id", partner.ID.String()))
		return fmt.Errorf("partner %s has no email: %w", partner.ID, asynq.SkipRetry)
	}

	propertyName := ""
	if prop, err := p.properties.Get(ctx, inv.PropertyID); err == nil {
		propertyName = prop.Name
	}

	subject, raw := email.ComposeInvoice(p.cfg.SmtpFromAddress, partner, inv, propertyName)
	if err := p.emailSender.Send(ctx, []string{partner.Email}, subject, raw); err != nil {
		return fmt.Errorf("failed to send invoice %s: %w", invoiceID, err)
	}
	if err := p.billing.MarkInvoiceSent(ctx, invoiceID); err != nil {
		return fmt.Errorf("failed to mark invoice %s sent: %w", invoiceID, err)
	}
	p.log.Info("invoice delivered", zap.String("invoice_id", invoiceID.String()), zap.String("to", partner.Email))
	return nil
}
