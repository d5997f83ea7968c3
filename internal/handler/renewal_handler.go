package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"github.com/raywall/mail-subscription-renewal/internal/client"
	"github.com/raywall/mail-subscription-renewal/internal/config"
	"github.com/raywall/mail-subscription-renewal/internal/service"
	"github.com/raywall/mail-subscription-renewal/pkg/types"
)

// Response is returned to the Lambda runtime; it serialises to {}.
type Response struct{}

// Renewer renews the webhook subscriptions of one inbox.
type Renewer interface {
	RenewSubscriptions(ctx context.Context, inbox string) (*types.RenewalResult, error)
}

// Recorder persists a renewal result somewhere outside the function logs.
type Recorder interface {
	Record(ctx context.Context, requestID string, result *types.RenewalResult) (string, error)
}

// RenewalHandler is the Lambda entrypoint. Collaborators are built per
// invocation from the environment.
type RenewalHandler struct {
	Logger      *zap.Logger
	LoadConfig  func() (config.Config, error)
	NewRenewer  func(ctx context.Context, cfg config.Config) (Renewer, error)
	NewRecorder func(ctx context.Context, cfg config.Config) (Recorder, error)
}

// New returns a RenewalHandler wired to Microsoft Graph and CloudWatch Logs.
func New(logger *zap.Logger) *RenewalHandler {
	return &RenewalHandler{
		Logger:      logger,
		LoadConfig:  config.Load,
		NewRenewer:  newMailClient,
		NewRecorder: newAuditService,
	}
}

// Handle renews the configured inbox's subscriptions once. The event payload
// may be any JSON value. Renewal failures are returned as is so the runtime
// marks the invocation failed.
func (h *RenewalHandler) Handle(ctx context.Context, event json.RawMessage) (Response, error) {
	requestID := ""
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		requestID = lc.AwsRequestID
	}
	log := h.Logger.With(zap.String("request_id", requestID), zap.String("event_id", eventID(event)))

	cfg, err := h.LoadConfig()
	if err != nil {
		return Response{}, fmt.Errorf("loading config: %w", err)
	}

	renewer, err := h.NewRenewer(ctx, cfg)
	if err != nil {
		return Response{}, fmt.Errorf("creating mail client: %w", err)
	}

	result, err := renewer.RenewSubscriptions(ctx, cfg.Inbox)
	if err != nil {
		return Response{}, fmt.Errorf("renewing subscriptions for %q: %w", cfg.Inbox, err)
	}
	log.Info("subscriptions renewed",
		zap.String("inbox", cfg.Inbox),
		zap.Int("renewed", result.Count()),
		zap.Any("result", result),
	)

	if cfg.AuditEnabled() {
		h.record(ctx, log, cfg, requestID, result)
	}

	return Response{}, nil
}

// record writes the result to the audit sink. The renewal already happened,
// so a failure here is logged and never fails the invocation.
func (h *RenewalHandler) record(ctx context.Context, log *zap.Logger, cfg config.Config, requestID string, result *types.RenewalResult) {
	log = log.With(zap.String("log_group", cfg.AuditLogGroup))

	recorder, err := h.NewRecorder(ctx, cfg)
	if err != nil {
		log.Error("creating audit sink failed", zap.Error(err))
		return
	}
	stream, err := recorder.Record(ctx, requestID, result)
	if err != nil {
		log.Error("recording renewal result failed", zap.Error(err))
		return
	}
	log.Debug("renewal result recorded", zap.String("log_stream", stream))
}

// eventID returns the "id" of an EventBridge event, or "" for any other payload.
func eventID(event json.RawMessage) string {
	var ev struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event, &ev); err != nil {
		return ""
	}
	return ev.ID
}

func newMailClient(ctx context.Context, cfg config.Config) (Renewer, error) {
	m, err := service.NewMailClient(ctx, cfg.ClientID, cfg.ClientSecret, cfg.TenantID,
		service.WithLifetime(cfg.SubscriptionLifetime()),
		service.WithGraphOptions(client.WithBaseURL(cfg.GraphBaseURL)),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func newAuditService(ctx context.Context, cfg config.Config) (Recorder, error) {
	a, err := service.NewAuditService(ctx, cfg.Region, cfg.AuditLogGroup, cfg.AuditRetentionDays)
	if err != nil {
		return nil, err
	}
	return a, nil
}
