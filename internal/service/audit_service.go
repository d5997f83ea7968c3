package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/raywall/mail-subscription-renewal/internal/client"
	"github.com/raywall/mail-subscription-renewal/internal/repository"
	"github.com/raywall/mail-subscription-renewal/pkg/types"
)

// AuditService writes each renewal result to CloudWatch Logs.
type AuditService struct {
	CWLogsRepo    *repository.CWLogsRepository
	Client        *client.AWSClient
	LogGroup      string
	RetentionDays int32

	now func() time.Time
}

// NewAuditService resolves AWS credentials and the account for the audit sink.
func NewAuditService(ctx context.Context, region, logGroup string, retentionDays int32) (*AuditService, error) {
	awsClient, err := client.NewAWS(ctx, region)
	if err != nil {
		return nil, err
	}
	return &AuditService{
		CWLogsRepo:    &repository.CWLogsRepository{Client: awsClient},
		Client:        awsClient,
		LogGroup:      logGroup,
		RetentionDays: retentionDays,
		now:           time.Now,
	}, nil
}

// Record writes the result as one JSON event and returns the stream it went to.
func (s *AuditService) Record(ctx context.Context, requestID string, result *types.RenewalResult) (string, error) {
	now := s.now().UTC()
	stream := streamName(now, requestID)

	msg, err := json.Marshal(types.AuditRecord{
		AccountID: s.Client.AccountID,
		Region:    s.Client.Region,
		RequestID: requestID,
		Result:    result,
	})
	if err != nil {
		return "", fmt.Errorf("marshal audit record: %w", err)
	}

	if err := s.CWLogsRepo.CreateLogGroupIfNotExists(ctx, s.LogGroup, s.RetentionDays); err != nil {
		return "", fmt.Errorf("audit log group setup failed: %w", err)
	}
	if err := s.CWLogsRepo.CreateLogStreamIfNotExists(ctx, s.LogGroup, stream); err != nil {
		return "", fmt.Errorf("audit log stream setup failed: %w", err)
	}
	if err := s.CWLogsRepo.PutEvent(ctx, s.LogGroup, stream, string(msg), now); err != nil {
		return "", fmt.Errorf("audit write failed: %w", err)
	}
	return stream, nil
}

// streamName follows the Lambda convention of date-prefixed streams.
func streamName(at time.Time, requestID string) string {
	if requestID == "" {
		requestID = "local"
	}
	return fmt.Sprintf("%s/%s", at.Format("2006/01/02"), requestID)
}
