package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cw "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/raywall/mail-subscription-renewal/internal/client"
)

// CWLogsRepository encapsula operações da AWS CloudWatch Logs.
type CWLogsRepository struct {
	Client *client.AWSClient
}

// CreateLogGroupIfNotExists cria um Log Group e define a retenção.
func (r *CWLogsRepository) CreateLogGroupIfNotExists(ctx context.Context, name string, retentionDays int32) error {
	_, err := r.Client.CWLogs.CreateLogGroup(ctx, &cw.CreateLogGroupInput{
		LogGroupName: aws.String(name),
	})
	if err != nil {
		// Se já existe, ignora e continua para definir a retenção
		if !client.IsAPIErrorCode(err, "ResourceAlreadyExistsException") {
			return fmt.Errorf("CreateLogGroup: %w", err)
		}
	}

	_, err = r.Client.CWLogs.PutRetentionPolicy(ctx, &cw.PutRetentionPolicyInput{
		LogGroupName:    aws.String(name),
		RetentionInDays: aws.Int32(retentionDays),
	})
	if err != nil {
		return fmt.Errorf("PutRetentionPolicy: %w", err)
	}
	return nil
}

// CreateLogStreamIfNotExists cria o Log Stream dentro do grupo.
func (r *CWLogsRepository) CreateLogStreamIfNotExists(ctx context.Context, group, stream string) error {
	_, err := r.Client.CWLogs.CreateLogStream(ctx, &cw.CreateLogStreamInput{
		LogGroupName:  aws.String(group),
		LogStreamName: aws.String(stream),
	})
	if err != nil && !client.IsAPIErrorCode(err, "ResourceAlreadyExistsException") {
		return fmt.Errorf("CreateLogStream: %w", err)
	}
	return nil
}

// PutEvent grava um único evento de log.
func (r *CWLogsRepository) PutEvent(ctx context.Context, group, stream, message string, at time.Time) error {
	_, err := r.Client.CWLogs.PutLogEvents(ctx, &cw.PutLogEventsInput{
		LogGroupName:  aws.String(group),
		LogStreamName: aws.String(stream),
		LogEvents: []cwtypes.InputLogEvent{
			{
				Message:   aws.String(message),
				Timestamp: aws.Int64(at.UnixMilli()),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("PutLogEvents: %w", err)
	}
	return nil
}
