package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	cw "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// CWLogsAPI is the subset of the CloudWatch Logs client used by the audit sink.
type CWLogsAPI interface {
	CreateLogGroup(ctx context.Context, in *cw.CreateLogGroupInput, optFns ...func(*cw.Options)) (*cw.CreateLogGroupOutput, error)
	PutRetentionPolicy(ctx context.Context, in *cw.PutRetentionPolicyInput, optFns ...func(*cw.Options)) (*cw.PutRetentionPolicyOutput, error)
	CreateLogStream(ctx context.Context, in *cw.CreateLogStreamInput, optFns ...func(*cw.Options)) (*cw.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, in *cw.PutLogEventsInput, optFns ...func(*cw.Options)) (*cw.PutLogEventsOutput, error)
}

// STSAPI is the subset of the STS client used to resolve the account.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// AWSClient holds AWS service clients used by the audit sink.
type AWSClient struct {
	Config    aws.Config
	CWLogs    CWLogsAPI
	STS       STSAPI
	Region    string
	AccountID string
}

// NewAWS creates a new AWSClient for the provided region (if empty, uses default chain)
func NewAWS(ctx context.Context, region string) (*AWSClient, error) {
	var cfg aws.Config
	var err error
	if strings.TrimSpace(region) == "" {
		cfg, err = config.LoadDefaultConfig(ctx)
	} else {
		cfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(region))
	}
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	c := &AWSClient{
		Config: cfg,
		CWLogs: cw.NewFromConfig(cfg),
		STS:    sts.NewFromConfig(cfg),
		Region: cfg.Region,
	}

	accountID, err := getAccountID(ctx, c.STS)
	if err != nil {
		return nil, err
	}
	c.AccountID = accountID

	return c, nil
}

func getAccountID(ctx context.Context, stsClient STSAPI) (string, error) {
	result, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("getting account ID: %w", err)
	}
	return aws.ToString(result.Account), nil
}
