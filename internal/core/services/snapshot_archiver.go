package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/config"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

// SnapshotArchiver uploads finalized daily analytics snapshots to S3 for
// long-term retention. The stored database row remains authoritative; the
// archive is a cold copy for auditing and offline analysis.
type SnapshotArchiver struct {
	client     *s3.Client
	bucketName string
}

func NewSnapshotArchiver(cfg *config.Config) (*SnapshotArchiver, error) {
	if cfg.AWS.AccessKeyID == "" || cfg.AWS.SecretAccessKey == "" {
		return nil, fmt.Errorf("missing required AWS credentials")
	}

	if cfg.AWS.Region == "" {
		return nil, fmt.Errorf("AWS region must be specified")
	}

	if cfg.AWS.BucketName == "" {
		return nil, fmt.Errorf("AWS bucket name must be specified")
	}

	creds := credentials.NewStaticCredentialsProvider(
		cfg.AWS.AccessKeyID,
		cfg.AWS.SecretAccessKey,
		"",
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWS.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	return &SnapshotArchiver{
		client:     s3.NewFromConfig(awsCfg),
		bucketName: cfg.AWS.BucketName,
	}, nil
}

// ArchiveSnapshot uploads the snapshot as JSON keyed by its date and
// returns the object key.
func (a *SnapshotArchiver) ArchiveSnapshot(ctx context.Context, snapshot *models.AnalyticsSnapshot) (string, error) {
	log := gologger.WithComponent("snapshot_archiver")

	body, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := path.Join("analytics-snapshots", snapshot.SnapshotDate.Format("2006-01-02")+".json")

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		log.Error().Err(err).
			Str("bucket", a.bucketName).
			Str("key", key).
			Msg("Failed to upload analytics snapshot to S3")
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}

	log.Info().
		Str("bucket", a.bucketName).
		Str("key", key).
		Msg("Analytics snapshot archived to S3")

	return key, nil
}
