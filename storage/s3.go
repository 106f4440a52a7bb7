package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"papertrail/config"
)

// PutObjectAPI ist der Teil des S3-Clients, den PDFStore braucht.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client erstellt einen S3-Client für einen S3-kompatiblen Endpunkt (MinIO, HiDrive, AWS).
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	}), nil
}

// PDFStore legt Paper-PDFs in einem Bucket ab.
type PDFStore struct {
	client   PutObjectAPI
	bucket   string
	endpoint string
	log      *zap.Logger
}

// NewPDFStore erstellt einen PDFStore. endpoint bildet zusammen mit bucket
// und key die öffentliche URL.
func NewPDFStore(client PutObjectAPI, endpoint, bucket string, log *zap.Logger) *PDFStore {
	return &PDFStore{
		client:   client,
		bucket:   bucket,
		endpoint: strings.TrimRight(endpoint, "/"),
		log:      log,
	}
}

// Put lädt data hoch und gibt den Link zurück.
func (p *PDFStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", p.bucket, key, err)
	}
	link := fmt.Sprintf("%s/%s/%s", p.endpoint, p.bucket, key)
	p.log.Info("PDF uploaded", zap.String("key", key), zap.Int("bytes", len(data)))
	return link, nil
}
