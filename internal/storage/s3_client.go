package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/config"
)

const backupContentType = "application/json"

type S3Config struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PresignTTL time.Duration
}

func S3ConfigFrom(cfg *appconfig.Config) S3Config {
	return S3Config{
		Region:     cfg.S3Region,
		Bucket:     cfg.S3Bucket,
		AccessKey:  cfg.S3AccessKey,
		SecretKey:  cfg.S3SecretKey,
		Endpoint:   cfg.S3Endpoint,
		PresignTTL: time.Duration(cfg.S3PresignTTLMin) * time.Minute,
	}
}

// PresignedRequest is a URL a client can use without AWS credentials.
type PresignedRequest struct {
	URL       string
	Method    string
	Headers   map[string]string
	ExpiresAt time.Time
}

// Presigner is implemented by Client. Backup services depend on it so tests
// can run without S3.
type Presigner interface {
	PresignPut(ctx context.Context, key string, sizeBytes int64) (PresignedRequest, error)
	PresignGet(ctx context.Context, key string) (PresignedRequest, error)
}

type Client struct {
	cfg     S3Config
	s3      *s3.Client
	presign *s3.PresignClient
}

func NewClient(ctx context.Context, cfg S3Config) (*Client, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 15 * time.Minute
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// MinIO and other S3-compatible endpoints need path-style addressing.
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		cfg:     cfg,
		s3:      s3Client,
		presign: s3.NewPresignClient(s3Client),
	}, nil
}

func (c *Client) PresignPut(ctx context.Context, key string, sizeBytes int64) (PresignedRequest, error) {
	if c == nil {
		return PresignedRequest{}, errors.New("s3 client not initialized")
	}
	if key == "" {
		return PresignedRequest{}, errors.New("object key is required")
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(backupContentType),
	}
	if sizeBytes > 0 {
		input.ContentLength = aws.Int64(sizeBytes)
	}

	presigned, err := c.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(c.cfg.PresignTTL))
	if err != nil {
		return PresignedRequest{}, err
	}

	headers := map[string]string{"Content-Type": backupContentType}
	if sizeBytes > 0 {
		headers["Content-Length"] = strconv.FormatInt(sizeBytes, 10)
	}
	return PresignedRequest{
		URL:       presigned.URL,
		Method:    presigned.Method,
		Headers:   headers,
		ExpiresAt: time.Now().Add(c.cfg.PresignTTL),
	}, nil
}

func (c *Client) PresignGet(ctx context.Context, key string) (PresignedRequest, error) {
	if c == nil {
		return PresignedRequest{}, errors.New("s3 client not initialized")
	}
	if key == "" {
		return PresignedRequest{}, errors.New("object key is required")
	}
	presigned, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.cfg.PresignTTL))
	if err != nil {
		return PresignedRequest{}, err
	}
	return PresignedRequest{
		URL:       presigned.URL,
		Method:    presigned.Method,
		ExpiresAt: time.Now().Add(c.cfg.PresignTTL),
	}, nil
}
