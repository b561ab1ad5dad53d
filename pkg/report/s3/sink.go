package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"file2pcie/pkg/report"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Config 用于初始化 Sink
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string // 对象键前缀，例如 "reports/"
	AccessKeyID     string
	SecretAccessKey string
}

// Sink 把报告上传为 <prefix>aa/bbcc... 对象
type Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewSink(ctx context.Context, cfg Config) (*Sink, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// MinIO 需要 Path Style: http://host:9000/bucket/key
		o.UsePathStyle = true
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
			// 并发创建或权限不足时继续，真正的问题会在 Publish 时暴露
			slog.Warn("failed to ensure report bucket exists", slog.String("bucket", cfg.Bucket), slog.Any("err", err))
		}
	}

	return &Sink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *Sink) key(id string) string {
	return s.prefix + report.Key(id)
}

func (s *Sink) Publish(ctx context.Context, id string, data []byte) error {
	exists, err := s.Has(ctx, id)
	if err != nil {
		return fmt.Errorf("s3 publish existence check failed: %w", err)
	}
	if exists {
		return nil
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(id)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(report.ContentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put failed: %w", err)
	}
	return nil
}

// Has 检查报告是否已上传
func (s *Sink) Has(ctx context.Context, id string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err == nil {
		return true, nil
	}

	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return false, nil
	}
	// 某些 S3 实现只返回一个通用的 404
	if strings.Contains(err.Error(), "404") {
		return false, nil
	}
	return false, err
}

// Load 下载并解码一份报告
func (s *Sink) Load(ctx context.Context, id string) (*report.Report, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("s3 read failed: %w", err)
	}
	return report.Decode(buf.Bytes())
}

func (s *Sink) Close() error { return nil }
