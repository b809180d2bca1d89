package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/time/rate"

	"github.com/AIRpwnz/b2purge/config"
	"github.com/AIRpwnz/b2purge/model"

	s3config "github.com/aws/aws-sdk-go-v2/config"
)

var _ StorageProvider = (*B2Storage)(nil)

// I created an interface so the S3 client can be tested by providing a custom implementation.
type S3VersionsAPI interface {
	ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// B2Storage talks to Backblaze B2 through its S3-compatible endpoint.
type B2Storage struct {
	client           S3VersionsAPI
	config           *config.B2Config
	common           *config.CommonStorageConfig
	limiter          *rate.Limiter
	requestCount     int64      // Total requests made
	lastRequestCount int64      // Request count at last RPS calculation
	lastRPS          int64      // Last calculated RPS
	lastRPSTime      time.Time  // Time of last RPS calculation
	mu               sync.Mutex // Protects RPS calculation fields
}

func NewB2Storage(cfg *config.B2Config, common *config.CommonStorageConfig) (*B2Storage, error) {
	ctx := context.TODO()

	// Apply defaults to common config
	common.ApplyDefaults()

	// default 0
	var limiter *rate.Limiter
	if common.MaxRPS > 0 {
		// Create rate limiter
		limiter = rate.NewLimiter(rate.Limit(common.MaxRPS), common.MaxRPS) // burst = MaxRPS
	}

	// For S3-compatible storage, region is often just a placeholder
	// Use provided region or default to "us-east-1"
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := s3config.LoadDefaultConfig(
		ctx,
		s3config.WithRegion(region),
		s3config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.ApplicationKeyID, cfg.ApplicationKey, "")),
		// Suppress AWS SDK logging warnings about missing checksums
		s3config.WithClientLogMode(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		// Use path-style addressing for S3-compatible storage
		o.UsePathStyle = true
	})

	return &B2Storage{
		client:      client,
		config:      cfg,
		common:      common,
		limiter:     limiter,
		lastRPSTime: time.Now(),
	}, nil
}

// acquire waits on the rate limiter, counts the request and returns a
// per-call timeout context. The caller must call cancel.
func (c *B2Storage) acquire(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("rate limiter error: %w", err)
		}
	}
	atomic.AddInt64(&c.requestCount, 1)

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(c.common.TimeoutSeconds)*time.Second)
	return reqCtx, cancel, nil
}

// CheckAccess performs a HeadBucket call to verify the credentials and the
// bucket before enumeration starts.
func (c *B2Storage) CheckAccess(ctx context.Context) error {
	reqCtx, cancel, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = c.client.HeadBucket(reqCtx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.Bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s is not accessible: %w", c.config.Bucket, err)
	}
	return nil
}

// ListVersionsStream walks the version listing page by page and streams
// records without ever materializing the full listing. Delete markers are
// streamed too (size 0), they are versions like any other.
func (c *B2Storage) ListVersionsStream(ctx context.Context, prefix string) (<-chan model.RemoteVersion, <-chan error) {
	versionsCh := make(chan model.RemoteVersion, 1000)
	errCh := make(chan error, 1)

	go func() {
		defer close(versionsCh)
		defer close(errCh)

		input := &s3.ListObjectVersionsInput{
			Bucket: aws.String(c.config.Bucket),
			Prefix: aws.String(prefix),
		}

		for {
			output, err := c.listPage(ctx, input)
			if err != nil {
				select {
				case errCh <- fmt.Errorf("failed to list versions in %s: %w", prefix, err):
				case <-ctx.Done():
				}
				return
			}

			for _, v := range output.Versions {
				key := aws.ToString(v.Key)

				// Skip folder marker objects (keys ending with '/')
				if strings.HasSuffix(key, "/") {
					continue
				}

				select {
				case versionsCh <- model.RemoteVersion{
					ID:              aws.ToString(v.VersionId),
					Name:            key,
					Size:            aws.ToInt64(v.Size),
					UploadTimestamp: aws.ToTime(v.LastModified).UnixMilli(),
				}:
				case <-ctx.Done():
					return
				}
			}

			for _, m := range output.DeleteMarkers {
				select {
				case versionsCh <- model.RemoteVersion{
					ID:              aws.ToString(m.VersionId),
					Name:            aws.ToString(m.Key),
					UploadTimestamp: aws.ToTime(m.LastModified).UnixMilli(),
				}:
				case <-ctx.Done():
					return
				}
			}

			if output.IsTruncated != nil && aws.ToBool(output.IsTruncated) {
				input.KeyMarker = output.NextKeyMarker
				input.VersionIdMarker = output.NextVersionIdMarker
			} else {
				return
			}
		}
	}()

	return versionsCh, errCh
}

func (c *B2Storage) listPage(ctx context.Context, input *s3.ListObjectVersionsInput) (*s3.ListObjectVersionsOutput, error) {
	reqCtx, cancel, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	return c.client.ListObjectVersions(reqCtx, input)
}

// DeleteVersion removes exactly one version identified by (id, name).
// The underlying SDK error is preserved in the chain so the caller can
// classify rate-limit responses.
func (c *B2Storage) DeleteVersion(ctx context.Context, id, name string) error {
	reqCtx, cancel, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = c.client.DeleteObject(reqCtx, &s3.DeleteObjectInput{
		Bucket:    aws.String(c.config.Bucket),
		Key:       aws.String(name),
		VersionId: aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete version %s of %s: %w", id, name, err)
	}
	return nil
}

// GetCurrentRPS calculates and returns the current requests per second rate
// This method is thread-safe and can be called periodically for monitoring
func (c *B2Storage) GetCurrentRPS() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(c.lastRPSTime).Seconds()

	// Only recalculate if at least 1 second has passed
	if elapsed >= 1.0 {
		currentCount := atomic.LoadInt64(&c.requestCount)
		requestsDelta := currentCount - c.lastRequestCount

		// Calculate RPS based on the delta and elapsed time
		c.lastRPS = int64(float64(requestsDelta) / elapsed)
		c.lastRequestCount = currentCount
		c.lastRPSTime = now
	}

	return c.lastRPS
}
