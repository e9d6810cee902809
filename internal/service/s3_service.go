package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"doc-vault-server/config"
	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/metrics"
	"doc-vault-server/internal/model"
	"doc-vault-server/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const defaultContentType = "application/octet-stream"

// s3API : часть клиента S3, которой пользуется сервис
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type S3Service struct {
	client        s3API
	presign       func(ctx context.Context, key string, ttl time.Duration) (string, error)
	bucket        string
	publicBaseURL string
	presignTTL    time.Duration
	putTimeout    time.Duration
	breaker       *gobreaker.CircuitBreaker
}

func NewS3Service(ctx context.Context, cfg *config.S3Config) (*S3Service, error) {
	var client *s3.Client

	if cfg.Local {
		accessKey, secretKey := cfg.AccessKey, cfg.SecretKey
		if accessKey == "" {
			accessKey, secretKey = "minioadmin", "minioadmin"
		}
		client = s3.New(s3.Options{
			Region:       cfg.Region,
			Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
			BaseEndpoint: aws.String(cfg.Endpoint),
			UsePathStyle: true,
		})

		if err := createBucketIfNotExists(ctx, client, cfg.Bucket); err != nil {
			return nil, util.LogError("[S3Service] ошибка создания бакета", err)
		}
	} else {
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, util.LogError("[S3Service] ошибка загрузки AWS config", err)
		}
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
	}

	psClient := s3.NewPresignClient(client)
	service := newS3Service(client, cfg)
	service.presign = func(ctx context.Context, key string, ttl time.Duration) (string, error) {
		req, err := psClient.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(cfg.Bucket),
			Key:    aws.String(key),
		}, func(opts *s3.PresignOptions) {
			opts.Expires = ttl
		})
		if err != nil {
			return "", err
		}
		return req.URL, nil
	}

	return service, nil
}

func newS3Service(client s3API, cfg *config.S3Config) *S3Service {
	return &S3Service{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		presignTTL:    cfg.PresignTTL.Std(),
		putTimeout:    cfg.PutTimeout.Std(),
		breaker:       newBlobBreaker(cfg.Breaker),
	}
}

func newBlobBreaker(cfg config.BreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "blob-store",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval.Std(),
		Timeout:     cfg.Timeout.Std(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests || cfg.FailureRate <= 0 {
				return false
			}
			failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRate >= cfg.FailureRate
		},
		// отсутствующий объект и отменённый клиентом запрос не говорят о деградации хранилища
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, apperror.ErrBlobNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[S3Service] состояние предохранителя изменилось")
		},
	})
}

// createBucketIfNotExists создает бакет если он не существует
func createBucketIfNotExists(ctx context.Context, client *s3.Client, bucket string) error {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})

	if err == nil {
		return nil
	}

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})

	if err != nil {
		return util.LogError("[S3Service] ошибка создания бакета", err)
	}

	log.Info().Str("bucket", bucket).Msg("[S3Service] бакет успешно создан")
	return nil
}

// Put : загружает объект целиком, время ограничено putTimeout
func (s *S3Service) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	if s.putTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.putTimeout)
		defer cancel()
	}

	_, err := s.execute("put", func() (any, error) {
		return s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          body,
			ContentLength: aws.Int64(size),
			ContentType:   aws.String(contentType),
		})
	})
	if err != nil {
		return util.LogError("[S3Service] не удалось загрузить объект", err)
	}
	return nil
}

// Get : возвращается после получения заголовков, тело читается потоком
func (s *S3Service) Get(ctx context.Context, key string) (*model.BlobObject, error) {
	result, err := s.execute("get", func() (any, error) {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if isNotFound(err) {
			return nil, apperror.Wrap(apperror.ErrBlobNotFound, err)
		}
		return out, err
	})
	if err != nil {
		return nil, fmt.Errorf("[S3Service] не удалось получить объект %s: %w", key, err)
	}

	out := result.(*s3.GetObjectOutput)
	object := &model.BlobObject{
		Body:          out.Body,
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: -1,
	}
	if out.ContentLength != nil && *out.ContentLength >= 0 {
		object.ContentLength = *out.ContentLength
	}
	return object, nil
}

// Delete : отсутствующий объект считается уже удалённым
func (s *S3Service) Delete(ctx context.Context, key string) error {
	_, err := s.execute("delete", func() (any, error) {
		out, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if isNotFound(err) {
			return out, nil
		}
		return out, err
	})
	if err != nil {
		return util.LogError("[S3Service] не удалось удалить объект", err)
	}
	return nil
}

// PublicURL : ссылка для превью, из публичного адреса бакета или pre-signed GET
func (s *S3Service) PublicURL(ctx context.Context, key string) (string, error) {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}
	if s.presign == nil {
		return "", fmt.Errorf("[S3Service] публичные ссылки не настроены")
	}

	url, err := s.presign(ctx, key, s.presignTTL)
	if err != nil {
		return "", util.LogError("[S3Service] не удалось сгенерировать presigned GET URL", err)
	}
	return url, nil
}

// ListKeys : все объекты под префиксом, постранично
func (s *S3Service) ListKeys(ctx context.Context, prefix string) ([]model.BlobKey, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []model.BlobKey
	for paginator.HasMorePages() {
		result, err := s.execute("list", func() (any, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, util.LogError("[S3Service] не удалось получить список объектов", err)
		}

		page := result.(*s3.ListObjectsV2Output)
		for _, object := range page.Contents {
			keys = append(keys, model.BlobKey{
				Key:          aws.ToString(object.Key),
				LastModified: aws.ToTime(object.LastModified),
			})
		}
	}
	return keys, nil
}

func (s *S3Service) execute(op string, fn func() (any, error)) (any, error) {
	result, err := s.breaker.Execute(fn)
	switch {
	case err == nil:
		metrics.ObserveBlob(op, "ok")
	case errors.Is(err, apperror.ErrBlobNotFound):
		metrics.ObserveBlob(op, "not_found")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ObserveBlob(op, "rejected")
	default:
		metrics.ObserveBlob(op, "error")
	}
	return result, err
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
