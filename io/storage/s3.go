package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/datarhei/settings/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	UseSSL          bool

	// Prefix is prepended to every key, e.g. "tenant-a/"
	Prefix string

	Logger log.Logger
}

type s3Storage struct {
	bucket string
	prefix string
	client *minio.Client
	logger log.Logger
}

// NewS3 returns an Adapter that stores each key as an object in an S3
// compatible bucket. The bucket will be created if it doesn't exist.
func NewS3(config S3Config) (Adapter, error) {
	s := &s3Storage{
		bucket: config.Bucket,
		prefix: config.Prefix,
		logger: config.Logger,
	}

	if s.logger == nil {
		s.logger = log.New("")
	}

	if len(s.bucket) == 0 {
		return nil, fmt.Errorf("no bucket provided")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Region: config.Region,
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("can't connect to s3 endpoint %s: %w", config.Endpoint, err)
	}

	s.logger = s.logger.WithFields(log.Fields{
		"type":     "s3",
		"bucket":   config.Bucket,
		"region":   config.Region,
		"endpoint": config.Endpoint,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, s.bucket)
	if err != nil {
		s.logger.WithError(err).Log("Can't access bucket")
		return nil, fmt.Errorf("can't access bucket %s: %w", s.bucket, err)
	}

	if !exists {
		err = client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: config.Region})
		if err != nil {
			s.logger.WithError(err).Log("Can't create bucket")
			return nil, fmt.Errorf("can't create bucket %s: %w", s.bucket, err)
		}

		s.logger.Debug().Log("Bucket created")
	}

	s.client = client

	return s, nil
}

func (s *s3Storage) Type() string {
	return "s3"
}

func (s *s3Storage) objectName(key string) string {
	return path.Join(s.prefix, key+".json")
}

func (s *s3Storage) Read(ctx context.Context, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(err)
	}

	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, s.mapError(err)
	}

	return data, nil
}

func (s *s3Storage) Write(ctx context.Context, key string, data []byte) error {
	name := s.objectName(key)

	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:      "application/json",
		DisableMultipart: true,
	})
	if err != nil {
		s.logger.WithError(err).WithField("key", name).Log("Failed to store object")
		return err
	}

	s.logger.Debug().WithField("key", name).Log("Stored")

	return nil
}

func (s *s3Storage) Remove(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.objectName(key), minio.RemoveObjectOptions{})
	if err != nil {
		if s.mapError(err) == ErrNotExist {
			return nil
		}

		return err
	}

	return nil
}

func (s *s3Storage) mapError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrNotExist
	}

	return err
}
