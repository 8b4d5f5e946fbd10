package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/opencontainers/go-digest"

	"ifs-get/ifsget"
	"ifs-get/ifsget/config"
	ifserrors "ifs-get/ifsget/errors"
	"ifs-get/ifsget/logger"
)

// s3API is the slice of the S3 client this store uses; tests stub it.
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps IFS images in an S3 bucket, one object per published
// version: <prefix><componentID>/<version>.ifs. Ranged reads map to Range
// requests, so large images are never pulled whole.
type S3Store struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Store builds an S3-backed store from configuration. A non-empty
// endpoint (with path-style addressing) supports MinIO and other
// S3-compatible services.
func NewS3Store(ctx context.Context, cfg *config.S3Config) (*S3Store, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Info("S3 store ready: bucket=%s prefix=%q", cfg.Bucket, cfg.Prefix)
	return &S3Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3Store) key(id ifsget.ComponentID, version ifsget.Version) string {
	return fmt.Sprintf("%s%s/%d%s", s.prefix, id, uint64(version), imageSuffix)
}

func (s *S3Store) Exists(ctx context.Context, id ifsget.ComponentID, version ifsget.Version) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id, version)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Store) ListVersions(ctx context.Context, id ifsget.ComponentID) ([]ifsget.Version, error) {
	prefix := fmt.Sprintf("%s%s/", s.prefix, id)

	var versions []ifsget.Version
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if !strings.HasSuffix(name, imageSuffix) || strings.Contains(name, "/") {
				continue
			}
			v, err := strconv.ParseUint(strings.TrimSuffix(name, imageSuffix), 10, 64)
			if err != nil {
				logger.Warn("ignoring stray object in store: %s", aws.ToString(obj.Key))
				continue
			}
			versions = append(versions, ifsget.Version(v))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	// S3 lists keys lexically; version order is numeric.
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

func (s *S3Store) ReadRange(ctx context.Context, id ifsget.ComponentID, version ifsget.Version, offset int64, maxLen int64) ([]byte, error) {
	if offset < 0 {
		return nil, ifserrors.ErrRangeInvalid.WithDetail("offset", offset)
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id, version)),
	}
	if maxLen > 0 {
		input.Range = aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+maxLen-1))
	} else if offset > 0 {
		input.Range = aws.String(fmt.Sprintf("bytes=%d-", offset))
	}

	out, err := s.client.GetObject(ctx, input)
	if err != nil {
		if isS3NotFound(err) {
			return nil, notFound(id, version)
		}
		// S3 rejects ranges starting at or past the end of the object.
		// offset == size is a legal empty read under our contract.
		if isS3InvalidRange(err) {
			size, sizeErr := s.Size(ctx, id, version)
			if sizeErr != nil {
				return nil, sizeErr
			}
			if offset == size {
				return nil, nil
			}
			return nil, ifserrors.ErrRangeInvalid.
				WithDetail("offset", offset).
				WithDetail("size", size)
		}
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (s *S3Store) Size(ctx context.Context, id ifsget.ComponentID, version ifsget.Version) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id, version)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return 0, notFound(id, version)
		}
		return 0, err
	}
	return aws.ToInt64(out.ContentLength), nil
}

// Put uploads a new image object, digesting the content on the way in.
func (s *S3Store) Put(ctx context.Context, id ifsget.ComponentID, version ifsget.Version, r io.Reader) (digest.Digest, int64, error) {
	exists, err := s.Exists(ctx, id, version)
	if err != nil {
		return "", 0, err
	}
	if exists {
		return "", 0, ifserrors.ErrPublishConflict.
			WithDetail("component", string(id)).
			WithDetail("version", uint64(version))
	}

	digester := digest.SHA256.Digester()
	buf := &bytes.Buffer{}
	n, err := io.Copy(io.MultiWriter(buf, digester.Hash()), r)
	if err != nil {
		return "", 0, err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(id, version)),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(n),
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to put object: %w", err)
	}

	logger.Info("published %s@%d: %d bytes, %s", id, version, n, digester.Digest())
	return digester.Digest(), n, nil
}

func isS3NotFound(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	var noSuchObject *s3types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &noSuchObject)
}

func isS3InvalidRange(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidRange"
}
