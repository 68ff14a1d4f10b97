package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/attachkit/file"
	"github.com/dmitrymomot/attachkit/pkg/logger"
)

const (
	// originalFilenameKey is the object metadata key holding the unsanitized name.
	originalFilenameKey = "original-filename"
	deleteBatchSize     = 1000
)

// S3Client defines the interface for S3 operations used by S3Storage.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3ListObjectsV2Paginator defines the interface for paginated list operations.
type S3ListObjectsV2Paginator interface {
	HasMorePages() bool
	NextPage(ctx context.Context, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// PaginatorFactory creates a paginator for a list request.
type PaginatorFactory func(client S3Client, params *s3.ListObjectsV2Input) S3ListObjectsV2Paginator

// S3Storage implements Storage for Amazon S3 and S3-compatible services.
// It is safe for concurrent use.
type S3Storage struct {
	client           S3Client
	bucket           string
	baseURL          string
	uploadTimeout    time.Duration
	nameFn           NameFunc
	paginatorFactory PaginatorFactory
	logger           *slog.Logger
}

// S3Option defines a function that configures S3Storage.
type S3Option func(*s3Options)

type s3Options struct {
	httpClient       *http.Client
	s3Client         S3Client
	s3ConfigOptions  []func(*awsconfig.LoadOptions) error
	s3ClientOptions  []func(*s3.Options)
	paginatorFactory PaginatorFactory
	uploadTimeout    time.Duration
	nameFn           NameFunc
	logger           *slog.Logger
}

// WithS3Client sets a custom pre-configured S3 client.
// Useful for testing with mocks.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) {
		o.s3Client = client
	}
}

// WithHTTPClient sets a custom HTTP client for S3 requests.
func WithHTTPClient(client *http.Client) S3Option {
	return func(o *s3Options) {
		o.httpClient = client
	}
}

// WithS3ConfigOption adds a custom AWS config option.
func WithS3ConfigOption(option func(*awsconfig.LoadOptions) error) S3Option {
	return func(o *s3Options) {
		o.s3ConfigOptions = append(o.s3ConfigOptions, option)
	}
}

// WithS3ClientOption adds a custom S3 client option.
func WithS3ClientOption(option func(*s3.Options)) S3Option {
	return func(o *s3Options) {
		o.s3ClientOptions = append(o.s3ClientOptions, option)
	}
}

// WithPaginatorFactory sets a custom paginator factory.
// Required for DeleteDir when the client is not an *s3.Client.
func WithPaginatorFactory(factory PaginatorFactory) S3Option {
	return func(o *s3Options) {
		o.paginatorFactory = factory
	}
}

// WithS3UploadTimeout sets the timeout for upload operations.
// If not set, no timeout is applied (context deadline from caller is used).
func WithS3UploadTimeout(timeout time.Duration) S3Option {
	return func(o *s3Options) {
		o.uploadTimeout = timeout
	}
}

// WithS3NameFunc sets how object names are generated for prefix paths.
func WithS3NameFunc(fn NameFunc) S3Option {
	return func(o *s3Options) {
		o.nameFn = fn
	}
}

// WithS3Logger sets the logger.
func WithS3Logger(l *slog.Logger) S3Option {
	return func(o *s3Options) {
		o.logger = l
	}
}

// NewS3Storage creates a new S3 storage instance.
func NewS3Storage(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Storage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	options := &s3Options{
		uploadTimeout: cfg.UploadTimeout,
	}
	if cfg.UUIDNames {
		options.nameFn = UUIDName
	}
	for _, opt := range opts {
		opt(options)
	}

	client := options.s3Client
	if client == nil {
		awsOptions := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}

		// Static credentials only when both parts are present; otherwise the default chain applies.
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretKey,
					"",
				)),
			)
		}

		if options.httpClient != nil {
			awsOptions = append(awsOptions, awsconfig.WithHTTPClient(options.httpClient))
		}
		awsOptions = append(awsOptions, options.s3ConfigOptions...)

		awsConfig, err := awsconfig.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToLoadConfig, err)
		}

		client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle

			for _, opt := range options.s3ClientOptions {
				opt(o)
			}
		})
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	paginatorFactory := options.paginatorFactory
	if paginatorFactory == nil {
		paginatorFactory = func(c S3Client, params *s3.ListObjectsV2Input) S3ListObjectsV2Paginator {
			if realClient, ok := c.(*s3.Client); ok {
				return s3.NewListObjectsV2Paginator(realClient, params)
			}
			// Mock clients must supply their own paginator
			return nil
		}
	}

	nameFn := options.nameFn
	if nameFn == nil {
		nameFn = SanitizedName
	}

	log := options.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &S3Storage{
		client:           client,
		bucket:           cfg.Bucket,
		baseURL:          baseURL,
		uploadTimeout:    options.uploadTimeout,
		nameFn:           nameFn,
		paginatorFactory: paginatorFactory,
		logger:           log.With(logger.Component("storage.s3"), logger.Bucket(cfg.Bucket)),
	}, nil
}

// classifyS3Error converts S3 errors to domain-specific errors.
func classifyS3Error(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s operation", ErrOperationTimeout, operation)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s operation", ErrOperationCanceled, operation)
	}

	var (
		nsk *types.NoSuchKey
		nf  *types.NotFound
		nsb *types.NoSuchBucket
	)
	switch {
	case errors.As(err, &nsk), errors.As(err, &nf):
		return fmt.Errorf("%w: %s", ErrFileNotFound, err)
	case errors.As(err, &nsb):
		return ErrBucketNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch code {
		case "AccessDenied":
			return fmt.Errorf("%w: %s operation", ErrAccessDenied, operation)
		case "RequestTimeout":
			return fmt.Errorf("%w: %s operation", ErrRequestTimeout, operation)
		case "SlowDown", "ServiceUnavailable":
			return fmt.Errorf("%w: %s operation", ErrServiceUnavailable, operation)
		case "InvalidObjectState":
			return fmt.Errorf("%w: %s operation", ErrInvalidObjectState, operation)
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrFileNotFound, err)
		case "NoSuchBucket":
			return ErrBucketNotFound
		default:
			return fmt.Errorf("%s operation failed (code: %s): %w", operation, code, err)
		}
	}

	return fmt.Errorf("%s operation failed: %w", operation, err)
}

// cleanKey strips the leading slash and rejects parent references.
func cleanKey(p string) (string, error) {
	p = strings.TrimPrefix(strings.ReplaceAll(p, `\`, "/"), "/")
	if strings.Contains(p, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	return p, nil
}

// Save uploads f to S3. The body is streamed from f.Open so the File is
// read exactly as its own Read would.
func (s *S3Storage) Save(ctx context.Context, f *file.File, p string) (*Object, error) {
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	if f == nil {
		return nil, ErrNilFile
	}
	if f.Empty() {
		return nil, ErrEmptyFile
	}

	key, err := cleanKey(objectKey(p, f, s.nameFn))
	if err != nil {
		return nil, err
	}

	// Size is read before sniffing touches the stream, and both before the body is opened.
	size := f.Size()
	mimeType := f.MIMEType()

	body, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToReadFile, err)
	}
	defer func() { _ = body.Close() }()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(mimeType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if name := f.OriginalFilename(); name != "" {
		input.Metadata = map[string]string{originalFilenameKey: name}
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		err = classifyS3Error(err, "upload file")
		s.logger.ErrorContext(ctx, "object upload failed", logger.Path(key), logger.Error(err))
		return nil, err
	}

	s.logger.DebugContext(ctx, "object uploaded",
		logger.Path(key),
		logger.Size(size),
		logger.MIMEType(mimeType),
	)

	name := path.Base(key)
	_, ext := file.SplitExtension(name)
	return &Object{
		Filename:         name,
		OriginalFilename: f.OriginalFilename(),
		Size:             size,
		MIMEType:         mimeType,
		Extension:        ext,
		RelativePath:     key,
	}, nil
}

// remoteObject is a downloaded object body that reports the metadata S3 returned.
type remoteObject struct {
	*bytes.Reader
	name        string
	contentType string
}

func (o *remoteObject) OriginalFilename() string { return o.name }
func (o *remoteObject) ContentType() string      { return o.contentType }

// Open downloads an object into memory and wraps it in a File that carries
// the stored content type and original filename.
func (s *S3Storage) Open(ctx context.Context, p string) (*file.File, error) {
	key, err := cleanKey(p)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyS3Error(err, "download file")
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToReadFile, err)
	}

	name := out.Metadata[originalFilenameKey]
	if name == "" {
		name = path.Base(key)
	}

	return file.FromReader(&remoteObject{
		Reader:      bytes.NewReader(data),
		name:        name,
		contentType: aws.ToString(out.ContentType),
	}), nil
}

// Delete removes a single object from S3.
func (s *S3Storage) Delete(ctx context.Context, p string) error {
	key, err := cleanKey(p)
	if err != nil {
		return err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classifyS3Error(err, "check file")
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classifyS3Error(err, "delete file")
	}

	s.logger.DebugContext(ctx, "object deleted", logger.Path(key))
	return nil
}

// DeleteDir removes all objects with the given prefix from S3.
func (s *S3Storage) DeleteDir(ctx context.Context, dir string) error {
	dir, err := cleanKey(dir)
	if err != nil {
		return err
	}
	if dir == "" {
		return fmt.Errorf("%w: refusing to delete bucket root", ErrInvalidPath)
	}
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}

	paginator := s.paginatorFactory(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(dir),
	})
	if paginator == nil {
		return ErrPaginatorNil
	}

	var objects []types.ObjectIdentifier
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return classifyS3Error(err, "list directory")
		}

		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}
	}

	if len(objects) == 0 {
		return fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
	}

	// DeleteObjects accepts at most 1000 keys per request
	var failed []error
	for i := 0; i < len(objects); i += deleteBatchSize {
		batch := objects[i:min(i+deleteBatchSize, len(objects))]
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: batch},
		})
		if err != nil {
			return classifyS3Error(err, "delete directory")
		}
		if out == nil || len(out.Errors) == 0 {
			continue
		}

		errs := make([]error, 0, len(out.Errors))
		for _, e := range out.Errors {
			errs = append(errs, fmt.Errorf("%s: %s", aws.ToString(e.Key), aws.ToString(e.Message)))
		}
		s.logger.WarnContext(ctx, "objects not deleted",
			logger.Group("batch", slog.Int("offset", i), logger.Count(len(batch))),
			logger.Errors(errs...),
		)
		failed = append(failed, errs...)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d objects under %s: %w",
			ErrFailedToDeleteDirectory, len(failed), len(objects), dir, errors.Join(failed...))
	}

	s.logger.DebugContext(ctx, "prefix deleted", logger.Path(dir), logger.Count(len(objects)))
	return nil
}

// Exists checks if an object exists in S3.
func (s *S3Storage) Exists(ctx context.Context, p string) bool {
	key, err := cleanKey(p)
	if err != nil {
		return false
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err == nil
}

// List returns all entries under a prefix (non-recursive).
func (s *S3Storage) List(ctx context.Context, dir string) ([]Entry, error) {
	prefix, err := cleanKey(dir)
	if err != nil {
		return nil, err
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, classifyS3Error(err, "list directory")
	}

	entries := make([]Entry, 0, len(resp.CommonPrefixes)+len(resp.Contents))

	for _, commonPrefix := range resp.CommonPrefixes {
		p := aws.ToString(commonPrefix.Prefix)
		entries = append(entries, Entry{
			Name:  strings.TrimSuffix(strings.TrimPrefix(p, prefix), "/"),
			Path:  p,
			IsDir: true,
		})
	}

	for _, obj := range resp.Contents {
		key := aws.ToString(obj.Key)
		if key == prefix {
			continue
		}
		name := strings.TrimPrefix(key, prefix)
		if strings.Contains(name, "/") {
			continue
		}
		entries = append(entries, Entry{
			Name: name,
			Path: key,
			Size: aws.ToInt64(obj.Size),
		})
	}

	return entries, nil
}

// URL returns the public URL for an object.
func (s *S3Storage) URL(p string) string {
	return s.baseURL + strings.TrimPrefix(p, "/")
}
