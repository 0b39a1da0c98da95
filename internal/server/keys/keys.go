// Package keys loads signing key material at startup. A source is one of:
//
//	s3://bucket/path/to/key.pem   object in an S3-compatible bucket
//	base64:<data>                 inline, standard base64
//	file:///etc/tokenkeeper/key   local file
//	/etc/tokenkeeper/key          local file
//
// An empty source yields no key.
package keys

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// maxKeySize bounds what we are willing to read from any source.
const maxKeySize = 64 << 10

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) objectGetter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Config points the loader at an S3-compatible endpoint (AWS or MinIO).
type S3Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

type Loader struct {
	s3 S3Config
}

func NewLoader(c S3Config) *Loader {
	return &Loader{s3: c}
}

// Load resolves source into raw key bytes.
func (l *Loader) Load(ctx context.Context, source string) ([]byte, error) {
	switch {
	case source == "":
		return nil, nil
	case strings.HasPrefix(source, "s3://"):
		return l.loadS3(ctx, strings.TrimPrefix(source, "s3://"))
	case strings.HasPrefix(source, "base64:"):
		b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(source, "base64:"))
		if err != nil {
			return nil, fmt.Errorf("decode inline key: %w", err)
		}
		return b, nil
	default:
		return loadFile(strings.TrimPrefix(source, "file://"))
	}
}

func loadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open key file: %w", err)
	}
	defer f.Close()

	return readLimited(f)
}

func (l *Loader) loadS3(ctx context.Context, location string) ([]byte, error) {
	bucket, key, ok := strings.Cut(location, "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("invalid s3 location %q", location)
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(l.s3.Region)}
	if l.s3.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(l.s3.AccessKey, l.s3.SecretKey, ""),
		))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3Client(cfg, func(o *s3.Options) {
		if l.s3.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(l.s3.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	return readLimited(out.Body)
}

func readLimited(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxKeySize+1))
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	if len(b) > maxKeySize {
		return nil, errors.New("key material too large")
	}
	if len(b) == 0 {
		return nil, errors.New("key material is empty")
	}
	return b, nil
}
