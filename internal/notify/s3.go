package notify

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type S3Config struct {
	Bucket       string `json:"bucket"`
	Region       string `json:"region"`
	BaseEndpoint string `json:"base_endpoint"`
	AccessKey    string `json:"access_key"`
	SecretKey    string `json:"secret_key"`
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3Client builds a client for S3 or an S3-compatible store such as MinIO.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3DropSender stores each message as an .eml object instead of mailing it.
// Meant for staging environments where real delivery is unwanted.
type S3DropSender struct {
	client objectPutter
	bucket string
	from   Address
	now    func() time.Time
}

func NewS3DropSender(client objectPutter, bucket string, from Address) *S3DropSender {
	return &S3DropSender{client: client, bucket: bucket, from: from, now: time.Now}
}

func (s *S3DropSender) key() string {
	return fmt.Sprintf("mail/%s/%s.eml", s.now().UTC().Format("2006/01/02"), uuid.NewString())
}

func (s *S3DropSender) Send(ctx context.Context, m Message) error {
	raw, err := EncodeMIME(s.from, m)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key()),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("message/rfc822"),
	})
	if err != nil {
		return fmt.Errorf("s3 put: %w", err)
	}
	return nil
}
