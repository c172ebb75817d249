package sink

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/vnmchuo/sauce-usage/internal/usage"
)

// S3Sink uploads the CSV to a single object, overwriting it.
type S3Sink struct {
	Bucket string
	Key    string
	s3     s3iface.S3API
}

// NewS3Sink configures a client from the usual AWS environment and shared
// config files.
func NewS3Sink(bucket, key string) (*S3Sink, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return NewS3SinkWithClient(bucket, key, s3.New(sess)), nil
}

func NewS3SinkWithClient(bucket, key string, client s3iface.S3API) *S3Sink {
	return &S3Sink{Bucket: bucket, Key: key, s3: client}
}

func (s *S3Sink) Write(ctx context.Context, rep *usage.Report) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rep); err != nil {
		return err
	}

	_, err := s.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(s.Key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", s, err)
	}
	return nil
}

func (s *S3Sink) String() string {
	return fmt.Sprintf("s3://%s/%s", s.Bucket, s.Key)
}
