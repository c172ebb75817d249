package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnmchuo/sauce-usage/internal/usage"
)

const wantCSV = "User,Year,Month,Jobs,Time (seconds)\n" +
	"zeta,2018,01,5,200\n" +
	"zeta,2018,02,1,30\n" +
	"alpha,2017,12,7,70\n"

func sampleReport(t *testing.T) *usage.Report {
	t.Helper()
	rep := usage.NewReport()
	require.NoError(t, rep.Add("zeta", usage.Monthly{
		"2018-02": {Jobs: 1, Seconds: 30},
		"2018-01": {Jobs: 5, Seconds: 200},
	}))
	require.NoError(t, rep.Add("empty", usage.Monthly{}))
	require.NoError(t, rep.Add("alpha", usage.Monthly{"2017-12": {Jobs: 7, Seconds: 70}}))
	return rep
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport(t)))
	assert.Equal(t, wantCSV, buf.String())
}

func TestWriteCSV_EmptyReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, usage.NewReport()))
	assert.Equal(t, "User,Year,Month,Jobs,Time (seconds)\n", buf.String())
}

func TestWriteCSV_FractionalSeconds(t *testing.T) {
	rep := usage.NewReport()
	require.NoError(t, rep.Add("a", usage.Monthly{"2018-01": {Jobs: 3, Seconds: 12.5}}))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rep))
	assert.Contains(t, buf.String(), "a,2018,01,3,12.5\n")
}

func TestWriteCSV_QuotesAccountNames(t *testing.T) {
	rep := usage.NewReport()
	require.NoError(t, rep.Add("team, qa", usage.Monthly{"2018-01": {Jobs: 1, Seconds: 1}}))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rep))
	assert.Contains(t, buf.String(), "\"team, qa\",2018,01,1,1\n")
}

func TestOpen(t *testing.T) {
	var stdout bytes.Buffer

	s, err := Open("-", &stdout)
	require.NoError(t, err)
	require.IsType(t, &WriterSink{}, s)
	require.NoError(t, s.Write(context.Background(), sampleReport(t)))
	assert.Equal(t, wantCSV, stdout.String())

	s, err = Open("out/report.csv", &stdout)
	require.NoError(t, err)
	assert.Equal(t, "out/report.csv", s.String())

	_, err = Open("", &stdout)
	assert.Error(t, err)

	_, err = Open("s3://bucket", &stdout)
	assert.Error(t, err)
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "usage.csv")
	s := &FileSink{Path: path}

	require.NoError(t, s.Write(context.Background(), sampleReport(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, wantCSV, string(data))
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := ParseS3URL("s3://reports/usage/2018.csv")
	require.NoError(t, err)
	assert.Equal(t, "reports", bucket)
	assert.Equal(t, "usage/2018.csv", key)

	for _, bad := range []string{"s3://", "s3://bucket/", "s3://bucket/dir/", "http://bucket/key", "s3:///key"} {
		_, _, err := ParseS3URL(bad)
		assert.Error(t, err, bad)
	}
}

func TestDefaultFileName(t *testing.T) {
	now := time.Date(2018, 3, 4, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "parent-usage-2018-03-04.csv", DefaultFileName("parent", now))
}

type mockS3 struct {
	s3iface.S3API
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (m *mockS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	m.input = in
	m.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, m.err
}

func TestS3Sink(t *testing.T) {
	client := &mockS3{}
	s := NewS3SinkWithClient("reports", "usage/parent.csv", client)

	require.NoError(t, s.Write(context.Background(), sampleReport(t)))
	assert.Equal(t, "reports", aws.StringValue(client.input.Bucket))
	assert.Equal(t, "usage/parent.csv", aws.StringValue(client.input.Key))
	assert.Equal(t, "text/csv", aws.StringValue(client.input.ContentType))
	assert.Equal(t, wantCSV, string(client.body))
	assert.Equal(t, "s3://reports/usage/parent.csv", s.String())
}

func TestS3Sink_Error(t *testing.T) {
	s := NewS3SinkWithClient("reports", "k.csv", &mockS3{err: errors.New("access denied")})
	err := s.Write(context.Background(), sampleReport(t))
	assert.ErrorContains(t, err, "access denied")
	assert.ErrorContains(t, err, "s3://reports/k.csv")
}
