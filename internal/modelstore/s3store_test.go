package modelstore

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
)

type fakeS3Client struct {
	objects map[string][]byte
	modTime map[string]time.Time
}

func newFakeS3Client() *fakeS3Client {
	return &fakeS3Client{objects: map[string][]byte{}, modTime: map[string]time.Time{}}
}

func (f *fakeS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(params.Key)
	f.objects[key] = data
	f.modTime[key] = time.Now()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(params.Key)
	data, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	key := aws.ToString(params.Key)
	modified, ok := f.modTime[key]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{LastModified: aws.Time(modified)}, nil
}

func TestS3StorePersistThenLoadRoundTrips(t *testing.T) {
	client := newFakeS3Client()
	store := &S3Store{client: client, bucket: "models"}

	handle, err := store.Persist(context.Background(), []byte("artifact-bytes"), "PrintTime", "1.0.0")
	require.NoError(t, err)
	require.Contains(t, handle, "PrintTime/1.0.0/")

	data, lastModified, err := store.Load(context.Background(), handle)
	require.NoError(t, err)
	require.Equal(t, []byte("artifact-bytes"), data)
	require.Greater(t, lastModified, int64(0))
}

func TestS3StoreLoadMissingHandleErrors(t *testing.T) {
	client := newFakeS3Client()
	store := &S3Store{client: client, bucket: "models"}

	_, _, err := store.Load(context.Background(), "does/not/exist.model")
	require.Error(t, err)
}

var _ S3Client = (*fakeS3Client)(nil)
