package storage

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	objects       map[string][]byte
	bucketMissing bool
	created       bool
}

func newFakeS3(bucketMissing bool) *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), bucketMissing: bucketMissing}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.bucketMissing && !f.created {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = true
	return &s3.CreateBucketOutput{}, nil
}

func newTestClient(t *testing.T, api s3API) *Client {
	t.Helper()
	c := &Client{api: api, bucket: "meeting-audio", logger: slog.Default()}
	if err := c.ensureBucket(context.Background()); err != nil {
		t.Fatalf("ensure bucket: %v", err)
	}
	return c
}

func TestClient_UploadDownloadDelete(t *testing.T) {
	fake := newFakeS3(false)
	c := newTestClient(t, fake)
	ctx := context.Background()

	key, err := c.Upload(ctx, "meetings/abc.wav", []byte("audio-bytes"), "audio/wav")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if key != "meetings/abc.wav" {
		t.Fatalf("key=%q", key)
	}

	data, err := c.Download(ctx, key)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("data=%q", data)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Download(ctx, key); err == nil {
		t.Fatalf("expected download of deleted object to fail")
	}
}

func TestClient_CreatesMissingBucket(t *testing.T) {
	fake := newFakeS3(true)
	newTestClient(t, fake)
	if !fake.created {
		t.Fatalf("expected bucket to be created")
	}
}

func TestObjectName_KeepsExtensionAndIsUnique(t *testing.T) {
	a := ObjectName("Weekly Sync.WAV")
	b := ObjectName("Weekly Sync.WAV")
	if a == b {
		t.Fatalf("object names should be unique: %q", a)
	}
	if !strings.HasPrefix(a, "meetings/") || !strings.HasSuffix(a, ".wav") {
		t.Fatalf("object name=%q", a)
	}
}
