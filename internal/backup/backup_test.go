package backup

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/svdberg/tapwacht/internal/database"
)

// fakeS3 stores objects in memory.
type fakeS3 struct {
	objects map[string][]byte
	deleted []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(input.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(input.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(input.Key)
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(input.Prefix)
	var contents []types.Object
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			contents = append(contents, types.Object{Key: aws.String(key)})
		}
	}
	return &s3.ListObjectsV2Output{Contents: contents}, nil
}

func testManager(t *testing.T) (*Manager, *fakeS3) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := Config{
		S3:            S3Config{Bucket: "test", AccessKey: "k", SecretKey: "s"},
		Passphrase:    "test-passphrase",
		RetentionDays: 30,
	}
	m := NewManager(cfg, db)
	fake := newFakeS3()
	m.client = fake
	return m, fake
}

func TestManagerDisabledWithoutConfig(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(Config{}, db)
	if m.Status().State != StateDisabled {
		t.Errorf("state = %s, want disabled", m.Status().State)
	}
	if _, err := m.RunNow(context.Background()); err == nil {
		t.Error("RunNow on a disabled manager should fail")
	}
}

func TestRunNowUploadsEncryptedSnapshot(t *testing.T) {
	m, fake := testManager(t)

	key, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}
	if !strings.HasPrefix(key, keyPrefix) {
		t.Errorf("key = %q, want %q prefix", key, keyPrefix)
	}

	data, ok := fake.objects[key]
	if !ok {
		t.Fatal("snapshot was not uploaded")
	}
	// SQLite files start with a fixed header; the upload must not
	if bytes.HasPrefix(data, []byte("SQLite format 3")) {
		t.Error("uploaded snapshot is not encrypted")
	}
	plaintext, err := Decrypt(data, "test-passphrase")
	if err != nil {
		t.Fatalf("decrypt uploaded snapshot: %v", err)
	}
	if !bytes.HasPrefix(plaintext, []byte("SQLite format 3")) {
		t.Error("decrypted snapshot is not a SQLite database")
	}

	status := m.Status()
	if status.State != StateIdle || status.LastBackup == nil {
		t.Errorf("status after run = %+v", status)
	}
}

func TestListNewestFirst(t *testing.T) {
	m, fake := testManager(t)

	fake.objects[keyPrefix+"tapwacht-2026-01-01T030000Z.db.enc"] = []byte("a")
	fake.objects[keyPrefix+"tapwacht-2026-02-01T030000Z.db.enc"] = []byte("b")

	keys, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 || !strings.Contains(keys[0], "2026-02-01") {
		t.Errorf("keys = %v, want newest first", keys)
	}
}

func TestCleanupRemovesOldSnapshots(t *testing.T) {
	m, fake := testManager(t)

	old := keyPrefix + "tapwacht-2020-01-01T030000Z.db.enc"
	fake.objects[old] = []byte("ancient")

	recent, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	if err := m.Cleanup(context.Background()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if _, ok := fake.objects[old]; ok {
		t.Error("old snapshot should have been deleted")
	}
	if _, ok := fake.objects[recent]; !ok {
		t.Error("recent snapshot should have been kept")
	}
}
