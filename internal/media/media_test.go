package media_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-sitecms/internal/media"
	"github.com/goliatone/go-sitecms/pkg/testsupport"
)

func TestStorePutAndDelete(t *testing.T) {
	ctx := context.Background()
	backend := media.NewMemoryBackend("https://cdn.example.com")
	repo := media.NewMemoryRepository()
	store := media.NewStore(backend, repo, media.WithKeyPrefix("form-uploads"))

	record, err := store.Put(ctx, media.Object{Field: "cv", Filename: "My CV.PDF", ContentType: "application/pdf", Data: []byte("%PDF-1.4")})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(record.StorageKey, "form-uploads/"+record.ID.String()+"/") || !strings.HasSuffix(record.StorageKey, ".pdf") {
		t.Fatalf("unexpected storage key %q", record.StorageKey)
	}
	if !strings.HasPrefix(record.URL, "https://cdn.example.com/form-uploads/") {
		t.Fatalf("unexpected url %q", record.URL)
	}
	if record.Size != 8 || backend.Len() != 1 || repo.Len() != 1 {
		t.Fatalf("expected one stored object of 8 bytes")
	}

	if err := store.Delete(ctx, record.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if backend.Len() != 0 || repo.Len() != 0 {
		t.Fatal("expected blob and metadata to be removed")
	}
	if _, err := store.Get(ctx, record.ID); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRejectsEmptyObjects(t *testing.T) {
	store := media.NewStore(media.NewMemoryBackend(""), nil)
	if _, err := store.Put(context.Background(), media.Object{Filename: "x.txt"}); !errors.Is(err, media.ErrEmptyObject) {
		t.Fatalf("expected ErrEmptyObject, got %v", err)
	}
}

type failingRepo struct{ media.MemoryRepository }

func (f *failingRepo) Create(context.Context, *media.Media) (*media.Media, error) {
	return nil, errors.New("insert failed")
}

func TestStoreCleansUpBlobWhenMetadataFails(t *testing.T) {
	backend := media.NewMemoryBackend("")
	store := media.NewStore(backend, &failingRepo{})
	if _, err := store.Put(context.Background(), media.Object{Filename: "a.txt", ContentType: "text/plain", Data: []byte("a")}); err == nil {
		t.Fatal("expected metadata failure")
	}
	if backend.Len() != 0 {
		t.Fatal("expected orphan blob to be removed")
	}
}

func TestLocalBackend(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	backend, err := media.NewLocalBackend(root, "/uploads")
	if err != nil {
		t.Fatalf("new local backend: %v", err)
	}

	url, err := backend.Put(ctx, "media/1/a.txt", "text/plain", []byte("hello"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "/uploads/media/1/a.txt" {
		t.Fatalf("unexpected url %q", url)
	}
	data, err := os.ReadFile(filepath.Join(root, "media", "1", "a.txt"))
	if err != nil || string(data) != "hello" {
		t.Fatalf("expected file on disk, got %q %v", data, err)
	}
	if err := backend.Delete(ctx, "media/1/a.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := backend.Delete(ctx, "media/1/a.txt"); err != nil {
		t.Fatalf("deleting a missing file should be a no-op: %v", err)
	}
	if _, err := backend.Put(ctx, "../escape.txt", "text/plain", []byte("x")); err == nil {
		t.Fatal("expected keys escaping the root to be rejected")
	}
}

type fakeS3 struct {
	puts    map[string][]byte
	deletes []string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(in.Body)
	f.puts[*in.Bucket+"/"+*in.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Backend(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{puts: map[string][]byte{}}
	backend, err := media.NewS3Backend(client, media.S3Config{Bucket: "site", Region: "eu-west-1"})
	if err != nil {
		t.Fatalf("new s3 backend: %v", err)
	}

	url, err := backend.Put(ctx, "media/1/a.png", "image/png", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "https://site.s3.eu-west-1.amazonaws.com/media/1/a.png" {
		t.Fatalf("unexpected url %q", url)
	}
	if len(client.puts["site/media/1/a.png"]) != 3 {
		t.Fatal("expected object body to be uploaded")
	}
	if err := backend.Delete(ctx, "media/1/a.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(client.deletes) != 1 {
		t.Fatal("expected delete call")
	}

	if _, err := media.NewS3Backend(client, media.S3Config{}); err == nil {
		t.Fatal("expected bucket to be required")
	}
}

func TestBunRepository(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := testsupport.NewSQLiteMemoryDB()
	if err != nil {
		t.Fatalf("new sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	db.SetMaxOpenConns(1)
	if _, err := db.NewCreateTable().Model((*media.Media)(nil)).IfNotExists().Exec(ctx); err != nil {
		t.Fatalf("create table: %v", err)
	}

	store := media.NewStore(media.NewMemoryBackend(""), media.NewBunRepository(db))
	record, err := store.Put(ctx, media.Object{Filename: "notes.txt", ContentType: "text/plain", Data: []byte("notes")})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(ctx, record.ID)
	if err != nil || got.Filename != "notes.txt" {
		t.Fatalf("get: %v %v", got, err)
	}
	if err := store.Delete(ctx, record.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, record.ID); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
