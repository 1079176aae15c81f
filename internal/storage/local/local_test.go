package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestBackend(t *testing.T) *LocalBackend {
	t.Helper()
	b, err := New(Config{RootPath: filepath.Join(t.TempDir(), "objects"), CreateDirs: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestPutGetDelete(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	body := `{"projectName":"demo"}`

	if err := b.PutObject(ctx, "projects/s1/demo.json", strings.NewReader(body), int64(len(body))); err != nil {
		t.Fatalf("PutObject: %v", err)
	}

	rc, size, err := b.GetObject(ctx, "projects/s1/demo.json")
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != body || size != int64(len(body)) {
		t.Errorf("got %q (%d bytes)", data, size)
	}

	ok, err := b.ObjectExists(ctx, "projects/s1/demo.json")
	if err != nil || !ok {
		t.Errorf("ObjectExists = %v, %v", ok, err)
	}

	if err := b.DeleteObject(ctx, "projects/s1/demo.json"); err != nil {
		t.Fatal(err)
	}
	if err := b.DeleteObject(ctx, "projects/s1/demo.json"); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if _, _, err := b.GetObject(ctx, "projects/s1/demo.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestPutSizeMismatch(t *testing.T) {
	b := newTestBackend(t)
	err := b.PutObject(context.Background(), "k.json", strings.NewReader("abc"), 10)
	if err == nil {
		t.Fatal("expected size mismatch error")
	}
	if ok, _ := b.ObjectExists(context.Background(), "k.json"); ok {
		t.Error("partial object left behind")
	}
}

func TestKeysStayInsideRoot(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	if err := b.PutObject(ctx, "../../escape.json", strings.NewReader("x"), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(b.rootPath, "escape.json")); err != nil {
		t.Errorf("object not stored under root: %v", err)
	}
}

func TestListObjects(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	for _, k := range []string{"projects/a/2.json", "projects/a/1.json", "projects/b/1.json"} {
		if err := b.PutObject(ctx, k, strings.NewReader("{}"), 2); err != nil {
			t.Fatal(err)
		}
	}

	got, err := b.ListObjects(ctx, "projects/a/")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Key != "projects/a/1.json" || got[1].Key != "projects/a/2.json" {
		t.Errorf("ListObjects = %+v", got)
	}
	if got[0].Size != 2 {
		t.Errorf("size = %d", got[0].Size)
	}
}
