package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yi-nology/mediable/biz/dal/db"
	"github.com/yi-nology/mediable/pkg/storage"
	"github.com/yi-nology/mediable/pkg/storage/memory"
	"github.com/yi-nology/mediable/pkg/validator"
)

var testNow = time.Date(2024, 5, 29, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	svc      *Service
	registry *Registry
	disks    *storage.Manager
	public   *memory.Storage
	private  *memory.Storage
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	conn := db.SetupTestDB(t)
	t.Cleanup(func() { db.CleanupTestDB(t, conn) })

	env := &testEnv{
		registry: NewRegistry(),
		disks:    &storage.Manager{},
		public:   memory.New("http://media.test"),
		private:  memory.New(""),
	}
	env.disks.Add("public", env.public, validator.Policy{})
	env.disks.Add("private", env.private, validator.Policy{})

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	env.svc = NewService(conn, env.disks, env.registry, opts...)
	return env
}

// restrictedDisk adds a memory disk named name with policy and returns it.
func (e *testEnv) restrictedDisk(name string, policy validator.Policy) *memory.Storage {
	st := memory.New("")
	e.disks.Add(name, st, policy)
	return st
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// hookedStorage runs beforeCreate ahead of every exclusive write.
type hookedStorage struct {
	*memory.Storage
	beforeCreate func(p string)
}

func (h *hookedStorage) Create(ctx context.Context, p string, data io.Reader, contentType string, size int64) error {
	if h.beforeCreate != nil {
		h.beforeCreate(p)
	}
	return h.Storage.Create(ctx, p, data, contentType, size)
}

// hookPublic routes the public disk through a hookedStorage.
func (e *testEnv) hookPublic(beforeCreate func(p string)) {
	e.disks.Add("public", &hookedStorage{Storage: e.public, beforeCreate: beforeCreate}, validator.Policy{})
}
