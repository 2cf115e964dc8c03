package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yi-nology/mediable/biz/dal/db"
	"github.com/yi-nology/mediable/biz/dal/model"
	"github.com/yi-nology/mediable/pkg/mediaerr"
	"github.com/yi-nology/mediable/pkg/storage"
	"github.com/yi-nology/mediable/pkg/validator"
)

func TestUploadAssignsNameSizeAndPath(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	data := []byte("0123456789")

	asset, err := env.svc.Upload(ctx, FromBytes("photo", "image/png", data), UploadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "photo.png", asset.Name)
	assert.Equal(t, int64(10), asset.Size)
	assert.Equal(t, "2024/05/29/photo.png", asset.StoragePath())
	assert.Equal(t, "public", asset.Disk)
	assert.Equal(t, model.TypeFile, asset.Type)
	assert.Equal(t, "png", asset.Extension)
	assert.Empty(t, asset.ImageSize, "undecodable bytes have no dimensions")
	assert.Empty(t, asset.Conversions)

	rc, err := env.public.Get(ctx, asset.StoragePath())
	require.NoError(t, err)
	stored, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, data, stored)

	found, err := env.svc.FindByPath(ctx, "2024/05/29/photo.png", "")
	require.NoError(t, err)
	assert.Equal(t, asset.ID, found.ID)
}

func TestUploadRejectsBeforeWriting(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	images := env.restrictedDisk("images", validator.Policy{Extensions: []string{"jpg", "png"}})
	small := env.restrictedDisk("small", validator.Policy{MaxSize: 1048576})
	pdfs := env.restrictedDisk("pdfs", validator.Policy{MimeTypes: []string{"application/pdf"}})
	strict := env.restrictedDisk("strict", validator.Policy{
		MimeTypes:  []string{"application/pdf"},
		Extensions: []string{"pdf"},
		MaxSize:    1,
	})

	tests := []struct {
		name   string
		src    Source
		disk   string
		target error
		check  func(t *testing.T, err *mediaerr.Error)
	}{
		{
			name:   "extension not supported",
			src:    FromBytes("doc.exe", "", []byte("MZ\x90\x00")),
			disk:   "images",
			target: mediaerr.ErrExtensionNotSupported,
			check: func(t *testing.T, err *mediaerr.Error) {
				assert.Equal(t, []string{"jpg", "png"}, err.Allowed)
			},
		},
		{
			name:   "file too large",
			src:    FromBytes("big.png", "image/png", make([]byte, 5*1024*1024)),
			disk:   "small",
			target: mediaerr.ErrMaxFileSizeExceeded,
			check: func(t *testing.T, err *mediaerr.Error) {
				assert.Equal(t, int64(1048576), err.Limit)
				assert.Equal(t, "Maximum file size exceeded, max size: 1 MB", err.Error())
			},
		},
		{
			name:   "mime type not supported",
			src:    FromBytes("a.png", "image/png", []byte("x")),
			disk:   "pdfs",
			target: mediaerr.ErrMimeTypeNotSupported,
			check: func(t *testing.T, err *mediaerr.Error) {
				assert.Equal(t, []string{"application/pdf"}, err.Allowed)
			},
		},
		{
			name:   "mime checked before extension",
			src:    FromBytes("a.exe", "application/x-msdownload", []byte("too big")),
			disk:   "strict",
			target: mediaerr.ErrMimeTypeNotSupported,
		},
		{
			name:   "extension checked before size",
			src:    FromBytes("a.exe", "application/pdf", []byte("too big")),
			disk:   "strict",
			target: mediaerr.ErrExtensionNotSupported,
		},
		{
			name:   "extension not found",
			src:    FromBytes("README", "application/x-mediable-unknown", []byte("x")),
			disk:   "public",
			target: mediaerr.ErrExtensionNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Upload(ctx, tt.src, UploadOptions{Disk: tt.disk})
			require.ErrorIs(t, err, tt.target)
			if tt.check != nil {
				var mediaErr *mediaerr.Error
				require.True(t, errors.As(err, &mediaErr))
				tt.check(t, mediaErr)
			}
		})
	}

	for _, st := range []interface{ Files() []string }{env.public, images, small, pdfs, strict} {
		assert.Empty(t, st.Files())
	}
	all, err := env.svc.List(ctx, ListOptions{WithTrashed: true})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUploadWriteFailureCreatesNoRecord(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.public.FailWrites(errors.New("disk full"))

	_, err := env.svc.Upload(ctx, FromBytes("a.txt", "text/plain", []byte("hello")), UploadOptions{})
	require.ErrorIs(t, err, mediaerr.ErrUploadFailed)
	assert.Contains(t, err.Error(), "disk full")

	all, err := env.svc.List(ctx, ListOptions{WithTrashed: true})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUploadUnknownDisk(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Upload(context.Background(), FromBytes("a.txt", "", []byte("x")), UploadOptions{Disk: "nope"})
	assert.ErrorIs(t, err, storage.ErrDiskNotFound)
}

func TestUploadMeasuresImagesAndAvoidsCollisions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	data := pngBytes(t, 40, 20)

	first, err := env.svc.Upload(ctx, FromBytes("Été Photo!.PNG", "", data), UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ete-photo.png", first.Name)
	assert.Equal(t, "image/png", first.MimeType)
	assert.Equal(t, "40x20", first.ImageSize)
	assert.True(t, env.svc.IsImage(first))

	second, err := env.svc.Upload(ctx, FromReader("ete-photo.png", "image/png", bytes.NewReader(data)), UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ete-photo-1.png", second.Name)
	assert.Equal(t, "2024/05/29/ete-photo-1.png", second.StoragePath())

	renamed, err := env.svc.Upload(ctx, FromBytes("ignored.png", "", data), UploadOptions{Name: "cover.png"})
	require.NoError(t, err)
	assert.Equal(t, "cover.png", renamed.Name)

	assert.ElementsMatch(t, []string{
		"2024/05/29/ete-photo.png",
		"2024/05/29/ete-photo-1.png",
		"2024/05/29/cover.png",
	}, env.public.Files())
}

func TestUploadRecordsOwnerAndParent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := OwnerRef{Type: "user", ID: "42"}

	dir, err := env.svc.MakeDirectory(ctx, "albums", DirectoryOptions{Owner: user})
	require.NoError(t, err)
	assert.True(t, dir.IsDirectory())
	assert.Zero(t, dir.Size)
	assert.Empty(t, dir.StoragePath())

	asset, err := env.svc.Upload(ctx, FromBytes("a.png", "image/png", []byte("x")), UploadOptions{
		Owner:    user,
		ParentID: &dir.ID,
		Metadata: map[string]any{"alt": "a cat"},
	})
	require.NoError(t, err)
	require.NotNil(t, asset.UploadedByType)
	assert.Equal(t, "user", *asset.UploadedByType)
	assert.Equal(t, "42", *asset.UploadedByID)
	assert.Equal(t, dir.ID, *asset.ParentID)

	owners, err := env.svc.OwnersOf(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, model.DefaultChannel, owners[0].Channel)

	owned, err := env.svc.AssetsOf(ctx, user, "")
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	children, err := env.svc.Children(ctx, dir.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "a cat", children[0].Metadata["alt"])

	_, err = env.svc.Upload(ctx, FromBytes("b.png", "image/png", []byte("x")), UploadOptions{ParentID: &asset.ID})
	assert.ErrorIs(t, err, ErrNotDirectory)

	missing := "missing"
	_, err = env.svc.MakeDirectory(ctx, "x", DirectoryOptions{ParentID: &missing})
	assert.ErrorIs(t, err, ErrAssetNotFound)

	_, err = env.svc.Upload(ctx, FromBytes("c.png", "image/png", []byte("x")), UploadOptions{Owner: OwnerRef{Type: "user"}})
	assert.ErrorIs(t, err, ErrOwnerRequired)
}

func TestFromPath(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	dir := t.TempDir()
	local := filepath.Join(dir, "Holiday Snap.png")
	data := pngBytes(t, 8, 8)
	require.NoError(t, os.WriteFile(local, data, 0o644))

	src, err := FromPath(local)
	require.NoError(t, err)
	assert.Equal(t, "Holiday Snap.png", src.Name)
	assert.Equal(t, "image/png", src.MimeType)

	asset, err := env.svc.Upload(ctx, src, UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "holiday-snap.png", asset.Name)
	assert.Equal(t, int64(len(data)), asset.Size)
	assert.Equal(t, "8x8", asset.ImageSize)

	_, err = FromPath(filepath.Join(dir, "nope.png"))
	assert.ErrorIs(t, err, mediaerr.ErrFileNotFound)
}

func TestDetectMimeType(t *testing.T) {
	data := pngBytes(t, 2, 2)
	assert.Equal(t, "image/png", detectMimeType("", data))
	assert.Equal(t, "image/png", detectMimeType("application/octet-stream", data))
	assert.Equal(t, "text/plain", detectMimeType("text/plain", data))
}

func TestConcurrentUploadsOfOneNameKeepBothBlobs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// Both uploads reach the write for doc.txt before either proceeds.
	arrived := make(chan struct{}, 2)
	release := make(chan struct{})
	env.hookPublic(func(p string) {
		if p != "2024/05/29/doc.txt" {
			return
		}
		arrived <- struct{}{}
		<-release
	})
	go func() {
		<-arrived
		<-arrived
		close(release)
	}()

	contents := []string{"alpha", "beta"}
	assets := make([]*model.Asset, len(contents))
	errs := make([]error, len(contents))
	var wg sync.WaitGroup
	for i, content := range contents {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assets[i], errs[i] = env.svc.Upload(ctx, FromBytes("doc.txt", "text/plain", []byte(content)), UploadOptions{})
		}()
	}
	wg.Wait()

	paths := map[string]bool{}
	for i, content := range contents {
		require.NoError(t, errs[i])
		assert.Equal(t, content, string(readBlob(t, env, assets[i].StoragePath())))
		paths[assets[i].StoragePath()] = true
	}
	assert.Equal(t, map[string]bool{"2024/05/29/doc.txt": true, "2024/05/29/doc-1.txt": true}, paths)
}

func TestUploadKeepsBlobWhenPathClaimedByRecord(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// A record for doc.txt lands between the path check and the insert.
	var claimed bool
	env.hookPublic(func(p string) {
		if claimed {
			return
		}
		claimed = true
		path := p
		require.NoError(t, db.NewAssetDAO().Create(ctx, env.svc.logic.db, &model.Asset{
			Disk: "public", Name: "doc.txt", Path: &path,
		}))
	})

	asset, err := env.svc.Upload(ctx, FromBytes("doc.txt", "text/plain", []byte("mine")), UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "2024/05/29/doc-1.txt", asset.StoragePath())
	assert.Equal(t, "mine", string(readBlob(t, env, asset.StoragePath())))

	ok, err := env.public.Exists(ctx, "2024/05/29/doc.txt")
	require.NoError(t, err)
	assert.True(t, ok, "blob under the other record must not be rolled back")
}
