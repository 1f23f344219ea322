package photos

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
	"github.com/petermazzocco/beauty-advisor/internal/storage"
	"github.com/petermazzocco/beauty-advisor/internal/testutil"
	"github.com/petermazzocco/beauty-advisor/models"
)

const maxUpload = 5 << 20

type fixture struct {
	db   *gorm.DB
	disk *storage.Disk
	svc  *Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	disk, err := storage.NewDisk(t.TempDir(), "/uploads")
	require.NoError(t, err)
	return &fixture{db: db, disk: disk, svc: NewService(db, disk, testutil.Sniffer{}, maxUpload)}
}

func (f *fixture) files(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(f.disk.Root)
	require.NoError(t, err)
	return entries
}

func (f *fixture) photoCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Photo{}).Count(&n).Error)
	return n
}

func TestUploadStoresFileAndRow(t *testing.T) {
	f := setup(t)
	u := testutil.CreateUser(t, f.db, "sarah")
	data := testutil.JPEG(1 << 20)

	photo, err := f.svc.Upload(context.Background(), u.ID, &File{
		Name: "selfie.jpg", ContentType: "image/jpeg", Size: int64(len(data)), Data: data,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.photoCount(t))
	assert.Equal(t, "image/jpeg", photo.ContentType)
	assert.Equal(t, int64(1<<20), photo.SizeBytes)
	assert.True(t, strings.HasPrefix(photo.PhotoURL, "/uploads/"))
	assert.True(t, strings.HasSuffix(photo.StorageKey, ".jpg"))
	assert.NotContains(t, photo.StorageKey, "selfie", "client file names are not used")

	p, err := f.disk.Path(photo.StorageKey)
	require.NoError(t, err)
	stored, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name    string
		file    *File
		message string
	}{
		{"no file", nil, "No image file provided"},
		{"empty file", &File{Name: "a.jpg", ContentType: "image/jpeg"}, "No image file provided"},
		{"too large", &File{Name: "big.jpg", ContentType: "image/jpeg", Size: 6 << 20, Data: testutil.JPEG(6 << 20)}, "File too large"},
		{"declared non-image", &File{Name: "notes.txt", ContentType: "text/plain", Data: testutil.JPEG(16)}, "Only image files are allowed"},
		{"image type but not image bytes", &File{Name: "fake.png", ContentType: "image/png", Data: []byte("hello world")}, "Only image files are allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			u := testutil.CreateUser(t, f.db, "sarah")

			_, err := f.svc.Upload(context.Background(), u.ID, tt.file)
			require.Error(t, err)
			e, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, e.Kind)
			assert.Equal(t, tt.message, e.Message)

			assert.Zero(t, f.photoCount(t))
			assert.Empty(t, f.files(t))
		})
	}
}

func TestUploadRemovesFileWhenInsertFails(t *testing.T) {
	f := setup(t)
	u := testutil.CreateUser(t, f.db, "sarah")
	require.NoError(t, f.db.Migrator().DropTable(&models.Photo{}))

	_, err := f.svc.Upload(context.Background(), u.ID, &File{ContentType: "image/jpeg", Data: testutil.JPEG(64)})
	require.Error(t, err)
	assert.Empty(t, f.files(t))
}

func TestListNewestFirst(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, f.db, "sarah")
	other := testutil.CreateUser(t, f.db, "mike")

	first := testutil.CreatePhoto(t, f.db, u.ID, "1.jpg")
	second := testutil.CreatePhoto(t, f.db, u.ID, "2.jpg")
	testutil.CreatePhoto(t, f.db, other.ID, "3.jpg")

	photos, err := f.svc.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, second.ID, photos[0].ID)
	assert.Equal(t, first.ID, photos[1].ID)

	none, err := f.svc.List(ctx, 9999)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGetChecksOwnership(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, f.db, "sarah")
	b := testutil.CreateUser(t, f.db, "mike")
	photo := testutil.CreatePhoto(t, f.db, a.ID, "a.jpg")

	got, err := f.svc.Get(ctx, a.ID, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, photo.ID, got.ID)

	_, err = f.svc.Get(ctx, b.ID, photo.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.svc.Get(ctx, a.ID, photo.ID+100)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, e.Kind)
	assert.Equal(t, "Image not found", e.Message)
}

func TestDeleteRemovesRowAndFile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, f.db, "sarah")

	photo, err := f.svc.Upload(ctx, u.ID, &File{ContentType: "image/jpeg", Data: testutil.JPEG(128)})
	require.NoError(t, err)
	require.Len(t, f.files(t), 1)

	require.NoError(t, f.svc.Delete(ctx, u.ID, photo.ID))
	assert.Zero(t, f.photoCount(t))
	assert.Empty(t, f.files(t))

	_, err = f.svc.Get(ctx, u.ID, photo.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteToleratesMissingFile(t *testing.T) {
	f := setup(t)
	u := testutil.CreateUser(t, f.db, "sarah")
	photo := testutil.CreatePhoto(t, f.db, u.ID, "gone.jpg")

	require.NoError(t, f.svc.Delete(context.Background(), u.ID, photo.ID))
	assert.Zero(t, f.photoCount(t))
}

func TestDeleteRefusedWhileRecommendationsExist(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, f.db, "sarah")
	other := testutil.CreateUser(t, f.db, "mike")

	photo, err := f.svc.Upload(ctx, u.ID, &File{ContentType: "image/jpeg", Data: testutil.JPEG(128)})
	require.NoError(t, err)
	testutil.CreateRecommendation(t, f.db, u.ID, photo.ID)

	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(f.svc.Delete(ctx, other.ID, photo.ID)))

	err = f.svc.Delete(ctx, u.ID, photo.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, int64(1), f.photoCount(t))
	assert.Len(t, f.files(t), 1)
}
