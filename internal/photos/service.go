// Package photos stores user photos and their metadata.
package photos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
	"github.com/petermazzocco/beauty-advisor/internal/logger"
	"github.com/petermazzocco/beauty-advisor/internal/storage"
	"github.com/petermazzocco/beauty-advisor/models"
)

// Sniffer names the image format of data, or fails for anything that is
// not an accepted image.
type Sniffer interface {
	Sniff(data []byte) (string, error)
}

// File is an uploaded file as received from the client.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

type format struct {
	ext  string
	mime string
}

var formats = map[string]format{
	"jpeg": {".jpg", "image/jpeg"},
	"png":  {".png", "image/png"},
	"webp": {".webp", "image/webp"},
	"gif":  {".gif", "image/gif"},
	"heif": {".heic", "image/heif"},
	"avif": {".avif", "image/avif"},
	"tiff": {".tiff", "image/tiff"},
}

type Service struct {
	db       *gorm.DB
	store    storage.Store
	sniffer  Sniffer
	maxBytes int64
}

func NewService(db *gorm.DB, store storage.Store, sniffer Sniffer, maxBytes int64) *Service {
	return &Service{db: db, store: store, sniffer: sniffer, maxBytes: maxBytes}
}

func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload validates f, stores it under a generated name and records it.
// Nothing is written when validation fails.
func (s *Service) Upload(ctx context.Context, userID uint, f *File) (*models.Photo, error) {
	if f == nil || len(f.Data) == 0 {
		return nil, apperr.Validation("No image file provided")
	}
	size := f.Size
	if int64(len(f.Data)) > size {
		size = int64(len(f.Data))
	}
	if size > s.maxBytes {
		return nil, apperr.Validation("File too large")
	}
	if ct := strings.ToLower(f.ContentType); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, apperr.Validation("Only image files are allowed")
	}
	name, err := s.sniffer.Sniff(f.Data)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindValidation, Message: "Only image files are allowed", Err: err}
	}
	ft, ok := formats[name]
	if !ok {
		return nil, apperr.Validation("Only image files are allowed")
	}

	key := uuid.NewString() + ft.ext
	url, err := s.store.Put(ctx, key, ft.mime, f.Data)
	if err != nil {
		return nil, errors.Wrap(err, "store photo")
	}

	photo := &models.Photo{
		PhotoURL:    url,
		StorageKey:  key,
		ContentType: ft.mime,
		SizeBytes:   size,
		UserID:      userID,
	}
	if err := s.db.WithContext(ctx).Create(photo).Error; err != nil {
		if derr := s.store.Delete(ctx, key); derr != nil {
			logger.FromContext(ctx).Warn("failed to remove orphaned upload", zap.String("key", key), zap.Error(derr))
		}
		return nil, errors.Wrap(err, "create photo")
	}

	logger.FromContext(ctx).Info("photo uploaded",
		zap.Uint("photo_id", photo.ID),
		zap.String("key", key),
		zap.Int64("size", size),
	)
	return photo, nil
}

func (s *Service) List(ctx context.Context, userID uint) ([]models.Photo, error) {
	photos := []models.Photo{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("uploaded_at desc, id desc").
		Find(&photos).Error
	if err != nil {
		return nil, errors.Wrap(err, "list photos")
	}
	return photos, nil
}

func (s *Service) Get(ctx context.Context, userID, photoID uint) (*models.Photo, error) {
	var photo models.Photo
	err := s.db.WithContext(ctx).First(&photo, photoID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Image not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "find photo")
	}
	if photo.UserID != userID {
		return nil, apperr.Forbidden()
	}
	return &photo, nil
}

// Delete removes the photo row and then its stored file. A photo that
// recommendations still point at is refused.
func (s *Service) Delete(ctx context.Context, userID, photoID uint) error {
	photo, err := s.Get(ctx, userID, photoID)
	if err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	var recs int64
	if err := db.Model(&models.Recommendation{}).Where("photo_id = ?", photo.ID).Count(&recs).Error; err != nil {
		return errors.Wrap(err, "count recommendations")
	}
	if recs > 0 {
		return apperr.Conflict("Photo has recommendations; delete them first")
	}

	if err := db.Delete(&models.Photo{}, photo.ID).Error; err != nil {
		return errors.Wrap(err, "delete photo")
	}
	if err := s.store.Delete(ctx, photo.StorageKey); err != nil {
		logger.FromContext(ctx).Warn("failed to remove photo file", zap.String("key", photo.StorageKey), zap.Error(err))
	}
	return nil
}
