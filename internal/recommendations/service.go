// Package recommendations runs photo analysis and keeps the resulting
// makeup and hairstyle suggestions.
package recommendations

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petermazzocco/beauty-advisor/internal/analysis"
	"github.com/petermazzocco/beauty-advisor/internal/apperr"
	"github.com/petermazzocco/beauty-advisor/internal/logger"
	"github.com/petermazzocco/beauty-advisor/internal/storage"
	"github.com/petermazzocco/beauty-advisor/models"
)

const defaultEventType = "general"

type Service struct {
	db       *gorm.DB
	store    storage.Store
	analyzer analysis.Analyzer
}

func NewService(db *gorm.DB, store storage.Store, analyzer analysis.Analyzer) *Service {
	return &Service{db: db, store: store, analyzer: analyzer}
}

// Generate analyses one of the user's photos and records a new
// recommendation. Every call produces a new row.
func (s *Service) Generate(ctx context.Context, userID, photoID uint, eventType string) (*models.Recommendation, error) {
	var photo models.Photo
	err := s.db.WithContext(ctx).First(&photo, photoID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Photo not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "find photo")
	}
	if photo.UserID != userID {
		return nil, apperr.Forbidden()
	}

	data, err := s.store.Get(ctx, photo.StorageKey)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, apperr.NotFound("Image file not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read photo")
	}

	res, err := s.analyzer.Analyze(ctx, analysis.Image{Data: data, ContentType: photo.ContentType})
	if err != nil {
		return nil, err
	}
	if !res.HasRecommendations() {
		logger.FromContext(ctx).Debug("model returned features only, using templates",
			zap.String("face_shape", res.FaceShape),
			zap.String("hair_texture", res.HairTexture),
		)
	}
	analysis.Fallback(res)

	event := strings.TrimSpace(res.EventType)
	if event == "" {
		event = strings.TrimSpace(eventType)
	}
	if event == "" {
		event = defaultEventType
	}

	rec := &models.Recommendation{
		EventType:            models.StringPtr(event),
		FaceShape:            models.StringPtr(res.FaceShape),
		SkinTone:             models.StringPtr(res.SkinTone),
		HairColor:            models.StringPtr(res.HairColor),
		RecommendedMakeup:    models.StringPtr(res.Makeup),
		RecommendedHairstyle: models.StringPtr(res.Hairstyle),
		UserID:               userID,
		PhotoID:              photo.ID,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, errors.Wrap(err, "create recommendation")
	}
	rec.Photo = &photo

	logger.FromContext(ctx).Info("recommendation generated",
		zap.Uint("recommendation_id", rec.ID),
		zap.Uint("photo_id", photo.ID),
		zap.String("event_type", event),
	)
	return rec, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uint) ([]models.Recommendation, error) {
	recs := []models.Recommendation{}
	err := s.db.WithContext(ctx).
		Preload("Photo").
		Preload("Feedback").
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&recs).Error
	if err != nil {
		return nil, errors.Wrap(err, "list recommendations")
	}
	return recs, nil
}

func (s *Service) Get(ctx context.Context, userID, id uint) (*models.Recommendation, error) {
	var rec models.Recommendation
	err := s.db.WithContext(ctx).Preload("Photo").Preload("Feedback").First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Recommendation not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "find recommendation")
	}
	if rec.UserID != userID {
		return nil, apperr.Forbidden()
	}
	return &rec, nil
}

// Delete removes the recommendation together with its feedback.
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	var rec models.Recommendation
	err := s.db.WithContext(ctx).Select("id", "user_id").First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Recommendation not found")
	}
	if err != nil {
		return errors.Wrap(err, "find recommendation")
	}
	if rec.UserID != userID {
		return apperr.Forbidden()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recommendation_id = ?", rec.ID).Delete(&models.Feedback{}).Error; err != nil {
			return errors.Wrap(err, "delete feedback")
		}
		if err := tx.Delete(&models.Recommendation{}, rec.ID).Error; err != nil {
			return errors.Wrap(err, "delete recommendation")
		}
		return nil
	})
}
