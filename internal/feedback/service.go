// Package feedback records a user's rating of a recommendation. Each user
// has at most one feedback row per recommendation.
package feedback

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
	"github.com/petermazzocco/beauty-advisor/internal/jsonx"
	"github.com/petermazzocco/beauty-advisor/models"
)

const DefaultRating = 3

// ParseRating reads a rating the way the web client has always sent it:
// numbers are truncated, numeric strings use their leading integer, and
// anything absent, unparseable or zero becomes DefaultRating. The range
// is not checked.
func ParseRating(raw json.RawMessage) int {
	n, ok := jsonx.Int(raw)
	if !ok || n == 0 {
		return DefaultRating
	}
	return n
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) ownedRecommendation(ctx context.Context, userID, recommendationID uint) error {
	var rec models.Recommendation
	err := s.db.WithContext(ctx).Select("id", "user_id").First(&rec, recommendationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Recommendation not found")
	}
	if err != nil {
		return errors.Wrap(err, "find recommendation")
	}
	if rec.UserID != userID {
		return apperr.Forbidden()
	}
	return nil
}

// Submit creates the user's feedback for a recommendation or replaces the
// text and rating of the existing one. created reports which happened.
func (s *Service) Submit(ctx context.Context, userID, recommendationID uint, text *string, rating int) (fb *models.Feedback, created bool, err error) {
	if err := s.ownedRecommendation(ctx, userID, recommendationID); err != nil {
		return nil, false, err
	}

	db := s.db.WithContext(ctx)
	fb, err = s.update(db, userID, recommendationID, text, rating)
	if err == nil {
		return fb, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	fb = &models.Feedback{
		FeedbackText:     text,
		Rating:           rating,
		UserID:           userID,
		RecommendationID: recommendationID,
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "recommendation_id"}},
		DoNothing: true,
	}).Create(fb)
	if res.Error != nil {
		return nil, false, errors.Wrap(res.Error, "create feedback")
	}
	if res.RowsAffected == 1 {
		return fb, true, nil
	}

	// Another submission for the same pair was inserted first.
	fb, err = s.update(db, userID, recommendationID, text, rating)
	if err != nil {
		return nil, false, err
	}
	return fb, false, nil
}

// update overwrites text and rating on the stored row. It returns
// gorm.ErrRecordNotFound unwrapped when there is no row yet.
func (s *Service) update(db *gorm.DB, userID, recommendationID uint, text *string, rating int) (*models.Feedback, error) {
	var existing models.Feedback
	err := db.Where("user_id = ? AND recommendation_id = ?", userID, recommendationID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "find feedback")
	}

	existing.FeedbackText = text
	existing.Rating = rating
	if err := db.Model(&existing).Select("feedback_text", "rating").Updates(&existing).Error; err != nil {
		return nil, errors.Wrap(err, "update feedback")
	}
	return &existing, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uint) ([]models.Feedback, error) {
	items := []models.Feedback{}
	err := s.db.WithContext(ctx).
		Preload("Recommendation.Photo").
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&items).Error
	if err != nil {
		return nil, errors.Wrap(err, "list feedback")
	}
	return items, nil
}

func (s *Service) GetForRecommendation(ctx context.Context, userID, recommendationID uint) (*models.Feedback, error) {
	if err := s.ownedRecommendation(ctx, userID, recommendationID); err != nil {
		return nil, err
	}

	var fb models.Feedback
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND recommendation_id = ?", userID, recommendationID).
		First(&fb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("No feedback found for this recommendation")
	}
	if err != nil {
		return nil, errors.Wrap(err, "find feedback")
	}
	return &fb, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	var fb models.Feedback
	err := s.db.WithContext(ctx).First(&fb, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Feedback not found")
	}
	if err != nil {
		return errors.Wrap(err, "find feedback")
	}
	if fb.UserID != userID {
		return apperr.Forbidden()
	}
	return errors.Wrap(s.db.WithContext(ctx).Delete(&models.Feedback{}, fb.ID).Error, "delete feedback")
}
