package models

import (
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type User struct {
	ID              uint             `json:"id" gorm:"primarykey"`
	CreatedAt       time.Time        `json:"created_at"`
	Email           string           `json:"email" gorm:"size:255;not null;uniqueIndex"`
	FullName        string           `json:"full_name" gorm:"size:255;not null"`
	Age             int              `json:"age" gorm:"not null"`
	Gender          Gender           `json:"gender" gorm:"type:varchar(10);not null"`
	Username        string           `json:"username" gorm:"size:255;not null;uniqueIndex"`
	HashedPassword  string           `json:"-" gorm:"column:hashed_password;not null"`
	JWTToken        *string          `json:"-" gorm:"column:jwt_token;type:text"`
	Photos          []Photo          `json:"-" gorm:"constraint:OnUpdate:CASCADE;"`
	Recommendations []Recommendation `json:"-" gorm:"constraint:OnUpdate:CASCADE;"`
	Feedback        []Feedback       `json:"-" gorm:"constraint:OnUpdate:CASCADE;"`
}

type Photo struct {
	ID              uint             `json:"id" gorm:"primarykey"`
	PhotoURL        string           `json:"photo_url" gorm:"column:photo_url;size:1024;not null"`
	StorageKey      string           `json:"-" gorm:"size:512;not null"`
	ContentType     string           `json:"content_type" gorm:"size:64"`
	SizeBytes       int64            `json:"size_bytes"`
	UploadedAt      time.Time        `json:"uploaded_at" gorm:"autoCreateTime;index"`
	UserID          uint             `json:"user_id" gorm:"not null;index"`
	Recommendations []Recommendation `json:"-" gorm:"constraint:OnUpdate:CASCADE;"`
}

type Recommendation struct {
	ID                   uint       `json:"id" gorm:"primarykey"`
	EventType            *string    `json:"event_type" gorm:"size:64"`
	FaceShape            *string    `json:"face_shape" gorm:"size:64"`
	SkinTone             *string    `json:"skin_tone" gorm:"size:64"`
	HairColor            *string    `json:"hair_color" gorm:"size:64"`
	RecommendedMakeup    *string    `json:"recommended_makeup" gorm:"type:text"`
	RecommendedHairstyle *string    `json:"recommended_hairstyle" gorm:"type:text"`
	CreatedAt            time.Time  `json:"created_at" gorm:"index"`
	UserID               uint       `json:"user_id" gorm:"not null;index"`
	PhotoID              uint       `json:"photo_id" gorm:"not null;index"`
	Photo                *Photo     `json:"Photo,omitempty"`
	Feedback             []Feedback `json:"Feedback,omitempty" gorm:"constraint:OnUpdate:CASCADE;"`
}

// Feedback is unique per (user, recommendation); resubmitting updates the
// existing row.
type Feedback struct {
	ID               uint            `json:"id" gorm:"primarykey"`
	FeedbackText     *string         `json:"feedback_text" gorm:"type:text"`
	Rating           int             `json:"rating" gorm:"not null;default:3"`
	CreatedAt        time.Time       `json:"created_at" gorm:"index"`
	UserID           uint            `json:"user_id" gorm:"not null;uniqueIndex:idx_feedback_user_recommendation"`
	RecommendationID uint            `json:"recommendation_id" gorm:"not null;uniqueIndex:idx_feedback_user_recommendation;index"`
	Recommendation   *Recommendation `json:"Recommendation,omitempty"`
}

func (Feedback) TableName() string {
	return "feedback"
}

// All lists the models in migration order.
func All() []any {
	return []any{&User{}, &Photo{}, &Recommendation{}, &Feedback{}}
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
