// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/petermazzocco/beauty-advisor/internal/analysis"
	"github.com/petermazzocco/beauty-advisor/internal/database"
	"github.com/petermazzocco/beauty-advisor/models"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig("silent"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user whose password is "password123".
func CreateUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.User{
		Email:          name + "@example.com",
		FullName:       name,
		Age:            30,
		Gender:         models.GenderFemale,
		Username:       name,
		HashedPassword: string(hash),
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreatePhoto(t *testing.T, db *gorm.DB, userID uint, key string) *models.Photo {
	t.Helper()
	p := &models.Photo{
		PhotoURL:    "/uploads/" + key,
		StorageKey:  key,
		ContentType: "image/jpeg",
		UserID:      userID,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func CreateRecommendation(t *testing.T, db *gorm.DB, userID, photoID uint) *models.Recommendation {
	t.Helper()
	r := &models.Recommendation{
		EventType:            models.StringPtr("general"),
		FaceShape:            models.StringPtr("Oval"),
		RecommendedMakeup:    models.StringPtr("makeup"),
		RecommendedHairstyle: models.StringPtr("hair"),
		UserID:               userID,
		PhotoID:              photoID,
	}
	require.NoError(t, db.Create(r).Error)
	return r
}

// JPEG returns n bytes that start with the JPEG magic number.
func JPEG(n int) []byte {
	b := make([]byte, n)
	copy(b, []byte{0xff, 0xd8, 0xff, 0xe0})
	return b
}

// Sniffer recognises JPEG and PNG magic numbers without libvips.
type Sniffer struct{}

func (Sniffer) Sniff(data []byte) (string, error) {
	switch {
	case len(data) >= 3 && data[0] == 0xff && data[1] == 0xd8 && data[2] == 0xff:
		return "jpeg", nil
	case len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n":
		return "png", nil
	default:
		return "", errors.New("unsupported image format")
	}
}

// Analyzer is a scripted analysis.Analyzer that records its calls.
type Analyzer struct {
	mu     sync.Mutex
	Result analysis.Result
	Err    error
	Calls  [][]byte
}

func (a *Analyzer) Analyze(_ context.Context, img analysis.Image) (*analysis.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Calls = append(a.Calls, img.Data)
	if a.Err != nil {
		return nil, a.Err
	}
	res := a.Result
	return &res, nil
}
