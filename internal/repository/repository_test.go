package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fanvault/fanvault/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMockDB wraps a sqlmock connection for sqlx
func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	return sqlx.NewDb(db, "sqlmock"), mock
}

func strPtr(s string) *string {
	return &s
}

func TestUserRepository_Create(t *testing.T) {
	now := time.Now()
	user := &model.User{ID: "u1", Email: "ana@example.com", PasswordHash: strPtr("hash"), CreatedAt: now}

	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("u1", "ana@example.com", user.PasswordHash, now).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "sqlite duplicate",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users`).
					WillReturnError(errors.New("UNIQUE constraint failed: users.email"))
			},
			expectedError: ErrDuplicateEmail,
		},
		{
			name: "postgres duplicate",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users`).
					WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "users_email_key"`))
			},
			expectedError: ErrDuplicateEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			tt.setupMock(mock)

			err := NewUserRepository(db).Create(context.Background(), user)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUserRepository_ByEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow("u1", "ana@example.com", "hash", now))

	user, err := repo.ByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.True(t, user.HasPassword())

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}))

	_, err = repo.ByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_Delete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Delete(context.Background(), "u1"))

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs("u2").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "u2"), ErrUserNotFound)
}

func TestProfileRepository_ByUserID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "role", "avatar_url", "avatar_path", "kyc_status", "created_at", "updated_at"}).
			AddRow("p1", "u1", "Ana", "creator", "https://cdn/avatars/u1/avatar.png", "u1/avatar.png", "pending", now, now))

	profile, err := repo.ByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, profile.IsCreator())
	assert.Equal(t, model.KYCStatusPending, profile.KYCStatus)
	require.NotNil(t, profile.AvatarPath)
	assert.Equal(t, "u1/avatar.png", *profile.AvatarPath)
}

func TestProfileRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(`INSERT INTO profiles`).
		WithArgs(sqlmock.AnyArg(), "u1", "Ana", "subscriber", model.KYCStatusNotSubmitted, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	profile := &model.Profile{UserID: "u1", Name: "Ana", Role: model.RoleSubscriber}
	require.NoError(t, NewProfileRepository(db).Create(context.Background(), profile))
	assert.NotEmpty(t, profile.ID)
	assert.False(t, profile.CreatedAt.IsZero())
}

func TestProfileRepository_UpdateAvatar(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE profiles\s+SET avatar_url = \$1, avatar_path = \$2, updated_at = \$3\s+WHERE user_id = \$4 AND avatar_path IS NOT DISTINCT FROM \$5`).
		WithArgs(strPtr("https://cdn/a.png"), strPtr("u1/avatar.png"), sqlmock.AnyArg(), "u1", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.UpdateAvatar(ctx, "u1", nil, strPtr("https://cdn/a.png"), strPtr("u1/avatar.png")))

	// The row moved on to another path: nothing is written.
	mock.ExpectExec(`UPDATE profiles\s+SET avatar_url`).
		WithArgs(strPtr("https://cdn/a.webp"), strPtr("u1/avatar.webp"), sqlmock.AnyArg(), "u1", strPtr("u1/avatar.png")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM profiles WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	assert.ErrorIs(t, repo.UpdateAvatar(ctx, "u1", strPtr("u1/avatar.png"), strPtr("https://cdn/a.webp"), strPtr("u1/avatar.webp")), ErrAvatarChanged)

	mock.ExpectExec(`UPDATE profiles\s+SET avatar_url`).
		WithArgs(nil, nil, sqlmock.AnyArg(), "missing", nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM profiles`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	assert.ErrorIs(t, repo.UpdateAvatar(ctx, "missing", nil, nil, nil), ErrProfileNotFound)
}

func TestMediaRepository_ByUserID(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM media WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "class", "bucket", "path", "url", "mime_type", "size", "original_name", "thumbnail_url", "thumbnail_path", "created_at"}).
			AddRow("m1", "u1", "video", "content-videos", "u1/videos/1-a.mp4", "https://cdn/v", "video/mp4", int64(1024), "clip.mp4", "https://cdn/t", "u1/thumbnails/1-b.jpg", now).
			AddRow("m2", "u1", "image", "content-images", "u1/images/1-c.png", "https://cdn/i", "image/png", int64(10), "a.png", nil, nil, now))

	media, err := NewMediaRepository(db).ByUserID(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, media, 2)
	require.NotNil(t, media[0].ThumbnailURL)
	assert.Nil(t, media[1].ThumbnailURL)
}

func TestMediaRepository_ByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM media WHERE id = \$1`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewMediaRepository(db).ByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrMediaNotFound)
}

func kycDocs(now time.Time) []*model.KYCDocument {
	docs := make([]*model.KYCDocument, 0, len(model.KYCDocumentTypes))
	for _, docType := range model.KYCDocumentTypes {
		docs = append(docs, &model.KYCDocument{
			ID:           "k-" + string(docType),
			UserID:       "u1",
			DocumentType: docType,
			FileURL:      "https://cdn/kyc/" + string(docType),
			FilePath:     "u1/" + string(docType) + "/1-a.pdf",
			Status:       model.KYCStatusPending,
			CreatedAt:    now,
		})
	}
	return docs
}

func expectKYCTransition(mock sqlmock.Sqlmock, rows int64) {
	mock.ExpectExec(`UPDATE profiles\s+SET kyc_status = \$1, updated_at = \$2\s+WHERE user_id = \$3 AND kyc_status IN \(\$4, \$5\)`).
		WithArgs(model.KYCStatusPending, sqlmock.AnyArg(), "u1", model.KYCStatusNotSubmitted, model.KYCStatusRejected).
		WillReturnResult(sqlmock.NewResult(0, rows))
}

func TestKYCRepository_CreateSubmission(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Now()
	docs := kycDocs(now)

	mock.ExpectBegin()
	expectKYCTransition(mock, 1)
	for _, doc := range docs {
		mock.ExpectExec(`INSERT INTO kyc_documents`).
			WithArgs(doc.ID, "u1", doc.DocumentType, doc.FileURL, doc.FilePath, model.KYCStatusPending, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	assert.NoError(t, NewKYCRepository(db).CreateSubmission(context.Background(), "u1", docs))
}

func TestKYCRepository_CreateSubmission_AlreadyOpen(t *testing.T) {
	tests := []struct {
		name          string
		status        string
		expectedError error
	}{
		{name: "pending", status: string(model.KYCStatusPending), expectedError: ErrKYCSubmissionOpen},
		{name: "approved", status: string(model.KYCStatusApproved), expectedError: ErrKYCSubmissionOpen},
		{name: "no profile", expectedError: ErrProfileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)

			mock.ExpectBegin()
			expectKYCTransition(mock, 0)
			rows := sqlmock.NewRows([]string{"kyc_status"})
			if tt.status != "" {
				rows.AddRow(tt.status)
			}
			mock.ExpectQuery(`SELECT kyc_status FROM profiles WHERE user_id = \$1`).
				WithArgs("u1").
				WillReturnRows(rows)
			mock.ExpectRollback()

			err := NewKYCRepository(db).CreateSubmission(context.Background(), "u1", kycDocs(time.Now()))
			assert.ErrorIs(t, err, tt.expectedError)
		})
	}
}

func TestKYCRepository_CreateSubmission_RollsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	docs := kycDocs(time.Now())

	mock.ExpectBegin()
	expectKYCTransition(mock, 1)
	mock.ExpectExec(`INSERT INTO kyc_documents`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO kyc_documents`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := NewKYCRepository(db).CreateSubmission(context.Background(), "u1", docs)
	assert.ErrorContains(t, err, "insert document_back")
}

func TestKYCRepository_UpdateStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewKYCRepository(db)
	at := time.Now()

	mock.ExpectExec(`UPDATE kyc_documents`).
		WithArgs(model.KYCStatusRejected, strPtr("ilegível"), at, "k1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.UpdateStatus(context.Background(), "k1", model.KYCStatusRejected, strPtr("ilegível"), at))

	mock.ExpectExec(`UPDATE kyc_documents`).
		WithArgs(model.KYCStatusApproved, nil, at, "k2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), "k2", model.KYCStatusApproved, nil, at), ErrKYCDocumentNotFound)
}
