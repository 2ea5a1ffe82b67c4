package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hanru_board/internal/common"
	"hanru_board/internal/domain/model"
	"hanru_board/internal/platform/database"
)

func TestTranslatedColumn(t *testing.T) {
	col, ok := translatedColumn(model.FieldContent, model.LangRu)
	assert.True(t, ok)
	assert.Equal(t, "translated_content_ru", col)

	_, ok = translatedColumn("views; DROP TABLE posts", model.LangRu)
	assert.False(t, ok)
	_, ok = translatedColumn(model.FieldTitle, "en")
	assert.False(t, ok)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("HANRU_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping PostgreSQL tests: HANRU_TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func TestPgPostRepository_WriteOnceTranslation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user := &model.User{ID: uuid.NewString(), Username: "u" + uuid.NewString()[:8], Email: uuid.NewString() + "@example.com",
		Nickname: "tester", HashedPassword: "x", Role: model.RoleUser}
	require.NoError(t, NewPgUserRepository(db).Create(ctx, user))

	categoryID := uuid.NewString()
	_, err := db.ExecContext(ctx, `INSERT INTO categories (id, slug, name_ko, name_ru) VALUES ($1, $2, '자유', 'Свободная')`,
		categoryID, "free-"+categoryID[:8])
	require.NoError(t, err)

	posts := NewPgPostRepository(db)
	post := &model.Post{
		ID: uuid.NewString(), UserID: user.ID, CategoryID: categoryID,
		Title: "제목", Content: "<p>본문</p>", SourceLang: model.LangKo,
		Tags: []string{"생활"}, Status: model.PostPublished, AllowComments: true,
		Slug: "post-" + uuid.NewString()[:8],
	}
	require.NoError(t, posts.CreatePost(ctx, nil, post))

	n, err := posts.ApplyTranslation(ctx, nil, post.ID, model.LangRu, map[model.PostField]string{
		model.FieldTitle: "Заголовок", model.FieldContent: "<p>Текст</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// second delivery does not overwrite
	n, err = posts.ApplyTranslation(ctx, nil, post.ID, model.LangRu, map[model.PostField]string{model.FieldTitle: "Другой"})
	require.NoError(t, err)
	assert.Zero(t, n)

	// never into the source language
	n, err = posts.ApplyTranslation(ctx, nil, post.ID, model.LangKo, map[model.PostField]string{model.FieldTitle: "다른"})
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := posts.FindPostByID(ctx, post.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TranslatedTitleRu)
	assert.Equal(t, "Заголовок", *got.TranslatedTitleRu)
	assert.Nil(t, got.TranslatedTitleKo)
	assert.True(t, got.AutoTranslated)
	assert.Equal(t, []string{"생활"}, got.Tags)
	require.NotNil(t, got.AuthorNickname)
	assert.Equal(t, "tester", *got.AuthorNickname)

	require.NoError(t, posts.ClearTranslations(ctx, nil, post.ID, []model.PostField{model.FieldTitle}))
	got, err = posts.FindPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TranslatedTitleRu)
	assert.NotNil(t, got.TranslatedContentRu)

	require.NoError(t, posts.SoftDeletePost(ctx, post.ID))
	_, err = posts.FindPostByID(ctx, post.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPgTranslationJobRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	jobs := NewPgTranslationJobRepository(db)

	_, err := jobs.GetJobByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = jobs.UpdateJobStatus(ctx, nil, uuid.NewString(), model.JobStatusFailed, nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
