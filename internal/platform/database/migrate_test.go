package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	goose.SetBaseFS(migrations)
	t.Cleanup(func() { goose.SetBaseFS(nil) })

	collected, err := goose.CollectMigrations("migrations", 0, goose.MaxVersion)
	require.NoError(t, err)
	require.NotEmpty(t, collected)
	assert.Equal(t, int64(1), collected[0].Version)

	names, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	for _, name := range names {
		body, err := fs.ReadFile(migrations, name)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(body), "-- +goose Up"), name)
		assert.Contains(t, string(body), "-- +goose Down", name)
	}
}

func TestMigrations_CreateBoardTables(t *testing.T) {
	body, err := fs.ReadFile(migrations, "migrations/00001_init.sql")
	require.NoError(t, err)
	for _, table := range []string{"users", "categories", "posts", "translation_jobs"} {
		assert.Contains(t, string(body), "CREATE TABLE "+table+" (", table)
	}
	// write-once translation slots
	for _, col := range []string{"translated_title_ko", "translated_title_ru", "translated_content_ko", "translated_content_ru", "translated_summary_ko", "translated_summary_ru"} {
		assert.Contains(t, string(body), col)
	}
}
