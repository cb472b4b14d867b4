package db

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func newTestRepo(t *testing.T, schema ModuleSchema) (*ModuleRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	repo, err := NewModuleRepository(mockDB, nil, schema)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	return repo, mock
}

func postsSchema() ModuleSchema {
	return ModuleSchema{
		Table:        "posts",
		Fillable:     []string{"title", "category_id", "featured", "published", "position"},
		Translatable: []string{"title"},
		Behaviors:    []string{"revisions"},
		SoftDeletes:  true,
	}
}

func TestNewModuleRepositoryRequiresTable(t *testing.T) {
	_, err := NewModuleRepository(nil, nil, ModuleSchema{})
	assert.Error(t, err)
}

func TestSingular(t *testing.T) {
	assert.Equal(t, "post", Singular("posts"))
	assert.Equal(t, "category", Singular("categories"))
	assert.Equal(t, "status", Singular("statuses"))
	assert.Equal(t, "press", Singular("press"))
}

func TestGetBuildsDeterministicQuery(t *testing.T) {
	repo, mock := newTestRepo(t, postsSchema())

	scope := Scope{"published": true, "%description": "go", "category_id": int64(4)}
	orders := []Order{{Column: "created_at", Dir: "desc"}}

	// scope keys sort: %description, category_id, published; soft
	// delete guard always leads
	countSQL := `SELECT COUNT(*) FROM "posts" WHERE deleted_at IS NULL AND "description" ILIKE $1 AND "category_id" = $2 AND published = TRUE`
	mock.ExpectQuery(regexp.QuoteMeta(countSQL)).
		WithArgs("%go%", int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	selectSQL := `SELECT * FROM "posts" WHERE deleted_at IS NULL AND "description" ILIKE $1 AND "category_id" = $2 AND published = TRUE ORDER BY "created_at" DESC LIMIT 20 OFFSET 20`
	mock.ExpectQuery(regexp.QuoteMeta(selectSQL)).
		WithArgs("%go%", int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "published", "category_id"}).
			AddRow(int64(1), "Hello", true, int64(4)))

	page, err := repo.Get(context.Background(), nil, scope, orders, 20, 2, true)
	assert.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.LastPage)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Items[0].ID)
	assert.True(t, page.Items[0].Published)
	assert.Equal(t, "Hello", page.Items[0].Field("title"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTranslatableFilterUsesSubquery(t *testing.T) {
	repo, mock := newTestRepo(t, postsSchema())

	selectSQL := `SELECT * FROM "posts" WHERE deleted_at IS NULL AND id IN (SELECT "post_id" FROM "post_translations" WHERE "title" ILIKE $1)`
	mock.ExpectQuery(regexp.QuoteMeta(selectSQL)).
		WithArgs("%go%").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), nil, Scope{"title": "go"}, nil, 20, 1, false)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOnlyTrashed(t *testing.T) {
	repo, mock := newTestRepo(t, postsSchema())

	selectSQL := `SELECT * FROM "posts" WHERE deleted_at IS NOT NULL`
	mock.ExpectQuery(regexp.QuoteMeta(selectSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), nil, Scope{"onlyTrashed": true}, nil, 20, 1, false)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnpaginatedReturnsSinglePage(t *testing.T) {
	repo, mock := newTestRepo(t, ModuleSchema{Table: "categories"})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
			AddRow(int64(1), "News").
			AddRow(int64(2), "Sport"))

	page, err := repo.Get(context.Background(), nil, Scope{}, nil, 20, 1, false)
	assert.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.LastPage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newTestRepo(t, ModuleSchema{Table: "categories"})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" WHERE id = $1`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByStatusSlug(t *testing.T) {
	cases := []struct {
		slug     string
		fragment string
	}{
		{"all", `WHERE deleted_at IS NULL`},
		{"published", `WHERE deleted_at IS NULL AND published = TRUE`},
		{"draft", `WHERE deleted_at IS NULL AND published = FALSE`},
		{"trash", `WHERE deleted_at IS NOT NULL`},
	}
	for _, tc := range cases {
		t.Run(tc.slug, func(t *testing.T) {
			repo, mock := newTestRepo(t, postsSchema())

			mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "posts" ` + tc.fragment)).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

			count, err := repo.CountByStatusSlug(context.Background(), tc.slug, Scope{})
			assert.NoError(t, err)
			assert.Equal(t, 7, count)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCountByStatusSlugMine(t *testing.T) {
	repo, mock := newTestRepo(t, postsSchema())

	countSQL := `SELECT COUNT(*) FROM "posts" WHERE deleted_at IS NULL AND id IN (SELECT record_id FROM "post_revisions" WHERE user_id = $1)`
	mock.ExpectQuery(regexp.QuoteMeta(countSQL)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountByStatusSlug(context.Background(), "mine", Scope{"mine": "u1"})
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBasic(t *testing.T) {
	repo, mock := newTestRepo(t, postsSchema())

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "published" = $1 WHERE id = ANY($2)`)).
		WithArgs(true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.UpdateBasic(context.Background(), []int64{1, 2}, map[string]interface{}{"published": true})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBasicAllRows(t *testing.T) {
	repo, mock := newTestRepo(t, postsSchema())

	// no ids clears the column across the whole table
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "featured" = $1`)).
		WithArgs(false).
		WillReturnResult(sqlmock.NewResult(0, 10))

	err := repo.UpdateBasic(context.Background(), nil, map[string]interface{}{"featured": false})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSoftAndHard(t *testing.T) {
	repo, mock := newTestRepo(t, postsSchema())
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET deleted_at = $2 WHERE id = ANY($1) AND deleted_at IS NULL`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Delete(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())

	hard, mock2 := newTestRepo(t, ModuleSchema{Table: "links"})
	mock2.ExpectExec(regexp.QuoteMeta(`DELETE FROM "links" WHERE id = ANY($1)`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, hard.Delete(context.Background(), 5))
	assert.NoError(t, mock2.ExpectationsWereMet())
}

func TestForceDeleteOnlyTrashed(t *testing.T) {
	repo, mock := newTestRepo(t, postsSchema())

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "posts" WHERE id = ANY($1) AND deleted_at IS NOT NULL`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.ForceDelete(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRestore(t *testing.T) {
	repo, mock := newTestRepo(t, postsSchema())

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET deleted_at = NULL WHERE id = ANY($1)`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Restore(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetNewOrder(t *testing.T) {
	repo, mock := newTestRepo(t, postsSchema())

	mock.ExpectBegin()
	updateSQL := regexp.QuoteMeta(`UPDATE "posts" SET position = $1 WHERE id = $2`)
	mock.ExpectExec(updateSQL).WithArgs(1, int64(30)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updateSQL).WithArgs(2, int64(10)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updateSQL).WithArgs(3, int64(20)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.SetNewOrder(context.Background(), []int64{30, 10, 20}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicate(t *testing.T) {
	repo, mock := newTestRepo(t, ModuleSchema{
		Table:    "categories",
		Fillable: []string{"title", "published", "position"},
	})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" WHERE id = $1`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "published", "position"}).
			AddRow(int64(1), "News", true, int64(3)))

	insertSQL := `INSERT INTO "categories" ("published", "title", "position") VALUES ($1, $2, $3) RETURNING id`
	mock.ExpectQuery(regexp.QuoteMeta(insertSQL)).
		WithArgs(false, "News (copy)", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" WHERE id = $1`)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "published", "position"}).
			AddRow(int64(2), "News (copy)", false, int64(3)))

	copied, err := repo.Duplicate(context.Background(), 1, "title")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), copied.ID)
	assert.False(t, copied.Published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateCopiesTranslations(t *testing.T) {
	repo, mock := newTestRepo(t, ModuleSchema{
		Table:        "posts",
		Fillable:     []string{"title", "description", "category_id", "published"},
		Translatable: []string{"title", "description"},
		Behaviors:    []string{"translations"},
	})

	translationCols := []string{"id", "post_id", "locale", "active", "title", "description"}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE id = $1`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category_id", "published"}).
			AddRow(int64(1), int64(7), true))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "post_translations" WHERE "post_id" = ANY($1)`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(translationCols).
			AddRow(int64(10), int64(1), "en", true, "Hello", "Body").
			AddRow(int64(11), int64(1), "fr", false, "Bonjour", "Corps"))

	// translatable columns stay out of the base insert
	insertSQL := `INSERT INTO "posts" ("published", "category_id") VALUES ($1, $2) RETURNING id`
	mock.ExpectQuery(regexp.QuoteMeta(insertSQL)).
		WithArgs(false, int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	copySQL := `INSERT INTO "post_translations" ("post_id", "locale", "active", "title", "description") ` +
		`SELECT $1, locale, active, "title" || ' (copy)', "description" FROM "post_translations" WHERE "post_id" = $2`
	mock.ExpectExec(regexp.QuoteMeta(copySQL)).
		WithArgs(int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE id = $1`)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category_id", "published"}).
			AddRow(int64(2), int64(7), false))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "post_translations" WHERE "post_id" = ANY($1)`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(translationCols).
			AddRow(int64(12), int64(2), "en", true, "Hello (copy)", "Body").
			AddRow(int64(13), int64(2), "fr", false, "Bonjour (copy)", "Corps"))

	copied, err := repo.Duplicate(context.Background(), 1, "title")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), copied.ID)
	assert.Equal(t, "Hello (copy)", copied.Translations["en"]["title"])
	assert.Equal(t, "Corps", copied.Translations["fr"]["description"])
	assert.Len(t, copied.Languages, 2)
	assert.True(t, copied.Languages[0].Published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTags(t *testing.T) {
	repo, mock := newTestRepo(t, postsSchema())

	mock.ExpectQuery("SELECT DISTINCT t.name FROM tags t").
		WithArgs("posts", "%go%").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("golang").AddRow("google"))

	tags, err := repo.Tags(context.Background(), "go")
	assert.NoError(t, err)
	assert.Equal(t, []string{"golang", "google"}, tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}
