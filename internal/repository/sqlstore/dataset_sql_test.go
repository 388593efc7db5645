package sqlstore

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datasetapi/internal/config"
	"datasetapi/internal/database"
	"datasetapi/internal/database/migration"
	"datasetapi/internal/model"
	"datasetapi/internal/repository"
)

var datasetCols = []string{
	"id", "owner_id", "file_name", "original_name", "file_type", "columns", "row_count",
	"preview_data", "processed_data", "status", "error_kind", "error_message", "created_at", "updated_at",
}

var listCols = []string{
	"id", "owner_id", "file_name", "original_name", "file_type", "columns", "row_count",
	"status", "error_kind", "error_message", "created_at", "updated_at",
}

func newProcessing(t *testing.T, id, owner string, at time.Time) *model.Dataset {
	t.Helper()
	d, err := model.NewDataset(id, owner, "upload.csv", "sales.csv", model.FileTypeCSV, at)
	require.NoError(t, err)
	return d
}

func TestDatasetSQL_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDatasetSQL(db)
	now := time.Now().UTC()
	d := newProcessing(t, "ds-1", "owner-1", now)

	mock.ExpectExec("INSERT INTO datasets").
		WithArgs(d.ID, d.OwnerID, d.FileName, d.OriginalName, "csv", "[]", 0, "[]", "", "processing", "", "", d.CreatedAt, d.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := repo.Create(context.Background(), d)

	assert.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, d.ID, out.ID)
	assert.NotSame(t, d, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetSQL_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDatasetSQL(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows(datasetCols).AddRow(
			"ds-1", "owner-1", "upload.csv", "sales.csv", "csv",
			[]byte(`[{"name":"amount","type":"number","description":""}]`), 2,
			[]byte(`[{"amount":"10"},{"amount":null}]`), "uploads/processed/p.csv",
			"completed", "", "", now, now,
		)
		mock.ExpectQuery("SELECT (.+) FROM datasets WHERE id = (.+) AND owner_id = (.+)").
			WithArgs("ds-1", "owner-1").
			WillReturnRows(rows)

		d, err := repo.FindByID(ctx, "owner-1", "ds-1")

		require.NoError(t, err)
		assert.Equal(t, model.FileTypeCSV, d.FileType)
		assert.Equal(t, model.StatusCompleted, d.Status)
		assert.Equal(t, []model.Column{{Name: "amount", Type: model.ColumnNumber}}, d.Columns)
		require.Len(t, d.PreviewData, 2)
		assert.Equal(t, model.StringValue("10"), d.PreviewData[0]["amount"])
		assert.True(t, d.PreviewData[1]["amount"].IsNull())
		assert.Equal(t, "uploads/processed/p.csv", d.ProcessedData)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM datasets WHERE id = (.+) AND owner_id = (.+)").
			WithArgs("missing", "owner-1").
			WillReturnError(sql.ErrNoRows)

		d, err := repo.FindByID(ctx, "owner-1", "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, d)
	})

	t.Run("corrupt columns", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows(datasetCols).AddRow(
			"ds-2", "owner-1", "upload.csv", "sales.csv", "csv",
			[]byte(`{not json`), 0, []byte(`[]`), "", "processing", "", "", now, now,
		)
		mock.ExpectQuery("SELECT (.+) FROM datasets").
			WithArgs("ds-2", "owner-1").
			WillReturnRows(rows)

		_, err := repo.FindByID(ctx, "owner-1", "ds-2")

		assert.ErrorContains(t, err, "decode columns")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetSQL_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDatasetSQL(db)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM datasets WHERE owner_id").
			WithArgs("owner-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		now := time.Now()
		rows := sqlmock.NewRows(listCols).
			AddRow("ds-2", "owner-1", "b.csv", "b.csv", "csv", []byte(`[]`), 0, "error", "empty_file", "empty", now, now).
			AddRow("ds-1", "owner-1", "a.xlsx", "a.xlsx", "spreadsheet", []byte(`[]`), 0, "processing", "", "", now, now)

		mock.ExpectQuery("SELECT (.+) FROM datasets WHERE owner_id = (.+) ORDER BY created_at DESC").
			WithArgs("owner-1", 2, 0).
			WillReturnRows(rows)

		res, err := repo.List(ctx, "owner-1", repository.PageQuery{Limit: 2, Offset: 0})

		require.NoError(t, err)
		assert.Equal(t, 3, res.Total)
		require.Len(t, res.Items, 2)
		assert.Equal(t, model.ErrorKind("empty_file"), res.Items[0].ErrorKind)
		assert.Nil(t, res.Items[0].PreviewData)
		assert.Empty(t, res.Items[0].ProcessedData)
	})

	t.Run("empty page is not nil", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM datasets").
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT (.+) FROM datasets WHERE owner_id").
			WithArgs("nobody", 10, 0).
			WillReturnRows(sqlmock.NewRows(listCols))

		res, err := repo.List(ctx, "nobody", repository.PageQuery{Limit: 10})

		require.NoError(t, err)
		assert.NotNil(t, res.Items)
		assert.Empty(t, res.Items)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetSQL_Finalize(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDatasetSQL(db)
	ctx := context.Background()
	d := newProcessing(t, "ds-1", "owner-1", time.Now())
	require.NoError(t, d.Fail(model.ErrEmptyFile, time.Now()))

	t.Run("updates processing row", func(t *testing.T) {
		mock.ExpectExec("UPDATE datasets SET (.+) WHERE id = (.+) AND status = 'processing'").
			WithArgs("ds-1", "[]", 0, "[]", "", "error", "empty_file", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Finalize(ctx, d))
	})

	t.Run("already terminal", func(t *testing.T) {
		mock.ExpectExec("UPDATE datasets").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Finalize(ctx, d), sql.ErrNoRows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetSQL_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDatasetSQL(db)

	mock.ExpectExec("DELETE FROM datasets WHERE id = (.+) AND owner_id = (.+)").
		WithArgs("ds-1", "owner-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), "owner-1", "ds-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestDatasetSQL_SQLite runs the repository against a migrated in-memory
// SQLite database.
func TestDatasetSQL_SQLite(t *testing.T) {
	db, err := database.NewSQLite(config.DatabaseConfig{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, migration.EnsureMigrated(ctx, db, "sqlite", logger))

	repo := NewDatasetSQL(db)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	older := newProcessing(t, "ds-old", "owner-1", base)
	newer := newProcessing(t, "ds-new", "owner-1", base.Add(time.Minute))
	other := newProcessing(t, "ds-other", "owner-2", base)
	for _, d := range []*model.Dataset{older, newer, other} {
		_, err := repo.Create(ctx, d)
		require.NoError(t, err)
	}

	cols := []model.Column{{Name: "amount", Type: model.ColumnNumber}, {Name: "day", Type: model.ColumnDate}}
	preview := []model.Row{{"amount": model.NumberValue(1.5), "day": model.StringValue("2024-01-15")}}
	require.NoError(t, newer.Complete(cols, 1, preview, "uploads/processed/x.csv", base.Add(2*time.Minute)))
	require.NoError(t, repo.Finalize(ctx, newer))
	assert.ErrorIs(t, repo.Finalize(ctx, newer), sql.ErrNoRows)

	got, err := repo.FindByID(ctx, "owner-1", "ds-new")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, cols, got.Columns)
	assert.Equal(t, 1, got.RowCount)
	require.Len(t, got.PreviewData, 1)
	n, ok := got.PreviewData[0]["amount"].Number()
	assert.True(t, ok)
	assert.Equal(t, 1.5, n)
	assert.True(t, got.CreatedAt.Equal(base.Add(time.Minute)))

	_, err = repo.FindByID(ctx, "owner-2", "ds-new")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	page, err := repo.List(ctx, "owner-1", repository.PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "ds-new", page.Items[0].ID)
	assert.Equal(t, "ds-old", page.Items[1].ID)

	require.NoError(t, repo.Delete(ctx, "owner-1", "ds-old"))
	require.NoError(t, repo.Delete(ctx, "owner-1", "ds-old"))
	page, err = repo.List(ctx, "owner-1", repository.PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}
