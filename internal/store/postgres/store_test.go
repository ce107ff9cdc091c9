package postgres

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/openglam/smithsonian-harvester/internal/harvest"
)

// anyInsertArgs matches the nine insert arguments without inspecting them;
// pgxmock has no implicit "any arguments" default when WithArgs is omitted.
func anyInsertArgs() []any {
	args := make([]any, 9)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func testRecord(id string) harvest.ImageRecord {
	return harvest.ImageRecord{
		ForeignLandingURL: "https://example.si.edu/object/" + id,
		ImageURL:          "https://ids.si.edu/" + id,
		ThumbnailURL:      "https://ids.si.edu/thumb/" + id,
		LicenseURL:        harvest.ZeroLicenseURL,
		ForeignID:         id,
		Title:             "Title " + id,
		Creator:           "Jane Doe",
		MetaData:          map[string]string{"unit_code": "NPG"},
		Tags:              []string{"Portraits"},
	}
}

func TestAddItemInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "images")
	require.NoError(t, err)

	rec := testRecord("a")
	mock.ExpectExec("INSERT INTO images").
		WithArgs(
			rec.ForeignID,
			rec.ForeignLandingURL,
			rec.ImageURL,
			rec.ThumbnailURL,
			rec.LicenseURL,
			rec.Title,
			rec.Creator,
			[]byte(`{"unit_code":"NPG"}`),
			[]byte(`["Portraits"]`),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	total, err := store.AddItem(context.Background(), rec)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItemConflictLeavesTotalUnchanged(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "images")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO images").
		WithArgs(anyInsertArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO images").
		WithArgs(anyInsertArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	total, err := store.AddItem(context.Background(), testRecord("a"))
	require.NoError(t, err)
	require.Equal(t, 1, total)

	total, err = store.AddItem(context.Background(), testRecord("a"))
	require.NoError(t, err)
	require.Equal(t, 1, total, "conflicting insert must not advance the total")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItemRejectsIncompleteRecords(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "images")
	require.NoError(t, err)

	rec := testRecord("a")
	rec.ForeignID = ""
	_, err = store.AddItem(context.Background(), rec)
	require.Error(t, err)

	rec = testRecord("b")
	rec.ForeignLandingURL = ""
	_, err = store.AddItem(context.Background(), rec)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitReportsRunningTotal(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "images")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO images").
		WithArgs(anyInsertArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO images").
		WithArgs(anyInsertArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err = store.AddItem(context.Background(), testRecord("a"))
	require.NoError(t, err)
	_, err = store.AddItem(context.Background(), testRecord("b"))
	require.NoError(t, err)

	total, err := store.Commit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, total)
}

func TestNewWithPoolValidatesArguments(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil, "images")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "images; DROP TABLE images")
	require.Error(t, err)

	store, err := NewWithPool(mock, "")
	require.NoError(t, err)
	require.NotNil(t, store)
}
