package rowsource

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"rowpage/internal/render"
)

func TestSQLRowsStreamsRowsThenFinishedQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	sqlxDB := sqlx.NewDb(db, "mysql")

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"component", "x"}).
			AddRow("list", int64(1)).
			AddRow(nil, int64(2)),
	)

	stream, err := NewSQLRows(context.Background(), sqlxDB, "SELECT component, x FROM t")
	require.NoError(t, err)

	item, ok, err := stream.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, render.ItemRow, item.Kind)
	require.Equal(t, "list", item.Row["component"])

	item, ok, err = stream.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, render.ItemRow, item.Kind)

	item, ok, err = stream.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, render.ItemFinishedQuery, item.Kind)

	_, ok, err = stream.Next()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRowsEmitsFinishedQueryOnZeroRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	sqlxDB := sqlx.NewDb(db, "mysql")

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"component", "x"}),
	)

	stream, err := NewSQLRows(context.Background(), sqlxDB, "SELECT component, x FROM t")
	require.NoError(t, err)

	item, ok, err := stream.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, render.ItemFinishedQuery, item.Kind)

	_, ok, err = stream.Next()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}
