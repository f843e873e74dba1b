package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB", setupDB: false},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}
			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}
			assert.NoError(t, base.Close())
		})
	}
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		args      []any
		errMsg    string
	}{
		{
			name:   "exec without connection",
			sql:    "SELECT 1",
			errMsg: "database connection not established",
		},
		{
			name:    "exec with args",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO items").WithArgs("a", 1).WillReturnResult(sqlmock.NewResult(0, 1))
			},
			sql:  "INSERT INTO items VALUES (?, ?)",
			args: []any{"a", 1},
		},
		{
			name:    "exec with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INVALID SQL").WillReturnError(assert.AnError)
			},
			sql:    "INVALID SQL",
			errMsg: "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}
			var mock sqlmock.Sqlmock
			if tt.setupDB {
				db, m, err := sqlmock.New()
				require.NoError(t, err)
				defer db.Close()
				base.DB = db
				mock = m
				tt.setupMock(mock)
			}

			err := base.Exec(context.Background(), tt.sql, tt.args...)
			if tt.errMsg != "" {
				assert.ErrorContains(t, err, tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
			if mock != nil {
				assert.NoError(t, mock.ExpectationsWereMet())
			}
		})
	}
}

func TestBaseSQLAdapter_QueryTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	base := &BaseSQLAdapter{DB: db}

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"prompt", "solution"}).
			AddRow("p1", []byte("s1")).
			AddRow("p2", nil),
	)

	tbl, err := base.QueryTable(context.Background(), "SELECT prompt, solution FROM t")
	require.NoError(t, err)
	assert.Equal(t, []string{"prompt", "solution"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "s1", tbl.Rows[0]["solution"], "byte slices become strings")
	assert.Nil(t, tbl.Rows[1]["solution"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_QueryTableErrors(t *testing.T) {
	t.Run("query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

		_, err = (&BaseSQLAdapter{DB: db}).QueryTable(context.Background(), "SELECT 1")
		assert.ErrorContains(t, err, "failed to execute query")
	})

	t.Run("row error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery("SELECT").WillReturnRows(
			sqlmock.NewRows([]string{"a"}).AddRow("x").AddRow("y").RowError(1, assert.AnError),
		)

		_, err = (&BaseSQLAdapter{DB: db}).QueryTable(context.Background(), "SELECT a FROM t")
		assert.ErrorContains(t, err, "error iterating rows")
	})

	t.Run("not connected", func(t *testing.T) {
		_, err := (&BaseSQLAdapter{}).QueryTable(context.Background(), "SELECT 1")
		assert.ErrorContains(t, err, "database connection not established")
	})
}
