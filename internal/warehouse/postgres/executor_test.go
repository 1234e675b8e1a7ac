package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/chainquery/chainquery/internal/warehouse"
)

func TestExecuteReturnsColumnsAndRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT \* FROM \(SELECT COUNT\(\*\) AS tx_count FROM transactions\) AS q LIMIT 1000`).
		WillReturnRows(sqlmock.NewRows([]string{"tx_count"}).AddRow(int64(42)))

	executor := NewWithDB(db)
	result, err := executor.Execute(context.Background(), warehouse.Request{
		SQL:      "SELECT COUNT(*) AS tx_count FROM transactions;",
		RowLimit: 1000,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Columns) != 1 || result.Columns[0] != "tx_count" {
		t.Fatalf("Columns = %#v", result.Columns)
	}
	if result.RowCount != 1 {
		t.Fatalf("RowCount = %d", result.RowCount)
	}
	if result.Rows[0][0] != int64(42) {
		t.Fatalf("Rows[0][0] = %#v", result.Rows[0][0])
	}
	if result.JobID == "" {
		t.Fatal("JobID is empty")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExecuteNormalizesByteColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT address FROM wallets`).
		WillReturnRows(sqlmock.NewRows([]string{"address"}).AddRow([]byte("0xabc")))

	result, err := NewWithDB(db).Execute(context.Background(), warehouse.Request{SQL: "SELECT address FROM wallets"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Rows[0][0] != "0xabc" {
		t.Fatalf("Rows[0][0] = %#v, want string", result.Rows[0][0])
	}
}

func TestExecuteRejectsNonReadOnlySQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := NewWithDB(db).Execute(context.Background(), warehouse.Request{SQL: "DELETE FROM transactions"}); err == nil {
		t.Fatal("Execute() expected error for non-read-only SQL")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no query should have reached the database: %v", err)
	}
}

func TestExecuteRejectsEmptySQL(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := NewWithDB(db).Execute(context.Background(), warehouse.Request{SQL: "  ;  "}); err == nil {
		t.Fatal("Execute() expected error for empty SQL")
	}
}

func TestExecutePropagatesQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT bogus FROM nowhere`).
		WillReturnError(context.DeadlineExceeded)

	if _, err := NewWithDB(db).Execute(context.Background(), warehouse.Request{SQL: "SELECT bogus FROM nowhere"}); err == nil {
		t.Fatal("Execute() expected error")
	}
}
