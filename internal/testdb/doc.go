// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database.
//
// Tests obtain a migrated connection with GetTestDBWithT, which skips the test
// when no database URL is configured, and isolate their writes with WithTx,
// which rolls the transaction back when the test function returns:
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        tasks := postgres.NewPostgresTaskStore(tx, nil)
//	        // ...
//	    })
//	}
//
// The database URL is read from ARTISAN_TEST_DATABASE_URL, then DATABASE_URL.
package testdb
