// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete storage backend to run,
// which in turn register their factories with the storage package.
//
// Importing this package makes the following storage kinds available:
//
//   - "mssql"    (dataimport/internal/storage/mssql)
//   - "postgres" (dataimport/internal/storage/postgres)
//   - "sqlite"   (dataimport/internal/storage/sqlite)
//   - "mysql"    (dataimport/internal/storage/mysql)
//
// A binary that supports only a subset of backends can import the backend
// packages it needs instead.
package all

import (
	_ "dataimport/internal/storage/mssql"
	_ "dataimport/internal/storage/mysql"
	_ "dataimport/internal/storage/postgres"
	_ "dataimport/internal/storage/sqlite"
)
