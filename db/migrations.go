// Package db carries the SQL migrations compiled into the binary.
package db

import "embed"

// Migrations holds db/pg/*.sql
//
//go:embed pg/*.sql
var Migrations embed.FS

// MigrationsPath is the directory of the migrations inside Migrations
const MigrationsPath = "pg"
