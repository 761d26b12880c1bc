// Package db embeds the storefront schema so the binaries can migrate on
// startup without shipping SQL files alongside them.
package db

import _ "embed"

// Schema contains the DDL for the users, products and orders tables.
//
//go:embed migrations/001_schema.sql
var Schema string
