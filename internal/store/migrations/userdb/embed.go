// Package userdb embeds the schema migrations for the global user cache
// database.
package userdb

import "embed"

//go:embed *.sql
var FS embed.FS
