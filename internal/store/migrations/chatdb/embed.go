// Package chatdb embeds the schema migrations for a per-principal chat
// cache database.
package chatdb

import "embed"

//go:embed *.sql
var FS embed.FS
