// Package migrations embeds the numbered SQL schema files applied by
// `shield-server migrate up`.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
