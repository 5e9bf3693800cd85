// Package appfs embeds the static files shipped with the binaries.
package appfs

import "embed"

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "assets/templates/email"
	CommonPasswordsGz = "assets/common-passwords.txt.gz"
)

//go:embed migrations assets
var FS embed.FS
