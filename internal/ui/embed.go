// Package ui embeds the static admin and user consoles. The pages are plain
// HTML; they hold credentials in browser storage and talk to the JSON API
// with the standard key headers.
package ui

import "embed"

//go:embed static
var Static embed.FS
