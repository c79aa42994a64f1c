// Package assets embeds the page the dev server hands to browsers.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed static
var files embed.FS

// Static returns the embedded page files rooted at the static directory
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		// The directory is embedded at build time
		panic(err)
	}
	return sub
}
