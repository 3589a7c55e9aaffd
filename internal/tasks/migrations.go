package tasks

import (
	"embed"
	"io/fs"
)

//go:embed migrations
var embedded embed.FS

// Migrations returns the schema migrations with one directory per dialect
// ("postgres", "sqlite3") at its root.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}
