package handlers

import (
	"errors"
	"mime"
	"path/filepath"
)

var errInvalidIdentity = errors.New("identity must be live:<slug> or draft:<id>")

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
