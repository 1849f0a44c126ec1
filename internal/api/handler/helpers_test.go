package handler_test

import (
	"errors"
	"os"
)

var errConnectionRefused = errors.New("connection refused")

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}
