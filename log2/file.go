package log2

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// NewFile writes to size-rotated file. Returned io.Closer releases the file.
func NewFile(c FileConfig, level Level) (*Log, io.Closer) {
	w := RotateWriter(c)
	return NewWriter(w, level), w
}

func RotateWriter(c FileConfig) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   c.Path,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
	}
}

// Tee duplicates output, useful to keep stderr while writing file.
func Tee(level Level, ws ...io.Writer) *Log {
	return NewWriter(io.MultiWriter(ws...), level)
}
