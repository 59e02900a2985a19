package storage

import (
	"context"
	"os"
)

type FileDataState struct {
	FilePath string
}

func NewFileDataState(filePath string) *FileDataState {
	return &FileDataState{FilePath: filePath}
}

func (f *FileDataState) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(f.FilePath)
}
