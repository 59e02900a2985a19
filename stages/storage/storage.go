// Package storage provides dataset loaders for the stage implementations.
package storage

import (
	"context"
	"errors"
)

// DataState loads a raw dataset document.
type DataState interface {
	Load(ctx context.Context) ([]byte, error)
}

// TestDataState is a simple in-memory implementation for testing
type TestDataState struct {
	data []byte
	err  error
}

func NewTestDataState(data []byte) *TestDataState {
	return &TestDataState{data: data}
}

func NewTestDataStateWithError() *TestDataState {
	return &TestDataState{err: errors.New("not found")}
}

func (t *TestDataState) Load(ctx context.Context) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}
