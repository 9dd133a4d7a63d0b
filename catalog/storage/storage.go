package storage

import (
	"context"
	"errors"
)

// CatalogSource loads the raw catalog document from wherever it lives.
type CatalogSource interface {
	Load(ctx context.Context) ([]byte, error)
}

// TestCatalogSource is a simple in-memory implementation for testing
type TestCatalogSource struct {
	data []byte
	err  error
}

func NewTestCatalogSource(data []byte) *TestCatalogSource {
	return &TestCatalogSource{data: data}
}

func NewTestCatalogSourceWithError() *TestCatalogSource {
	return &TestCatalogSource{err: errors.New("not found")}
}

func (t *TestCatalogSource) Load(ctx context.Context) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}
