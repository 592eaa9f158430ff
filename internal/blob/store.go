// Package blob stores minutes PDFs, recognition sidecars and parse results
// either in a local directory or in an Azure blob container.
package blob

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"
)

// ErrNotFound is returned by Get for a missing object
var ErrNotFound = errors.New("blob not found")

// Store is a flat namespace of slash separated object names
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

const (
	pdfSuffix     = ".pdf"
	sidecarSuffix = ".ocr.json"
	resultSuffix  = ".json"
)

// Pending lists the PDFs in store that have no parse result yet, sorted by
// name. results may be the same store.
func Pending(ctx context.Context, source, results Store) ([]string, error) {
	names, err := source.List(ctx, "")
	if err != nil {
		return nil, err
	}

	done := map[string]bool{}
	resultNames := names
	if results != source {
		if resultNames, err = results.List(ctx, ""); err != nil {
			return nil, err
		}
	}
	for _, name := range resultNames {
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, resultSuffix) && !strings.HasSuffix(lower, sidecarSuffix) {
			done[strings.TrimSuffix(name, path.Ext(name))] = true
		}
	}

	pending := []string{}
	for _, name := range names {
		if !strings.HasSuffix(strings.ToLower(name), pdfSuffix) {
			continue
		}
		if !done[strings.TrimSuffix(name, path.Ext(name))] {
			pending = append(pending, name)
		}
	}
	sort.Strings(pending)
	return pending, nil
}
