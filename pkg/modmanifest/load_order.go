// SPDX-License-Identifier: MPL-2.0

package modmanifest

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"github.com/modkit/modkit/pkg/cueutil"
)

// LoadOrder is the parsed root load order manifest.
// The first listed mod is the core mod.
type LoadOrder struct {
	Order []string `json:"order"`
}

// ParseLoadOrder decodes a load order manifest. Both {"order": [...]} and a
// bare JSON array of mod IDs are accepted.
func ParseLoadOrder(data []byte, filename string) (*LoadOrder, error) {
	var lo *LoadOrder
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		res, err := cueutil.DecodeJSON[[]string](schema, data, "#LoadOrderList", cueutil.WithFilename(filename))
		if err != nil {
			return nil, err
		}
		lo = &LoadOrder{Order: *res.Value}
	} else {
		res, err := cueutil.DecodeJSON[LoadOrder](schema, data, "#LoadOrder", cueutil.WithFilename(filename))
		if err != nil {
			return nil, err
		}
		lo = res.Value
	}

	if len(lo.Order) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, ErrEmptyLoadOrder)
	}
	return lo, nil
}

// ReadLoadOrderFile reads a load order manifest from disk. A missing file is
// reported with an error satisfying errors.Is(err, fs.ErrNotExist).
func ReadLoadOrderFile(path string) (*LoadOrder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read load order: %w", err)
	}
	return ParseLoadOrder(data, path)
}

// Core returns the core mod ID (the first entry).
func (lo *LoadOrder) Core() string {
	if lo == nil || len(lo.Order) == 0 {
		return ""
	}
	return lo.Order[0]
}

// Contains reports whether id is listed.
func (lo *LoadOrder) Contains(id string) bool {
	return lo != nil && slices.Contains(lo.Order, id)
}
