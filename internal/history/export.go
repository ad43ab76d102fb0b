// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/reflexion-engine/pkg/types"
)

const exportLimit = 100000

// ExportYAML writes every archived run to w as a YAML sequence, newest first.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer) error {
	recs, err := s.exportRecords(ctx)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes every archived run to w as an indented JSON array, newest first.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	recs, err := s.exportRecords(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

func (s *Store) exportRecords(ctx context.Context) ([]types.RunRecord, error) {
	recs, err := s.List(ctx, exportLimit)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if recs == nil {
		recs = []types.RunRecord{}
	}
	return recs, nil
}
