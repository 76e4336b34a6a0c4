package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"codegraph/internal/schema"

	"github.com/klauspost/compress/zstd"
)

// export runs the per-dialect node and relationship queries and decodes each
// record into a SnapshotEntry. Both queries alias their columns to the JSON
// field names of schema.Node and schema.Relationship.
func export(ctx context.Context, q Querier, nodesQuery, relsQuery string, fn func(SnapshotEntry) error) error {
	res, err := q.Run(ctx, nodesQuery, nil)
	if err != nil {
		return fmt.Errorf("export nodes: %w", err)
	}
	for _, rec := range res.Records {
		n, err := decodeNode(rec)
		if err != nil {
			return err
		}
		if err := fn(SnapshotEntry{Node: n}); err != nil {
			return err
		}
	}

	res, err = q.Run(ctx, relsQuery, nil)
	if err != nil {
		return fmt.Errorf("export relationships: %w", err)
	}
	for _, rec := range res.Records {
		r, err := decodeRelationship(rec)
		if err != nil {
			return err
		}
		if err := fn(SnapshotEntry{Relationship: r}); err != nil {
			return err
		}
	}
	return nil
}

func decodeNode(rec Record) (*schema.Node, error) {
	var (
		n   schema.Node
		err error
	)
	if n.NodeID, err = rec.String("nodeId"); err != nil {
		return nil, err
	}
	if n.CodebaseID, err = rec.String("codebaseId"); err != nil {
		return nil, err
	}
	labels, err := rec.Strings("labels")
	if err != nil {
		return nil, err
	}
	n.Labels = primaryLabelFirst(labels)
	if n.Properties, err = decodeProperties(rec); err != nil {
		return nil, err
	}
	if n.Hash, err = rec.String("hash"); err != nil {
		return nil, err
	}
	if n.SchemaVersion, err = rec.String("schemaVersion"); err != nil {
		return nil, err
	}
	if n.CreatedAt, err = rec.Time("createdAt"); err != nil {
		return nil, err
	}
	if n.UpdatedAt, err = rec.Time("updatedAt"); err != nil {
		return nil, err
	}
	return &n, nil
}

func decodeRelationship(rec Record) (*schema.Relationship, error) {
	var (
		r   schema.Relationship
		err error
	)
	if r.NodeID, err = rec.String("nodeId"); err != nil {
		return nil, err
	}
	if r.CodebaseID, err = rec.String("codebaseId"); err != nil {
		return nil, err
	}
	t, err := rec.String("type")
	if err != nil {
		return nil, err
	}
	r.Type = schema.RelType(t)
	if r.StartNodeID, err = rec.String("startNodeId"); err != nil {
		return nil, err
	}
	if r.EndNodeID, err = rec.String("endNodeId"); err != nil {
		return nil, err
	}
	if r.Properties, err = decodeProperties(rec); err != nil {
		return nil, err
	}
	if r.Hash, err = rec.String("hash"); err != nil {
		return nil, err
	}
	if r.SchemaVersion, err = rec.String("schemaVersion"); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = rec.Time("createdAt"); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = rec.Time("updatedAt"); err != nil {
		return nil, err
	}
	if r.IsCrossCodebase, err = rec.Bool("isCrossCodebase"); err != nil {
		return nil, err
	}
	if r.SourceCodebaseID, err = rec.String("sourceCodebaseId"); err != nil {
		return nil, err
	}
	if r.TargetCodebaseID, err = rec.String("targetCodebaseId"); err != nil {
		return nil, err
	}
	return &r, nil
}

// decodeProperties drops reserved names, which graph backends return
// alongside the kind-specific attributes.
func decodeProperties(rec Record) (schema.Properties, error) {
	m, err := rec.Map("properties")
	if err != nil {
		return nil, err
	}
	props := schema.Properties{}
	for k, v := range m {
		if schema.IsReserved(k) {
			continue
		}
		props[k] = v
	}
	return props, nil
}

// primaryLabelFirst moves derived labels behind the primary kind. Graph
// backends do not preserve label order.
func primaryLabelFirst(labels []string) []string {
	out := make([]string, 0, len(labels))
	var derived []string
	for _, l := range labels {
		if schema.NodeKind(l) == schema.LabelMetacognitive {
			derived = append(derived, l)
			continue
		}
		out = append(out, l)
	}
	return append(out, derived...)
}

// ExportJSONL writes one JSON document per entity to w and returns the
// number of entities written.
func ExportJSONL(ctx context.Context, s Store, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	count := 0
	err := s.Export(ctx, func(e SnapshotEntry) error {
		count++
		return enc.Encode(e)
	})
	return count, err
}

// WriteSnapshotFile exports s to path as zstd-compressed JSON lines.
func WriteSnapshotFile(ctx context.Context, s Store, path string) (count int, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(zw)

	count, err = ExportJSONL(ctx, s, bw)
	if err != nil {
		zw.Close()
		return count, err
	}
	if err := bw.Flush(); err != nil {
		zw.Close()
		return count, err
	}
	return count, zw.Close()
}

// ReadSnapshot decodes a snapshot written by WriteSnapshotFile.
func ReadSnapshot(r io.Reader, fn func(SnapshotEntry) error) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()

	dec := json.NewDecoder(zr)
	for {
		var e SnapshotEntry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}
