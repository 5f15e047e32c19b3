package graphsnap

import (
	"context"
	"fmt"
)

// RunExportPipeline materializes snapshotID, derives its tensor bundle and
// saves the bundle to outputPath.
func RunExportPipeline(ctx context.Context, snapshotID, outputPath string, opts ...Option) (*TensorBundle, error) {
	if outputPath == "" {
		return nil, fmt.Errorf("%w: output path is required", ErrInvalidArgument)
	}
	snap, err := Materialize(ctx, snapshotID, opts...)
	if err != nil {
		return nil, err
	}
	bundle, err := BuildTensorBundle(snap)
	if err != nil {
		return nil, fmt.Errorf("build tensor bundle for %s: %w", snapshotID, err)
	}
	if err := SaveTensorBundle(bundle, outputPath); err != nil {
		return nil, err
	}
	return bundle, nil
}
