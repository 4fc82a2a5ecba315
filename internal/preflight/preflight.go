package preflight

import (
	"context"

	"stencil/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding collaborator is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Artwork directory", cfg.Paths.ArtworkDir))
	results = append(results, CheckDirectoryAccess("Sheet directory", cfg.Paths.SheetDir))

	if cfg.Artwork.MinFreeSpaceGiB > 0 {
		results = append(results, CheckArtworkSpace(cfg.Paths.ArtworkDir, cfg.Artwork.MinFreeSpaceGiB))
	}

	results = append(results, CheckOrderSource(ctx, cfg))
	results = append(results, CheckAI(ctx, cfg))

	return results
}
