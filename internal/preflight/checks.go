package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"stencil/internal/config"
	"stencil/internal/services/aiparse"
	"stencil/internal/services/ordersource"
)

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: access: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckArtworkSpace verifies the artwork volume has enough free space.
func CheckArtworkSpace(path string, minFreeGiB int) Result {
	const name = "Artwork free space"
	if err := CheckFreeSpace(path, minFreeGiB); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("at least %d GiB free", minFreeGiB)}
}

// CheckFreeSpace returns an error when the filesystem backing path has
// less than minFreeGiB gibibytes available.
func CheckFreeSpace(path string, minFreeGiB int) error {
	if minFreeGiB <= 0 {
		return nil
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Errorf("statfs %s: %w", path, err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	required := uint64(minFreeGiB) << 30
	if free < required {
		return fmt.Errorf("insufficient free space on %s: %.1f GiB available, %d GiB required",
			path, float64(free)/float64(1<<30), minFreeGiB)
	}
	return nil
}

// CheckOrderSource verifies the order source API answers.
func CheckOrderSource(ctx context.Context, cfg *config.Config) Result {
	const name = "Order source"
	if cfg.OrderSource.BaseURL == "" {
		return Result{Name: name, Detail: "base url missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := ordersource.NewClient(ordersource.Config{
		BaseURL:        cfg.OrderSource.BaseURL,
		APIKey:         cfg.OrderSource.APIKey,
		PartnerKey:     cfg.OrderSource.PartnerKey,
		TimeoutSeconds: 10,
	})
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckAI verifies that the AI API is reachable and the key is valid.
func CheckAI(ctx context.Context, cfg *config.Config) Result {
	const name = "AI service"
	if cfg.AI.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := aiparse.NewClient(aiparse.Config{
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		DefaultYear: cfg.AI.DefaultYear,
	})
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}
