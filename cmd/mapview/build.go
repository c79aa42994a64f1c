package main

import (
	"compress/gzip"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recera/mapview/internal/cache"
)

type buildFlags struct {
	projectFlags
	output   string
	optimize bool
	noCache  bool
	clean    bool
}

func newBuildCommand() *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the WASM viewer",
		Long: `Compiles app/client to app.wasm with GOOS=js GOARCH=wasm and copies the
matching wasm_exec.js next to it. Unchanged sources reuse the cached build.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output directory (default from config, public)")
	cmd.Flags().BoolVar(&flags.optimize, "optimize", true, "Strip debug info")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Always invoke the compiler")
	cmd.Flags().BoolVar(&flags.clean, "clean", false, "Empty the build cache before building")

	return cmd
}

func runBuild(flags *buildFlags) error {
	log.Println("🚀 Building mapview viewer...")

	cfg, err := flags.load(nil)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	output := flags.output
	if output == "" {
		output = cfg.Dev.PublicDir
		if !filepath.IsAbs(output) {
			output = filepath.Join(flags.dir, output)
		}
	}
	if err := os.MkdirAll(output, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	buildCache, err := openBuildCache(cache.DefaultConfig(), flags.clean)
	if err != nil {
		log.Printf("⚠️  Failed to initialize build cache: %v", err)
	}
	if flags.noCache {
		buildCache = nil
	}

	wasmPath := filepath.Join(output, "app.wasm")
	if err := buildWASM(flags.dir, wasmPath, flags.optimize, buildCache); err != nil {
		return err
	}

	log.Println("📄 Copying wasm_exec.js...")
	if err := copyWasmExec(output); err != nil {
		return fmt.Errorf("failed to copy wasm_exec.js: %w", err)
	}

	log.Println("\n📊 Build complete!")
	reportBuildSizes(output)
	if buildCache != nil {
		log.Printf("  Cache:       %s", cacheSummary(buildCache.GetStats()))
	}
	return nil
}

// openBuildCache opens the build cache, emptying it first when clean is set
func openBuildCache(config cache.Config, clean bool) (*cache.Cache, error) {
	c, err := cache.New(config)
	if err != nil {
		return nil, err
	}
	if clean {
		if err := c.Clear(); err != nil {
			return nil, err
		}
		log.Printf("🧹 Cleared build cache in %s", c.Dir())
	}
	return c, nil
}

// restoreBuild copies a cached build to wasmPath. An entry that cannot be
// restored is dropped so the next build stores a fresh one.
func restoreBuild(c *cache.Cache, key, wasmPath string) bool {
	hit, err := c.GetFile(key, wasmPath)
	if err != nil {
		log.Printf("⚠️  Failed to restore cached build: %v", err)
		if err := c.Delete(key); err != nil {
			log.Printf("⚠️  Failed to drop cache entry: %v", err)
		}
		return false
	}
	return hit
}

func cacheSummary(stats cache.Stats) string {
	return fmt.Sprintf("%d hits, %d misses, %d entries (%s)",
		stats.Hits, stats.Misses, stats.EntryCount, formatSize(stats.TotalSize))
}

// buildWASM compiles app/client into wasmPath, going through buildCache
// when it is not nil
func buildWASM(dir, wasmPath string, optimize bool, buildCache *cache.Cache) error {
	var cacheKey string
	if buildCache != nil {
		key, err := cache.SourceKey(dir, "js/wasm", goVersion(), fmt.Sprintf("optimize=%t", optimize))
		if err != nil {
			log.Printf("⚠️  Cache key generation failed: %v", err)
			buildCache = nil
		} else {
			cacheKey = key
		}
	}

	if buildCache != nil && restoreBuild(buildCache, cacheKey, wasmPath) {
		log.Println("⚡ Using cached WASM build")
		return nil
	}

	// The compiler runs in dir, so the output path must not be relative
	absOut, err := filepath.Abs(wasmPath)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}

	log.Println("🔨 Building WASM...")
	args := []string{"build", "-o", absOut}
	if optimize {
		args = append(args, "-ldflags", "-s -w")
	}
	args = append(args, "./app/client")

	cmd := exec.Command("go", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOOS=js", "GOARCH=wasm")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("WASM build failed: %w\nOutput: %s", err, out)
	}

	if buildCache != nil {
		if err := buildCache.PutFile(cacheKey, absOut); err != nil {
			log.Printf("⚠️  Failed to cache build: %v", err)
		} else {
			log.Println("💾 Cached WASM build")
		}
	}
	return nil
}

func goVersion() string {
	out, err := exec.Command("go", "env", "GOVERSION").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

// wasmExecPath finds the wasm_exec.js shipped with the Go toolchain
func wasmExecPath() (string, error) {
	goroot, err := exec.Command("go", "env", "GOROOT").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get GOROOT: %w", err)
	}
	root := strings.TrimSpace(string(goroot))

	// lib/wasm since Go 1.24, misc/wasm before
	for _, rel := range []string{"lib/wasm/wasm_exec.js", "misc/wasm/wasm_exec.js"} {
		path := filepath.Join(root, rel)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("wasm_exec.js not found under %s", root)
}

func copyWasmExec(output string) error {
	path, err := wasmExecPath()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read wasm_exec.js: %w", err)
	}
	return os.WriteFile(filepath.Join(output, "wasm_exec.js"), content, 0644)
}

func reportBuildSizes(output string) {
	wasmPath := filepath.Join(output, "app.wasm")
	if info, err := os.Stat(wasmPath); err == nil {
		log.Printf("  WASM:        %s", formatSize(info.Size()))
		log.Printf("  WASM (gzip): %s", formatSize(getGzippedSize(wasmPath)))
	}
	log.Printf("\n✨ Build output: %s", output)
}

func getGzippedSize(path string) int64 {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0
	}

	var buf strings.Builder
	gz := gzip.NewWriter(&buf)
	gz.Write(content)
	gz.Close()

	return int64(buf.Len())
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
