// Package main implements the negar bot daemon, which receives Telegram
// text messages and replies with the text typeset over a background image.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	rootpkg "github.com/negar-bot/negar"
	"github.com/negar-bot/negar/internal/background"
	"github.com/negar-bot/negar/internal/bot"
	"github.com/negar-bot/negar/internal/config"
	"github.com/negar-bot/negar/internal/fontset"
	"github.com/negar-bot/negar/internal/logger"
	"github.com/negar-bot/negar/internal/paths"
	"github.com/negar-bot/negar/internal/telegram"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//   - goreleaser: -X main.version={{.Version}}  -> "0.1.0"
//   - make build: -X main.version=$(VERSION)    -> "0.0.0-dev+05ffee5"
//
// When ldflags are not set (bare go build), resolveVersion reads the VCS info
// that Go embeds automatically, so dev builds get a useful version string
// without needing git at runtime.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags at build time it is returned as-is; otherwise VCS revision and dirty
// state embedded by the Go toolchain are used to construct a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// PID Management
// ///////////////////////////////////////////////

// pidToken generates a random 16-character hex token used to prove ownership
// of the PID file, so [removePID] only deletes the file if this instance wrote it.
func pidToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// writePID creates or opens the PID file at [DataPaths.PID], acquires an
// advisory file lock, and writes "PID:TOKEN" content. The returned file handle
// must be kept open for the lifetime of the daemon to hold the lock; pass it to
// [removePID] on shutdown.
func writePID(paths DataPaths, token string) (*os.File, error) {
	f, err := os.OpenFile(paths.PID(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock PID file: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("truncate PID file: %w", err)
	}
	content := fmt.Sprintf("%d:%s", os.Getpid(), token)
	if _, err := f.WriteString(content); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("write PID file: %w", err)
	}
	return f, nil
}

// removePID releases the advisory lock, closes the file handle, and removes the
// PID file only if the stored token matches, preventing accidental removal of a
// file owned by a different daemon instance.
func removePID(paths DataPaths, token string, f *os.File) {
	if f != nil {
		_ = unlockFile(f)
		f.Close()
	}
	data, err := os.ReadFile(paths.PID())
	if err != nil {
		return
	}
	parts := strings.SplitN(string(data), ":", 2)
	if len(parts) == 2 && parts[1] == token {
		os.Remove(paths.PID())
	}
}

// checkStalePID checks whether another bot instance is running. It attempts
// to acquire the advisory lock on the PID file; if the lock fails, another
// instance holds it. If the lock succeeds, any previous instance is dead and
// the stale file is cleaned up.
func checkStalePID(paths DataPaths) (alive bool, pid int) {
	f, err := os.OpenFile(paths.PID(), os.O_RDWR, 0o600)
	if err != nil {
		return false, 0
	}

	if lockErr := lockFile(f); lockErr != nil {
		data, _ := os.ReadFile(paths.PID())
		f.Close()
		parts := strings.SplitN(string(data), ":", 2)
		if len(parts) >= 1 {
			if p, convErr := strconv.Atoi(parts[0]); convErr == nil {
				return true, p
			}
		}
		return true, 0
	}

	// Lock acquired -- previous instance is dead. Clean up stale file.
	_ = unlockFile(f)
	f.Close()
	os.Remove(paths.PID())
	return false, 0
}

// ///////////////////////////////////////////////
// Default Data Directory
// ///////////////////////////////////////////////

// defaultDataDir returns the platform default directory for bot data,
// typically ~/.negar. Falls back to ./.negar if the home directory cannot
// be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}

// resolveFontPath resolves a configured font path: empty stays empty (the
// embedded fallback is used), absolute paths pass through, and relative
// paths are taken from the data directory's fonts folder.
func resolveFontPath(dataPaths DataPaths, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dataPaths.Fonts(), p)
}

// selectorFor maps the configured selection policy to a catalog selector.
func selectorFor(selection string) background.Selector {
	if selection == "first" {
		return background.First
	}
	return background.Random(time.Now().UnixNano())
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	dataDir := flag.String("data-dir", defaultDataDir(), "Data directory for config, fonts, backgrounds, and logs")
	flag.Parse()

	dataPaths := DataPaths{Root: *dataDir}

	if err := os.MkdirAll(dataPaths.Root, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: create data dir: %v\n", err)
		os.Exit(1)
	}

	if alive, pid := checkStalePID(dataPaths); alive {
		fmt.Fprintf(os.Stderr, "bot already running (pid %d)\n", pid)
		os.Exit(1)
	}

	if _, err := os.Stat(dataPaths.Config()); os.IsNotExist(err) {
		if writeErr := os.WriteFile(dataPaths.Config(), rootpkg.DefaultConfigTOML, 0o644); writeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write default config: %v\n", writeErr)
		}
	}

	cfg, err := config.Load(dataPaths.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: load config: %v\n", err)
		os.Exit(1)
	}

	logLevel := logger.ParseLevel(cfg.Log.Level)
	log, logCloser, err := logger.NewLogger(dataPaths.Log(), logLevel, cfg.Log.MaxSizeMB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	ver := resolveVersion()
	slog.Info(paths.BinaryName+" starting", "version", ver, "data_dir", dataPaths.Root)

	token := pidToken()
	pidFile, err := writePID(dataPaths, token)
	if err != nil {
		slog.Error("failed to write PID file", "error", err)
		os.Exit(1)
	}
	defer removePID(dataPaths, token, pidFile)

	fonts, err := fontset.Load(
		resolveFontPath(dataPaths, cfg.Fonts.Body),
		resolveFontPath(dataPaths, cfg.Fonts.Emphasis),
	)
	if err != nil {
		slog.Error("failed to load fonts", "error", err)
		os.Exit(1)
	}

	bgDir := cfg.BackgroundsDir(dataPaths.Root)
	if err := os.MkdirAll(bgDir, 0o755); err != nil {
		slog.Error("failed to create backgrounds dir", "path", bgDir, "error", err)
		os.Exit(1)
	}
	catalog, err := background.Open(bgDir, cfg.Backgrounds.Pattern, selectorFor(cfg.Backgrounds.Selection))
	if err != nil {
		slog.Error("failed to open background catalog", "error", err)
		os.Exit(1)
	}
	defer catalog.Close()
	if catalog.Len() == 0 {
		slog.Warn("no background images found, drop some into the backgrounds dir", "path", bgDir)
	}
	if cfg.Backgrounds.Watch {
		if err := catalog.Watch(); err != nil {
			slog.Warn("background watching disabled", "error", err)
		}
	}

	botToken := cfg.ResolveToken()
	if botToken == "" {
		slog.Error("no bot token configured", "env", cfg.Telegram.TokenEnv)
		os.Exit(1)
	}
	client := telegram.New(botToken)

	reconnectInterval := time.Duration(cfg.Telegram.ReconnectIntervalSeconds) * time.Second
	me, err := verifyWithRetry(client, reconnectInterval)
	if err != nil {
		slog.Error("failed to reach Telegram", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Telegram", "bot", me.Username, "id", me.ID)

	offset, err := bot.LoadOffset(dataPaths.Offset())
	if err != nil {
		slog.Warn("could not read update offset, starting fresh", "error", err)
		offset = 0
	}

	handler := bot.New(client, catalog, fonts, cfg, log)
	run(client, handler, dataPaths, cfg, offset)
}

// ///////////////////////////////////////////////
// Connect with Retry
// ///////////////////////////////////////////////

// verifyWithRetry calls getMe up to 10 times, sleeping the given interval
// between failures. Returns the bot identity on success or an error if all
// attempts are exhausted.
func verifyWithRetry(client *telegram.Client, interval time.Duration) (*telegram.User, error) {
	const maxAttempts = 10

	for i := 0; i < maxAttempts; i++ {
		me, err := client.GetMe(context.Background())
		if err == nil {
			return me, nil
		}
		slog.Warn("Telegram getMe attempt failed", "attempt", i+1, "error", err)
		if i < maxAttempts-1 {
			time.Sleep(interval)
		}
	}
	return nil, fmt.Errorf("failed to reach Telegram after %d attempts", maxAttempts)
}

// ///////////////////////////////////////////////
// Event Loop
// ///////////////////////////////////////////////

// run is the main event loop. A poller goroutine long-polls getUpdates and
// delivers batches; the loop dispatches each update to the handler and
// persists the advanced offset, until an OS interrupt/terminate signal is
// received.
func run(client *telegram.Client, handler *bot.Handler, dataPaths DataPaths, cfg *config.Config, offset int64) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := signalChannel()
	batches := make(chan []telegram.Update)

	go pollUpdates(ctx, client, cfg, offset, batches)

	for {
		select {
		case <-sigCh:
			slog.Info("received shutdown signal")
			return

		case updates := <-batches:
			for _, u := range updates {
				handler.HandleUpdate(ctx, u)
			}
			next := updates[len(updates)-1].UpdateID + 1
			if err := bot.StoreOffset(dataPaths.Offset(), next); err != nil {
				slog.Warn("persisting update offset failed", "error", err)
			}
		}
	}
}

// pollUpdates long-polls the Bot API and forwards non-empty batches. The
// in-flight offset advances immediately so a slow consumer never causes the
// same batch to be fetched twice; the durable offset is persisted by [run]
// after handling.
func pollUpdates(ctx context.Context, client *telegram.Client, cfg *config.Config, offset int64, batches chan<- []telegram.Update) {
	reconnectInterval := time.Duration(cfg.Telegram.ReconnectIntervalSeconds) * time.Second

	for {
		updates, err := client.GetUpdates(ctx, offset, cfg.Telegram.PollTimeoutSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectInterval):
			}
			continue
		}
		if len(updates) == 0 {
			continue
		}
		offset = updates[len(updates)-1].UpdateID + 1

		select {
		case batches <- updates:
		case <-ctx.Done():
			return
		}
	}
}
