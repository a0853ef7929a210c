package bot

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/negar-bot/negar/internal/atomicfile"
)

// LoadOffset reads the persisted getUpdates offset. A missing file means a
// fresh start and reports offset 0.
func LoadOffset(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading offset file: %w", err)
	}

	offset, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing offset file %s: %w", path, err)
	}
	return offset, nil
}

// StoreOffset persists the next getUpdates offset atomically, so a crash
// between polls never replays or skips updates.
func StoreOffset(path string, offset int64) error {
	data := []byte(strconv.FormatInt(offset, 10) + "\n")
	return atomicfile.Write(path, data, 0o644)
}
