package paths

import (
	"path/filepath"
	"testing"
)

func TestDataDirPaths(t *testing.T) {
	d := DataDir{Root: "/data/negar"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"PID", d.PID(), filepath.Join("/data/negar", PIDFile)},
		{"Config", d.Config(), filepath.Join("/data/negar", ConfigFile)},
		{"Log", d.Log(), filepath.Join("/data/negar", LogFile)},
		{"Offset", d.Offset(), filepath.Join("/data/negar", OffsetFile)},
		{"Fonts", d.Fonts(), filepath.Join("/data/negar", FontsDir)},
		{"Backgrounds", d.Backgrounds(), filepath.Join("/data/negar", BackgroundsDir)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}
