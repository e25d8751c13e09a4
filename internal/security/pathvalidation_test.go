package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "reports"), 0o755))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in dir", filepath.Join(base, "plates.csv"), false},
		{"nested new file", filepath.Join(base, "reports", "run", "chart.html"), false},
		{"dot dot escape", filepath.Join(base, "..", "plates.csv"), true},
		{"absolute elsewhere", "/etc/passwd", true},
		{"dir itself", base, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, base)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinDirectory_SymlinkEscape(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(base, "out")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	err := ValidatePathWithinDirectory(filepath.Join(link, "plates.csv"), base)
	assert.Error(t, err)
}

func TestValidateOutputPath(t *testing.T) {
	extra := t.TempDir()
	assert.NoError(t, ValidateOutputPath(filepath.Join(os.TempDir(), "plates.csv")))
	assert.NoError(t, ValidateOutputPath("plates.csv"))
	assert.NoError(t, ValidateOutputPath(filepath.Join(extra, "x.png"), extra))
	assert.Error(t, ValidateOutputPath("/proc/self/plates.csv"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"AB12CDE":          "AB12CDE",
		"AB 12/CDE":        "AB_12_CDE",
		"../../etc/passwd": "etc_passwd",
		"":                 "unknown",
		"...":              "unknown",
		"plate #7!!":       "plate_7",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "input %q", in)
	}
}
