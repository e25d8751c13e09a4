package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/plate.report/internal/alpr"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestApplyEnv(t *testing.T) {
	c := &RunConfig{Detector: &DetectorConfig{InputSize: ptrInt(320)}}
	err := c.applyEnv(envMap(map[string]string{
		EnvMode:             "plate-only",
		EnvMaxFrames:        "25",
		EnvMinConfidence:    "0.6",
		EnvPlateModel:       "plate.onnx",
		EnvRecognizer:       BackendRemote,
		EnvModelServiceAddr: "models:50051",
		EnvDatabase:         "runs.db",
		EnvLiveAddr:         ":8090",
	}))
	require.NoError(t, err)

	assert.Equal(t, alpr.ModePlateOnly, c.GetMode())
	assert.Equal(t, 25, c.GetMaxFrames())
	assert.Equal(t, 0.6, c.GetMinTextConfidence())
	assert.Equal(t, "plate.onnx", c.GetPlateModel())
	assert.Equal(t, 320, c.GetInputSize(), "existing detector settings are kept")
	assert.Equal(t, BackendRemote, c.GetRecognizerBackend())
	assert.Equal(t, "models:50051", c.GetModelServiceAddr())
	assert.Equal(t, "runs.db", c.GetDatabase())
	assert.Equal(t, ":8090", c.GetLiveAddr())
}

func TestApplyEnv_Empty(t *testing.T) {
	c := &RunConfig{}
	require.NoError(t, c.applyEnv(envMap(nil)))
	assert.Nil(t, c.Detector)
	assert.Nil(t, c.Recognizer)
	assert.Nil(t, c.Mode)
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"max frames":     {EnvMaxFrames: "ten"},
		"confidence":     {EnvMinConfidence: "high"},
		"mode":           {EnvMode: "cars"},
		"negative limit": {EnvMaxFrames: "-3"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, (&RunConfig{}).applyEnv(envMap(env)))
		})
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PLATE_TEST_LOADENV=plate-only\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("PLATE_TEST_LOADENV") })

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "plate-only", os.Getenv("PLATE_TEST_LOADENV"))
}

func TestLoadEnv_MissingFileIgnored(t *testing.T) {
	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "absent.env")))
}
