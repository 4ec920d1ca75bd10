package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stonify/pkg/config"
	"github.com/marmos91/stonify/pkg/transfer"
	"github.com/marmos91/stonify/pkg/wiretap"
)

func TestParseArgs(t *testing.T) {
	t.Run("PositionalArguments", func(t *testing.T) {
		o, _, err := parseArgs([]string{"mars:IFFFS/clip", "venus:IFFFS/lib", "copy"})
		require.NoError(t, err)
		assert.Equal(t, []string{"mars:IFFFS/clip", "venus:IFFFS/lib", "copy"}, o.args)
		assert.False(t, o.hasRange)
	})

	t.Run("RangeNeedsBothEnds", func(t *testing.T) {
		_, _, err := parseArgs([]string{"--start", "3", "a", "b", "c"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "both --start and --end")
	})

	t.Run("Range", func(t *testing.T) {
		o, _, err := parseArgs([]string{"--start", "9", "--end", "2", "a", "b", "c"})
		require.NoError(t, err)
		assert.True(t, o.hasRange)
	})

	t.Run("WrongArgumentCount", func(t *testing.T) {
		_, _, err := parseArgs([]string{"a", "b"})
		assert.Error(t, err)

		_, _, err = parseArgs([]string{"--shot", "a", "b", "c"})
		assert.Error(t, err)
	})

	t.Run("InitConfigNeedsNoArguments", func(t *testing.T) {
		o, _, err := parseArgs([]string{"--init-config"})
		require.NoError(t, err)
		assert.True(t, o.initConfig)
	})
}

func TestBuildRequest(t *testing.T) {
	cfg := config.GetDefaultConfig()

	t.Run("NodePaths", func(t *testing.T) {
		o, fs, err := parseArgs([]string{"--start", "9", "--end", "2", "mars:IFFFS/stonefs/show/abc", "venus:IFFFS/stonefs/show/def", "shot_010"})
		require.NoError(t, err)

		req, err := buildRequest(o, fs, cfg)
		require.NoError(t, err)
		assert.Equal(t, "mars:IFFFS", req.SourceHost)
		assert.Equal(t, "/stonefs/show/abc", req.SourceClipID)
		assert.Equal(t, "venus:IFFFS", req.DestinationHost)
		assert.Equal(t, "/stonefs/show/def", req.DestinationParent)
		assert.Equal(t, "shot_010", req.ClipName)
		assert.False(t, req.UseDisplayName)
		require.NotNil(t, req.Range)
		assert.Equal(t, transfer.FrameRange{Start: 2, End: 9}, *req.Range)
		assert.Equal(t, transfer.NonDropFrame, req.DropMode)
		assert.Equal(t, "00:00:00:00", req.StartTimecode)
	})

	t.Run("ShotPath", func(t *testing.T) {
		o, fs, err := parseArgs([]string{"--shot", "mars:IFFFS/clip", "venus/stonefs/show/dailies/shot_010"})
		require.NoError(t, err)

		req, err := buildRequest(o, fs, cfg)
		require.NoError(t, err)
		assert.Equal(t, "venus:IFFFS", req.DestinationHost)
		assert.Equal(t, "/stonefs/show/dailies", req.DestinationParent)
		assert.Equal(t, "shot_010", req.ClipName)
		assert.True(t, req.UseDisplayName)
	})

	t.Run("GatewaySourceMounted", func(t *testing.T) {
		custom := config.GetDefaultConfig()
		custom.Mounts = map[string]string{"/mnt/proj": "//fileserver/c"}

		o, fs, err := parseArgs([]string{"mars:Gateway/mnt/proj/plates/a.mov@CLIP", "venus:IFFFS/stonefs/show/def", "a"})
		require.NoError(t, err)

		req, err := buildRequest(o, fs, custom)
		require.NoError(t, err)
		assert.Equal(t, "mars:Gateway", req.SourceHost)
		assert.Equal(t, "/fileserver/c/plates/a.mov@CLIP", req.SourceClipID)
	})

	t.Run("ShotPathTooShort", func(t *testing.T) {
		o, fs, err := parseArgs([]string{"--shot", "mars:IFFFS/clip", "venus/stonefs/shot_010"})
		require.NoError(t, err)

		_, err = buildRequest(o, fs, cfg)
		assert.True(t, wiretap.IsCode(err, wiretap.ErrInvalidPath))
	})

	t.Run("FlagsOverrideConfig", func(t *testing.T) {
		custom := config.GetDefaultConfig()
		custom.Transfer.Overwrite = true

		o, fs, err := parseArgs([]string{"--overwrite=false", "--drop-mode", "df", "--timecode", "01:00:00;00", "a:IFFFS/x", "b:IFFFS/y", "z"})
		require.NoError(t, err)

		req, err := buildRequest(o, fs, custom)
		require.NoError(t, err)
		assert.False(t, req.Overwrite)
		assert.Equal(t, transfer.DropFrame, req.DropMode)
		assert.Equal(t, "01:00:00;00", req.StartTimecode)
	})

	t.Run("InvalidDropMode", func(t *testing.T) {
		o, fs, err := parseArgs([]string{"--drop-mode", "sometimes", "a:IFFFS/x", "b:IFFFS/y", "z"})
		require.NoError(t, err)

		_, err = buildRequest(o, fs, cfg)
		assert.True(t, wiretap.IsCode(err, wiretap.ErrFormat))
	})
}

func TestLimits(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Transfer.Limits.FramesPerSecond = 24

	o, fs, err := parseArgs([]string{"--bandwidth", "200MB", "a", "b", "c"})
	require.NoError(t, err)

	l, err := limits(o, fs, cfg)
	require.NoError(t, err)
	assert.Equal(t, 24.0, l.FramesPerSecond)
	assert.Equal(t, int64(200_000_000), l.BytesPerSecond)

	o, fs, err = parseArgs([]string{"--bandwidth", "lots", "a", "b", "c"})
	require.NoError(t, err)
	_, err = limits(o, fs, cfg)
	assert.Error(t, err)
}
