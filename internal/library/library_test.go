package library

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 9, 30, 15, 0, time.Local)
}

func TestNamer_Next(t *testing.T) {
	dir := t.TempDir()
	n := NewNamer(dir, fixedNow)

	assert.Equal(t, "2024-05-01_09-30-15", n.Next())
	assert.Equal(t, "2024-05-01_09-30-15_2", n.Next())
	assert.Equal(t, "2024-05-01_09-30-15_3", n.Next())
}

func TestNamer_SkipsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	_, video := Paths(dir, "2024-05-01_09-30-15")
	require.NoError(t, os.WriteFile(video, []byte("x"), 0644))

	n := NewNamer(dir, fixedNow)
	assert.Equal(t, "2024-05-01_09-30-15_2", n.Next(), "既存ファイルを上書きしない")
}

func TestPaths(t *testing.T) {
	cover, video := Paths("videos", "a")
	assert.Equal(t, filepath.Join("videos", "a.jpg"), cover)
	assert.Equal(t, filepath.Join("videos", "a.avi"), video)
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("2024-05-01_09-30-15_2"))
	assert.False(t, ValidName("../etc/passwd"))
	assert.False(t, ValidName("a/b"))
	assert.False(t, ValidName(""))
}

func TestList(t *testing.T) {
	dir := t.TempDir()

	old := time.Now().Add(-time.Hour)
	write := func(name string, mod time.Time, withCover bool) {
		cover, video := Paths(dir, name)
		require.NoError(t, os.WriteFile(video, []byte("video"), 0644))
		require.NoError(t, os.Chtimes(video, mod, mod))
		if withCover {
			require.NoError(t, imaging.Save(imaging.New(4, 4, image.Black.C), cover))
		}
	}
	write("older", old, true)
	write("newer", time.Now(), false)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.avi"), 0755))

	videos, err := List(dir)
	require.NoError(t, err)
	require.Len(t, videos, 2)

	assert.Equal(t, "newer", videos[0].Name)
	assert.Empty(t, videos[0].CoverPath)
	assert.Equal(t, "older", videos[1].Name)
	assert.NotEmpty(t, videos[1].CoverPath)
	assert.EqualValues(t, 5, videos[1].Size)
}

func TestList_MissingDirectory(t *testing.T) {
	videos, err := List(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestThumbnail(t *testing.T) {
	dir := t.TempDir()
	cover, _ := Paths(dir, "clip")
	require.NoError(t, imaging.Save(imaging.New(320, 240, image.White.C), cover))

	img, err := Thumbnail(dir, "clip", 160, 160)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(160, 120), img.Bounds().Size(), "アスペクト比を保つ")

	img, err = Thumbnail(dir, "clip", 80, 0)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(80, 60), img.Bounds().Size())

	_, err = Thumbnail(dir, "missing", 80, 0)
	assert.Error(t, err)

	_, err = Thumbnail(dir, "../clip", 80, 0)
	assert.Error(t, err)
}
