package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lnies/pressure-display/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logFiles(names ...string) []models.LogFile {
	files := make([]models.LogFile, len(names))
	for i, name := range names {
		files[i] = models.LogFile{Path: "/data/" + name, Name: name}
	}
	return files
}

func names(files []models.LogFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestSelectWindow(t *testing.T) {
	t.Run("keeps the lexically last n in order", func(t *testing.T) {
		files := logFiles("p_20191130.dat", "p_20191126.dat", "p_20191128.dat", "p_20191127.dat", "p_20191129.dat")
		got, err := SelectWindow(files, 3, ByName{})
		require.NoError(t, err)
		assert.Equal(t, []string{"p_20191128.dat", "p_20191129.dat", "p_20191130.dat"}, names(got))
	})

	t.Run("sorts on basename not full path", func(t *testing.T) {
		files := []models.LogFile{
			{Path: "/z/a_02.dat", Name: "a_02.dat"},
			{Path: "/a/a_03.dat", Name: "a_03.dat"},
			{Path: "/m/a_01.dat", Name: "a_01.dat"},
		}
		got, err := SelectWindow(files, 2, ByName{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a_02.dat", "a_03.dat"}, names(got))
	})

	t.Run("window larger than candidates", func(t *testing.T) {
		got, err := SelectWindow(logFiles("b", "a"), 10, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, names(got))
	})

	t.Run("does not reorder the input", func(t *testing.T) {
		files := logFiles("b", "a")
		_, err := SelectWindow(files, 2, ByName{})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, names(files))
	})

	t.Run("empty candidates signal no data", func(t *testing.T) {
		got, err := SelectWindow(nil, 3, ByName{})
		assert.ErrorIs(t, err, ErrNoData)
		assert.Nil(t, got)
	})

	t.Run("zero window signals no data", func(t *testing.T) {
		_, err := SelectWindow(logFiles("a"), 0, ByName{})
		assert.ErrorIs(t, err, ErrNoData)
	})
}

func TestByModTime(t *testing.T) {
	base := time.Date(2019, 11, 30, 0, 0, 0, 0, time.UTC)
	files := []models.LogFile{
		{Path: "/d/zz.dat", Name: "zz.dat", ModTime: base},
		{Path: "/d/aa.dat", Name: "aa.dat", ModTime: base.Add(time.Hour)},
		{Path: "/d/mm.dat", Name: "mm.dat", ModTime: base.Add(-time.Hour)},
	}

	got, err := SelectWindow(files, 2, ByModTime{})
	require.NoError(t, err)
	assert.Equal(t, []string{"zz.dat", "aa.dat"}, names(got))
}

func TestOrderingFor(t *testing.T) {
	o, err := OrderingFor("")
	require.NoError(t, err)
	assert.IsType(t, ByName{}, o)

	o, err = OrderingFor("mtime")
	require.NoError(t, err)
	assert.IsType(t, ByModTime{}, o)

	_, err = OrderingFor("size")
	assert.Error(t, err)
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.dat", "b.dat", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.dat"), 0755))

	t.Run("matches files only", func(t *testing.T) {
		files, err := Locate(filepath.Join(dir, "*dat"))
		require.NoError(t, err)
		got := names(files)
		assert.ElementsMatch(t, []string{"a.dat", "b.dat"}, got)
		for _, f := range files {
			assert.False(t, f.ModTime.IsZero())
		}
	})

	t.Run("no match is not an error", func(t *testing.T) {
		files, err := Locate(filepath.Join(dir, "*.csv"))
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := Locate(filepath.Join(dir, "["))
		assert.ErrorIs(t, err, ErrNoMatchingFiles)
	})
}
