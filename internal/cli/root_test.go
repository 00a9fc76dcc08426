package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/diskmap/internal/store"
)

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// run executes the CLI against dir and returns stdout.
func run(t *testing.T, dir string, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--dir", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"put", "get", "rm", "has", "ls", "size", "stats", "erase", "path", "import", "export"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	dir := cmd.PersistentFlags().Lookup("dir")
	require.NotNil(t, dir)
	assert.Equal(t, "d", dir.Shorthand)

	comp := cmd.PersistentFlags().Lookup("compression")
	require.NotNil(t, comp)
	assert.Equal(t, "gzip", comp.DefValue)
}

func TestPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "hello from stdin", "put", "greeting")
	require.NoError(t, err)

	out, err := run(t, dir, "", "get", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello from stdin", out)

	out, err = run(t, dir, "", "has", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = run(t, dir, "", "size")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = run(t, dir, "", "path", "greeting")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), filepath.Join("g", "r", "e", "e", "t", "i", "n", "greeting.dat.gz")))

	_, err = run(t, dir, "", "rm", "greeting")
	require.NoError(t, err)

	out, err = run(t, dir, "", "has", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestPutFromFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(t.TempDir(), "value.bin")
	require.NoError(t, os.WriteFile(src, []byte{1, 2, 3}, 0644))

	_, err := run(t, dir, "", "--compression", "zstd", "put", "bin", src)
	require.NoError(t, err)

	out, err := run(t, dir, "", "--compression", "zstd", "get", "bin")
	require.NoError(t, err)
	assert.Equal(t, string([]byte{1, 2, 3}), out)
}

func TestGetMissing(t *testing.T) {
	_, err := run(t, t.TempDir(), "", "get", "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRemoveForce(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "rm", "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = run(t, dir, "", "rm", "-f", "ghost")
	assert.NoError(t, err)
}

func TestListShowsSanitizedKeys(t *testing.T) {
	dir := t.TempDir()
	for _, k := range []string{"b.two", "a one"} {
		_, err := run(t, dir, "v", "put", k)
		require.NoError(t, err)
	}
	out, err := run(t, dir, "", "ls")
	require.NoError(t, err)
	golden(t).Assert(t, "ls", []byte(out))
}

func TestEraseCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	_, err := run(t, dir, "v", "put", "k")
	require.NoError(t, err)

	_, err = run(t, dir, "", "erase")
	require.NoError(t, err)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestStatsCommand(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		_, err := run(t, dir, "value", "put", "key"+string(rune('a'+i)))
		require.NoError(t, err)
	}
	out, err := run(t, dir, "", "--compression", "gzip", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "entries:      3")
	assert.Contains(t, out, "compression:  gzip")
}

func TestImportExport(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("12345"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "inner.txt"), []byte("ab"), 0644))

	dir := t.TempDir()
	out, err := run(t, dir, "", "import", "--workers", "2", src)
	require.NoError(t, err)
	assert.Equal(t, "imported 2 files\n", out)

	out, err = run(t, dir, "", "get", "sub/inner.txt")
	require.NoError(t, err)
	assert.Equal(t, "ab", out)

	out, err = run(t, dir, "", "export", "-")
	require.NoError(t, err)
	golden(t).Assert(t, "export", []byte(out))
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "diskmap.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("dir: "+dir+"\ncompression: none\n"), 0644))

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("plain"))
	cmd.SetArgs([]string{"--config", cfgPath, "put", "cfgkey"})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(filepath.Join(dir, "c", "f", "g", "k", "e", "cfgkey.dat"))
	assert.NoError(t, err)
}

func TestInvalidCompressionFlag(t *testing.T) {
	_, err := run(t, t.TempDir(), "", "--compression", "lz4", "size")
	assert.Error(t, err)
}
