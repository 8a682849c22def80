package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fooHeader = `#ifndef FOO_H
#define FOO_H

/**
 * Opens the foo at path.
 */
int foo_open(const char *path);

// Closes fd.
void foo_close(int fd);

#endif
`

const ffiRust = `extern "C" {
    #[doc(alias = "foo_open")]
    pub fn open(path: *const c_char) -> c_int;

    #[doc(alias = "foo_close")]
    pub fn close(fd: c_int);
}
`

const ffiRustImported = `extern "C" {
    /// Opens the foo at path.
    #[doc(alias = "foo_open")]
    pub fn open(path: *const c_char) -> c_int;

    /// Closes fd.
    #[doc(alias = "foo_close")]
    pub fn close(fd: c_int);
}
`

func setupFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p/include/foo.h", []byte(fooHeader), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/p/src/ffi.rs", []byte(ffiRust), 0o644))
	return fs
}

func execute(fs afero.Fs, args ...string) (string, string, error) {
	cmd := newRootCmd(fs)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRoot_PrintsRewrittenFiles(t *testing.T) {
	fs := setupFs(t)

	stdout, _, err := execute(fs, "--no-color", "-c", "/p/include", "/p/src")
	require.NoError(t, err)
	assert.Equal(t, "/p/src/ffi.rs:\n"+ffiRustImported+"\n", stdout)

	// nothing written
	data, err := afero.ReadFile(fs, "/p/src/ffi.rs")
	require.NoError(t, err)
	assert.Equal(t, ffiRust, string(data))

	t.Run("files without imports are printed too", func(t *testing.T) {
		plain := "pub fn plain() {}\n"
		require.NoError(t, afero.WriteFile(fs, "/p/src/plain.rs", []byte(plain), 0o644))

		stdout, _, err := execute(fs, "--no-color", "-c", "/p/include", "/p/src")
		require.NoError(t, err)
		assert.Equal(t, "/p/src/ffi.rs:\n"+ffiRustImported+"\n"+"/p/src/plain.rs:\n"+plain+"\n", stdout)
	})
}

func TestRoot_InPlaceWithBackup(t *testing.T) {
	fs := setupFs(t)

	_, _, err := execute(fs, "--no-color", "-i", "-b", "-c", "/p/include/foo.h", "/p/src/ffi.rs")
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/p/src/ffi.rs")
	require.NoError(t, err)
	assert.Equal(t, ffiRustImported, string(data))

	backup, err := afero.ReadFile(fs, "/p/src/ffi.bk")
	require.NoError(t, err)
	assert.Equal(t, ffiRust, string(backup))

	t.Run("second run is a no-op", func(t *testing.T) {
		stdout, _, err := execute(fs, "--no-color", "-i", "--diff", "-c", "/p/include", "/p/src")
		require.NoError(t, err)
		assert.Empty(t, stdout)

		stdout, _, err = execute(fs, "--no-color", "-c", "/p/include", "/p/src")
		require.NoError(t, err)
		assert.Equal(t, "/p/src/ffi.rs:\n"+ffiRustImported+"\n", stdout)

		_, _, err = execute(fs, "--check", "-c", "/p/include", "/p/src")
		assert.NoError(t, err)
	})
}

func TestRoot_Check(t *testing.T) {
	fs := setupFs(t)

	_, stderr, err := execute(fs, "--no-color", "--check", "-c", "/p/include", "/p/src")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errWouldChange))
	assert.Contains(t, stderr, "/p/src/ffi.rs: 2 doc blocks to import")

	data, err := afero.ReadFile(fs, "/p/src/ffi.rs")
	require.NoError(t, err)
	assert.Equal(t, ffiRust, string(data))
}

func TestRoot_Diff(t *testing.T) {
	fs := setupFs(t)

	stdout, _, err := execute(fs, "--no-color", "--diff", "-c", "/p/include", "/p/src")
	require.NoError(t, err)
	assert.Contains(t, stdout, "--- a//p/src/ffi.rs")
	assert.Contains(t, stdout, "+    /// Opens the foo at path.\n")
	assert.Contains(t, stdout, "+    /// Closes fd.\n")
}

func TestRoot_Diagnostics(t *testing.T) {
	fs := setupFs(t)
	require.NoError(t, afero.WriteFile(fs, "/p/src/extra.rs", []byte("#[doc(alias = \"foo_missing\")]\npub fn missing() {}\n"), 0o644))

	_, stderr, err := execute(fs, "--no-color", "-v", "-c", "/p/include", "/p/src")
	require.NoError(t, err)
	assert.Contains(t, stderr, "/p/src/extra.rs:2: info [unmatched-alias]")

	_, stderr, err = execute(fs, "--no-color", "--format", "json", "-c", "/p/include", "/p/src")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"kind": "unmatched-alias"`)
}

func TestRoot_FlagErrors(t *testing.T) {
	fs := setupFs(t)

	tests := []struct {
		name string
		args []string
	}{
		{"backup without in-place", []string{"-b", "-c", "/p/include", "/p/src"}},
		{"no c sources", []string{"/p/src"}},
		{"no rust sources", []string{"-c", "/p/include"}},
		{"bad format", []string{"--format", "xml", "-c", "/p/include", "/p/src"}},
		{"bad kind", []string{"--kinds", "lambda", "-c", "/p/include", "/p/src"}},
		{"missing input", []string{"-c", "/p/include", "/p/nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(fs, tt.args...)
			assert.Error(t, err)
		})
	}
}
