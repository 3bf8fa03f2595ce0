package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv_LoadsExistingFilesOnly(t *testing.T) {
	tmp := t.TempDir()
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "DIRSYNC_TEST_ENV_LOAD=ok\n")

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(tmp))

	_ = os.Unsetenv("DIRSYNC_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("DIRSYNC_TEST_ENV_LOAD"))
}

func TestDatabaseOptions_ConnectionString(t *testing.T) {
	d := DatabaseOptions{
		Name:     "dirsync",
		Host:     "db.internal",
		Port:     "5433",
		User:     "sync",
		Password: "secret",
	}
	require.Equal(
		t,
		"host=db.internal port=5433 user=sync dbname=dirsync password=secret sslmode=disable",
		d.ConnectionString(),
	)
}

func TestDirectoryOptions_Validate(t *testing.T) {
	d := DirectoryOptions{BaseURL: "http://directory:8088", Timeout: 30 * time.Second}
	require.NoError(t, d.Validate())

	d.BaseURL = "not a url"
	require.Error(t, d.Validate())

	d.BaseURL = "http://directory:8088"
	d.Timeout = 0
	require.Error(t, d.Validate())
}

func TestSyncOptions_Validate(t *testing.T) {
	s := SyncOptions{Owner: "acme", Workers: 8, UserPageSize: 500}
	require.NoError(t, s.Validate())

	s.Owner = "  "
	require.Error(t, s.Validate())

	s.Owner = "acme"
	s.Workers = 0
	require.Error(t, s.Validate())

	s.Workers = 8
	s.UserPageSize = 0
	require.Error(t, s.Validate())
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
