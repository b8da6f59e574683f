package bridge

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocator(profile Profile, c Candidates, exeDir, wd string) *Locator {
	l := NewLocator(profile, c)
	l.executable = func() (string, error) { return filepath.Join(exeDir, "iris-mcp"), nil }
	l.getwd = func() (string, error) { return wd, nil }
	return l
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("engine"), 0755))
}

func TestLocator_CandidateOrder(t *testing.T) {
	c := Candidates{
		Development: []string{"dev.jar"},
		Production:  []string{"prod.jar"},
		Fallbacks:   []string{"fallback.jar"},
	}

	assert.Equal(t, []string{"dev.jar", "prod.jar", "fallback.jar"}, NewLocator(ProfileDevelopment, c).Candidates())
	assert.Equal(t, []string{"prod.jar", "dev.jar", "fallback.jar"}, NewLocator(ProfileProduction, c).Candidates())
}

func TestLocator_ProfileDecidesWinner(t *testing.T) {
	exeDir := t.TempDir()
	touch(t, filepath.Join(exeDir, "build", "engine.jar"))
	touch(t, filepath.Join(exeDir, "resources", "engine.jar"))

	c := Candidates{
		Development: []string{"build/engine.jar"},
		Production:  []string{"resources/engine.jar"},
	}

	got, err := newTestLocator(ProfileDevelopment, c, exeDir, t.TempDir()).Locate()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(exeDir, "build", "engine.jar"), got)

	got, err = newTestLocator(ProfileProduction, c, exeDir, t.TempDir()).Locate()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(exeDir, "resources", "engine.jar"), got)
}

func TestLocator_FallsBackToWorkingDir(t *testing.T) {
	exeDir := t.TempDir()
	wd := t.TempDir()
	touch(t, filepath.Join(wd, "engine", "iris.jar"))

	l := newTestLocator(ProfileProduction, Candidates{Fallbacks: []string{"engine/iris.jar"}}, exeDir, wd)

	got, err := l.Locate()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "engine", "iris.jar"), got)
}

func TestLocator_AbsoluteCandidate(t *testing.T) {
	engine := filepath.Join(t.TempDir(), "abs.jar")
	touch(t, engine)

	l := newTestLocator(ProfileProduction, Candidates{Production: []string{engine}}, t.TempDir(), t.TempDir())
	got, err := l.Locate()
	require.NoError(t, err)
	assert.Equal(t, engine, got)
}

func TestLocator_IgnoresDirectories(t *testing.T) {
	exeDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(exeDir, "engine.jar"), 0755))

	l := newTestLocator(ProfileProduction, Candidates{Production: []string{"engine.jar"}}, exeDir, exeDir)
	_, err := l.Locate()
	assert.Equal(t, KindEngineNotFound, KindOf(err))
}

func TestLocator_NotFoundListsEveryPath(t *testing.T) {
	exeDir := t.TempDir()
	wd := t.TempDir()

	l := newTestLocator(ProfileDevelopment, Candidates{
		Development: []string{"a/engine.jar"},
		Production:  []string{"b/engine.jar"},
	}, exeDir, wd)

	_, err := l.Locate()
	require.Error(t, err)

	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, KindEngineNotFound, be.Kind)
	assert.Equal(t, []string{
		filepath.Join(exeDir, "a", "engine.jar"),
		filepath.Join(wd, "a", "engine.jar"),
		filepath.Join(exeDir, "b", "engine.jar"),
		filepath.Join(wd, "b", "engine.jar"),
	}, be.Checked)
}

func TestLocator_ResolvesExecutableSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	realDir := t.TempDir()
	linkDir := t.TempDir()
	touch(t, filepath.Join(realDir, "iris-mcp"))
	touch(t, filepath.Join(realDir, "engine.jar"))
	require.NoError(t, os.Symlink(filepath.Join(realDir, "iris-mcp"), filepath.Join(linkDir, "iris-mcp")))

	l := NewLocator(ProfileProduction, Candidates{Production: []string{"engine.jar"}})
	l.executable = func() (string, error) { return filepath.Join(linkDir, "iris-mcp"), nil }
	l.getwd = func() (string, error) { return t.TempDir(), nil }

	got, err := l.Locate()
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(filepath.Join(realDir, "engine.jar"))
	require.NoError(t, err)
	gotReal, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, want, gotReal)
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		in      string
		want    Profile
		wantErr bool
	}{
		{"development", ProfileDevelopment, false},
		{"DEV", ProfileDevelopment, false},
		{"production", ProfileProduction, false},
		{"", ProfileProduction, false},
		{"staging", "", true},
	}

	for _, tt := range tests {
		got, err := ParseProfile(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestLauncherFor(t *testing.T) {
	assert.Equal(t, []string{"java", "-jar"}, LauncherFor("/opt/iris/engine.JAR", nil))
	assert.Nil(t, LauncherFor("/opt/iris/engine", nil))
	assert.Equal(t, []string{"/usr/lib/jvm/bin/java", "-Xmx512m", "-jar"},
		LauncherFor("/opt/iris/engine.jar", []string{"/usr/lib/jvm/bin/java", "-Xmx512m", "-jar"}))
}

func TestDefaultCandidates(t *testing.T) {
	c := DefaultCandidates()
	assert.NotEmpty(t, c.Development)
	assert.NotEmpty(t, c.Production)
	assert.NotEmpty(t, c.Fallbacks)
}
