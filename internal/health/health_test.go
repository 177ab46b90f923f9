package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mailtagger/internal/config"
)

type checkedBackend struct {
	err    error
	called bool
}

func (b *checkedBackend) Send(ctx context.Context, system, user string, wantJSON bool) (string, error) {
	return "", nil
}

func (b *checkedBackend) CheckHealth(ctx context.Context) error {
	b.called = true
	return b.err
}

// plainBackend has no health probe at all
type plainBackend struct{}

func (b *plainBackend) Send(ctx context.Context, system, user string, wantJSON bool) (string, error) {
	return "", nil
}

func gateConfig(t *testing.T, credentialsPath, tokenPath string) *config.Config {
	t.Helper()
	v := config.NewEmptyViper()
	v.Set("gmail.credentials_path", credentialsPath)
	v.Set("gmail.token_path", tokenPath)
	return config.NewFromViper(v)
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	return path
}

func TestCheckPassesWithHealthyBackendAndCredentials(t *testing.T) {
	dir := t.TempDir()
	creds := writeFile(t, dir, "credentials.json")
	token := writeFile(t, dir, "token.json")

	backend := &checkedBackend{}
	gate := NewGate(backend, gateConfig(t, creds, token), zap.NewNop())

	assert.NoError(t, gate.Check(context.Background()))
	assert.True(t, backend.called)
}

func TestCheckFailsOnUnhealthyBackend(t *testing.T) {
	dir := t.TempDir()
	creds := writeFile(t, dir, "credentials.json")

	backend := &checkedBackend{err: errors.New("model not found")}
	gate := NewGate(backend, gateConfig(t, creds, filepath.Join(dir, "token.json")), zap.NewNop())

	err := gate.Check(context.Background())
	assert.ErrorContains(t, err, "model not found")
}

func TestCheckFailsOnMissingCredentials(t *testing.T) {
	dir := t.TempDir()

	gate := NewGate(&checkedBackend{},
		gateConfig(t, filepath.Join(dir, "missing.json"), filepath.Join(dir, "token.json")),
		zap.NewNop())

	err := gate.Check(context.Background())
	assert.ErrorContains(t, err, "credentials")
}

func TestCheckMissingTokenIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	creds := writeFile(t, dir, "credentials.json")

	gate := NewGate(&checkedBackend{},
		gateConfig(t, creds, filepath.Join(dir, "token.json")), zap.NewNop())

	assert.NoError(t, gate.Check(context.Background()))
}

func TestCheckSkipsBackendsWithoutProbe(t *testing.T) {
	dir := t.TempDir()
	creds := writeFile(t, dir, "credentials.json")
	token := writeFile(t, dir, "token.json")

	gate := NewGate(&plainBackend{}, gateConfig(t, creds, token), zap.NewNop())
	assert.NoError(t, gate.Check(context.Background()))
}
