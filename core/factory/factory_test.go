package factory

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runStore struct {
	Path    string
	Rotate  bool
	Timeout time.Duration
	Fields  []string
}

type runStoreConf struct {
	Path    string        `json:"path"`
	Rotate  bool          `json:"rotate"`
	Timeout time.Duration `json:"timeout"`
	Fields  []string      `json:"fields"`
}

func newStoreRegistry(t *testing.T) *Registry[*runStore] {
	t.Helper()
	reg := NewRegistry[*runStore]()
	require.NoError(t, reg.Register("jsonl", func(conf map[string]any) (*runStore, error) {
		var c runStoreConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &runStore{Path: c.Path, Rotate: c.Rotate, Timeout: c.Timeout, Fields: c.Fields}, nil
	}))
	return reg
}

func TestRegistryCreateDecodesWeakTypes(t *testing.T) {
	reg := newStoreRegistry(t)
	s, err := reg.Create(ModuleConfig{Type: "jsonl", Conf: map[string]any{
		"path":    "runs.jsonl",
		"rotate":  "true",
		"timeout": "5s",
		"fields":  "run_id,algorithm",
	}})
	require.NoError(t, err)
	assert.Equal(t, "runs.jsonl", s.Path)
	assert.True(t, s.Rotate)
	assert.Equal(t, 5*time.Second, s.Timeout)
	assert.Equal(t, []string{"run_id", "algorithm"}, s.Fields)
}

func TestRegistryCreateRejectsUnknownKeys(t *testing.T) {
	reg := newStoreRegistry(t)
	_, err := reg.Create(ModuleConfig{Type: "jsonl", Conf: map[string]any{"pth": "runs.jsonl"}})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "jsonl: "), err.Error())
}

func TestRegistryErrors(t *testing.T) {
	reg := newStoreRegistry(t)
	assert.Error(t, reg.Register("jsonl", func(map[string]any) (*runStore, error) { return nil, nil }))
	assert.Error(t, reg.Register("sqlite", nil))
	assert.Error(t, reg.Register("", func(map[string]any) (*runStore, error) { return nil, nil }))

	_, err := reg.Create(ModuleConfig{Type: "sqlite"})
	assert.True(t, errors.Is(err, ErrUnknownType))
	assert.Contains(t, err.Error(), "registered: jsonl")

	assert.Panics(t, func() { reg.MustRegister("jsonl", func(map[string]any) (*runStore, error) { return nil, nil }) })
}

func TestRegistryNames(t *testing.T) {
	reg := newStoreRegistry(t)
	reg.MustRegister("sqlite", func(map[string]any) (*runStore, error) { return &runStore{}, nil })
	assert.Equal(t, []string{"jsonl", "sqlite"}, reg.Names())
}
