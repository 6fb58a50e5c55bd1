package presets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecast-workbench/internal/client"
	"forecast-workbench/internal/forecast"
)

type memStore struct {
	saved   []client.SavedConfig
	lastCfg forecast.Config
	err     error
}

func (m *memStore) ListConfigs(context.Context) ([]client.SavedConfig, error) {
	return m.saved, m.err
}

func (m *memStore) GetConfig(_ context.Context, id string) (client.SavedConfig, error) {
	for _, s := range m.saved {
		if s.ID == id {
			return s, nil
		}
	}
	return client.SavedConfig{}, errors.New("not found")
}

func (m *memStore) SaveConfig(_ context.Context, name, description string, cfg forecast.Config) (client.SavedConfig, error) {
	if m.err != nil {
		return client.SavedConfig{}, m.err
	}
	m.lastCfg = cfg
	s := client.SavedConfig{ID: name + "-id", Name: name, Description: description, Config: cfg, CreatedAt: time.Now()}
	m.saved = append(m.saved, s)
	return s, nil
}

func (m *memStore) DeleteConfig(_ context.Context, id string) error {
	for i, s := range m.saved {
		if s.ID == id {
			m.saved = append(m.saved[:i], m.saved[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func TestSaveNormalizes(t *testing.T) {
	store := &memStore{}
	a := NewAdapter(store, zerolog.Nop())

	raw := forecast.Config{Module: forecast.NeuralForecast, Model: "GRU", Levels: []int{99, 1, 99}}
	p, err := a.Save(context.Background(), "  neural  ", "", raw)
	require.NoError(t, err)

	assert.Equal(t, "neural", p.Name)
	assert.Equal(t, "gru", store.lastCfg.Model)
	assert.Equal(t, []int{1, 99}, store.lastCfg.Levels)
	np, ok := store.lastCfg.Neural()
	require.True(t, ok)
	assert.Equal(t, 32, np.InputSize)

	_, err = a.Save(context.Background(), " ", "", raw)
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestListNormalizesAndSortsNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &memStore{saved: []client.SavedConfig{
		{ID: "old", Name: "Old", Config: forecast.Config{Module: forecast.MLForecast, Model: "bogus"}, CreatedAt: base},
		{ID: "new", Name: "New", Config: forecast.DefaultConfig(), CreatedAt: base.Add(time.Hour)},
	}}
	a := NewAdapter(store, zerolog.Nop())

	list, err := a.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "linear", list[1].Config.Model)
	assert.Equal(t, []int{1, 7, 14}, list[1].Config.Lags())

	p, err := a.Find(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, "Old", p.Name)

	p, err = a.Find(context.Background(), "NEW")
	require.NoError(t, err)
	assert.Equal(t, "new", p.ID)

	_, err = a.Find(context.Background(), "missing")
	assert.Error(t, err)
}

func TestDeleteAndErrors(t *testing.T) {
	store := &memStore{saved: []client.SavedConfig{{ID: "a", Config: forecast.DefaultConfig()}}}
	a := NewAdapter(store, zerolog.Nop())

	require.NoError(t, a.Delete(context.Background(), "a"))
	assert.Error(t, a.Delete(context.Background(), "a"))

	store.err = errors.New("offline")
	_, err := a.List(context.Background())
	assert.ErrorContains(t, err, "offline")
}
