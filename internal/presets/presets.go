package presets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"forecast-workbench/internal/client"
	"forecast-workbench/internal/forecast"
)

// ErrNameRequired is returned when saving a preset without a name.
var ErrNameRequired = errors.New("presets: name is required")

// Store is the remote key/value store that holds named configurations.
type Store interface {
	ListConfigs(ctx context.Context) ([]client.SavedConfig, error)
	GetConfig(ctx context.Context, id string) (client.SavedConfig, error)
	SaveConfig(ctx context.Context, name, description string, cfg forecast.Config) (client.SavedConfig, error)
	DeleteConfig(ctx context.Context, id string) error
}

// Preset is a named, normalized configuration.
type Preset struct {
	ID          string
	Name        string
	Description string
	Config      forecast.Config
	CreatedAt   time.Time
}

// Adapter guarantees every configuration crossing the store boundary is
// normalized in both directions.
type Adapter struct {
	store  Store
	logger zerolog.Logger
}

// NewAdapter wraps store.
func NewAdapter(store Store, logger zerolog.Logger) *Adapter {
	return &Adapter{
		store:  store,
		logger: logger.With().Str("component", "presets").Logger(),
	}
}

// List returns presets newest first.
func (a *Adapter) List(ctx context.Context) ([]Preset, error) {
	saved, err := a.store.ListConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	out := make([]Preset, 0, len(saved))
	for _, s := range saved {
		out = append(out, fromSaved(s))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Get returns one preset by id.
func (a *Adapter) Get(ctx context.Context, id string) (Preset, error) {
	s, err := a.store.GetConfig(ctx, strings.TrimSpace(id))
	if err != nil {
		return Preset{}, fmt.Errorf("get preset %s: %w", id, err)
	}
	return fromSaved(s), nil
}

// Find resolves a preset by id or, failing that, by case-insensitive name.
func (a *Adapter) Find(ctx context.Context, ref string) (Preset, error) {
	ref = strings.TrimSpace(ref)
	list, err := a.List(ctx)
	if err != nil {
		return Preset{}, err
	}
	for _, p := range list {
		if p.ID == ref {
			return p, nil
		}
	}
	for _, p := range list {
		if strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("preset %q not found", ref)
}

// Save normalizes cfg and stores it under name.
func (a *Adapter) Save(ctx context.Context, name, description string, cfg forecast.Config) (Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Preset{}, ErrNameRequired
	}
	s, err := a.store.SaveConfig(ctx, name, strings.TrimSpace(description), forecast.Normalize(cfg))
	if err != nil {
		return Preset{}, fmt.Errorf("save preset %s: %w", name, err)
	}
	a.logger.Info().Str("id", s.ID).Str("name", name).Msg("preset saved")
	return fromSaved(s), nil
}

// Delete removes a preset.
func (a *Adapter) Delete(ctx context.Context, id string) error {
	if err := a.store.DeleteConfig(ctx, strings.TrimSpace(id)); err != nil {
		return fmt.Errorf("delete preset %s: %w", id, err)
	}
	a.logger.Info().Str("id", id).Msg("preset deleted")
	return nil
}

func fromSaved(s client.SavedConfig) Preset {
	return Preset{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Config:      forecast.Normalize(s.Config),
		CreatedAt:   s.CreatedAt,
	}
}

var _ Store = (*client.Client)(nil)
