package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"forecast-workbench/internal/forecast"
)

// PresetsList prints the saved configurations, newest first.
func (a *App) PresetsList(ctx context.Context) error {
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.presets.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.Out, "no presets saved")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tName\tModel\tHorizon\tCreated (UTC)\tDescription")
	for _, p := range list {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(p.ID), p.Name, p.Config.Label(), p.Config.Horizon,
			p.CreatedAt.UTC().Format(time.RFC3339), sanitizeInline(p.Description))
	}
	writer.Flush()
	return nil
}

// PresetSave stores the active configuration, adjusted by opts, under name.
func (a *App) PresetSave(ctx context.Context, name, description string, opts ConfigOptions) error {
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := forecast.Apply(s.orch.Config(), opts.Patch)
	if opts.Preset != "" {
		base, err := s.presets.Find(ctx, opts.Preset)
		if err != nil {
			return err
		}
		cfg = forecast.Apply(base.Config, opts.Patch)
	}

	saved, err := s.presets.Save(ctx, name, description, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "saved %s (%s): %s\n", saved.Name, saved.ID, saved.Config.Label())
	return nil
}

// PresetLoad makes a preset the active configuration.
func (a *App) PresetLoad(ctx context.Context, ref string) error {
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	preset, err := s.presets.Find(ctx, ref)
	if err != nil {
		return err
	}
	cfg := s.orch.SetConfig(ctx, preset.Config)
	fmt.Fprintf(a.Out, "active configuration is now %s: %s\n", preset.Name, cfg.Label())
	return nil
}

// PresetDelete removes a preset by id or name.
func (a *App) PresetDelete(ctx context.Context, ref string) error {
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	preset, err := s.presets.Find(ctx, ref)
	if err != nil {
		return err
	}
	if err := s.presets.Delete(ctx, preset.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "deleted %s (%s)\n", preset.Name, preset.ID)
	return nil
}

// ConfigShow prints the active configuration as sent to the service.
func (a *App) ConfigShow(ctx context.Context) error {
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return a.printConfig(s.orch.Config())
}

// ConfigSet merges opts into the active configuration and persists it.
func (a *App) ConfigSet(ctx context.Context, opts ConfigOptions) error {
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg, err := a.applyConfig(ctx, s, opts)
	if err != nil {
		return err
	}
	return a.printConfig(cfg)
}

// ConfigReset restores the default configuration.
func (a *App) ConfigReset(ctx context.Context) error {
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return a.printConfig(s.orch.ResetConfig(ctx))
}

func (a *App) printConfig(cfg forecast.Config) error {
	data, err := json.MarshalIndent(cfg.Wire(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	fmt.Fprintln(a.Out, strings.TrimSpace(string(data)))
	return nil
}
