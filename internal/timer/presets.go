package timer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Presets are remembered custom durations in minutes. They live beside the
// countdown state but are not part of the state machine.

func (e *Engine) Presets(ctx context.Context) ([]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadPresets(ctx)
}

func (e *Engine) AddPreset(ctx context.Context, minutes int) ([]int, error) {
	if err := validMinutes(minutes); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	presets, err := e.loadPresets(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range presets {
		if p == minutes {
			return presets, nil
		}
	}
	presets = append(presets, minutes)
	sort.Ints(presets)
	return presets, e.savePresets(ctx, presets)
}

func (e *Engine) RemovePreset(ctx context.Context, minutes int) ([]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	presets, err := e.loadPresets(ctx)
	if err != nil {
		return nil, err
	}
	kept := presets[:0]
	for _, p := range presets {
		if p != minutes {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(presets) {
		return kept, nil
	}
	return kept, e.savePresets(ctx, kept)
}

func (e *Engine) loadPresets(ctx context.Context) ([]int, error) {
	raw, ok, err := e.store.Get(ctx, KeyCustomDurations)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}
	presets := []int{}
	if !ok || raw == "" {
		return presets, nil
	}
	if err := json.Unmarshal([]byte(raw), &presets); err != nil {
		return nil, fmt.Errorf("failed to decode presets: %w", err)
	}
	sort.Ints(presets)
	return presets, nil
}

func (e *Engine) savePresets(ctx context.Context, presets []int) error {
	data, err := json.Marshal(presets)
	if err != nil {
		return fmt.Errorf("failed to encode presets: %w", err)
	}
	if err := e.store.Put(ctx, KeyCustomDurations, string(data)); err != nil {
		return fmt.Errorf("failed to save presets: %w", err)
	}
	return nil
}
