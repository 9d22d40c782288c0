// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/muesli/reflow/truncate"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("selection aborted")

// labelMargin leaves room for the cursor and checkbox huh draws before
// each option.
const labelMargin = 8

// Choice is one selectable entry.
type Choice struct {
	// Value is returned when the entry is picked.
	Value string
	// Label is shown instead of Value when set.
	Label string
}

// PickMany asks the user to select any number of choices, all selected
// initially. It returns the picked values in choice order.
func PickMany(title string, choices []Choice, cfg Config) ([]string, error) {
	if len(choices) == 0 {
		return nil, nil
	}
	var picked []string
	sel := huh.NewMultiSelect[string]().
		Title(title).
		Options(options(choices, cfg.Width)...).
		Value(&picked).
		Filterable(true)

	form := huh.NewForm(huh.NewGroup(sel)).
		WithTheme(huhTheme(cfg.Theme)).
		WithAccessible(cfg.Accessible)
	if cfg.Input != nil {
		form = form.WithInput(cfg.Input)
	}
	if cfg.Output != nil {
		form = form.WithOutput(cfg.Output)
	}
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, ErrAborted
		}
		return nil, fmt.Errorf("running selection prompt: %w", err)
	}
	return inChoiceOrder(choices, picked), nil
}

func options(choices []Choice, width int) []huh.Option[string] {
	opts := make([]huh.Option[string], len(choices))
	for i, c := range choices {
		opts[i] = huh.NewOption(fitLabel(c, width), c.Value).Selected(true)
	}
	return opts
}

// fitLabel returns the display label of c, cut to fit width.
func fitLabel(c Choice, width int) string {
	label := c.Label
	if label == "" {
		label = c.Value
	}
	if width <= labelMargin {
		return label
	}
	return truncate.StringWithTail(label, uint(width-labelMargin), "…")
}

func inChoiceOrder(choices []Choice, picked []string) []string {
	set := make(map[string]bool, len(picked))
	for _, p := range picked {
		set[p] = true
	}
	out := make([]string, 0, len(picked))
	for _, c := range choices {
		if set[c.Value] {
			out = append(out, c.Value)
		}
	}
	return out
}
