// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package metrics

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/warden-dev/warden/internal/config"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// Default rates in USD per million tokens, used for models with no entry.
const (
	DefaultInputPerMillion  = 0.075
	DefaultOutputPerMillion = 0.30
)

// Price is a per-million-token rate pair.
type Price struct {
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
}

// Cost returns the USD cost of the given token counts at this price.
func (p Price) Cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)*p.InputPerMillion/1e6 +
		float64(completionTokens)*p.OutputPerMillion/1e6
}

// pricingFile is the layout of pricing.file.
type pricingFile struct {
	Default *config.ModelPrice  `yaml:"default"`
	Models  []config.ModelPrice `yaml:"models"`
}

// PriceTable maps model ids to rates. Lookups try the full id first
// ("openai/gpt-4o-mini"), then the id without its provider prefix.
type PriceTable struct {
	fallback Price
	models   map[string]Price
}

// NewPriceTable builds a table from the config section. Entries in
// cfg.File, when set, override the inline entries for the same model.
func NewPriceTable(cfg config.PricingConfig) (*PriceTable, error) {
	t := &PriceTable{
		fallback: Price{InputPerMillion: DefaultInputPerMillion, OutputPerMillion: DefaultOutputPerMillion},
		models:   make(map[string]Price, len(cfg.Models)),
	}
	if cfg.Default.InputPerMillion > 0 || cfg.Default.OutputPerMillion > 0 {
		t.fallback = priceOf(cfg.Default)
	}
	if err := t.add(cfg.Models); err != nil {
		return nil, err
	}

	if cfg.File == "" {
		return t, nil
	}
	data, err := os.ReadFile(cfg.File)
	if err != nil {
		return nil, wardenerr.Wrap(err, wardenerr.CodeConfigLoadReadFailure, "reading pricing file",
			wardenerr.Field("path", cfg.File))
	}
	var f pricingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, wardenerr.Wrap(err, wardenerr.CodeConfigParseInvalidFormat, "parsing pricing file",
			wardenerr.Field("path", cfg.File))
	}
	if f.Default != nil {
		t.fallback = priceOf(*f.Default)
	}
	if err := t.add(f.Models); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *PriceTable) add(entries []config.ModelPrice) error {
	for _, e := range entries {
		model := strings.TrimSpace(e.Model)
		if model == "" {
			return wardenerr.New(wardenerr.CodeConfigValidateInvalidValue, "pricing entry without a model")
		}
		if e.InputPerMillion < 0 || e.OutputPerMillion < 0 {
			return wardenerr.Errorf(wardenerr.CodeConfigValidateInvalidValue,
				"pricing for %s must not be negative", model)
		}
		t.models[model] = priceOf(e)
	}
	return nil
}

func priceOf(e config.ModelPrice) Price {
	return Price{InputPerMillion: e.InputPerMillion, OutputPerMillion: e.OutputPerMillion}
}

// Lookup returns the rate for model, or the default rate.
func (t *PriceTable) Lookup(model string) Price {
	if p, ok := t.models[model]; ok {
		return p
	}
	if _, base, ok := strings.Cut(model, "/"); ok {
		if p, ok := t.models[base]; ok {
			return p
		}
	}
	return t.fallback
}

// Cost prices one completion for model.
func (t *PriceTable) Cost(model string, promptTokens, completionTokens int) float64 {
	return t.Lookup(model).Cost(promptTokens, completionTokens)
}
