package metrics

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Polarity tells consumers whether an increase of the metric is good news.
// It is metadata only and never changes how a trend is computed.
type Polarity string

const (
	HigherIsBetter Polarity = "higher_is_better"
	LowerIsBetter  Polarity = "lower_is_better"
	Neutral        Polarity = "neutral"
)

func validPolarity(p Polarity) bool {
	switch p {
	case HigherIsBetter, LowerIsBetter, Neutral:
		return true
	}
	return false
}

// KPI and operational metric names.
const (
	MetricTotalRevenue         = "totalRevenue"
	MetricCarbonSaved          = "carbonSaved"
	MetricAssetsProcessed      = "assetsProcessed"
	MetricSuccessRate          = "successRate"
	MetricAvgProcessingTime    = "avgProcessingTime"
	MetricCustomerSatisfaction = "customerSatisfaction"
	MetricCircularValue        = "circularValue"
	MetricMaterialRecovered    = "materialRecovered"
	MetricRecoveryRate         = "recoveryRate"
	MetricLaborCostPerUnit     = "laborCostPerUnit"
	MetricPartsCostRatio       = "partsCostRatio"
	MetricQualityScore         = "qualityScore"
	MetricCarbonSavedYoY       = "carbonSavedYoY"
)

// MetricDefinition describes one named metric.
type MetricDefinition struct {
	Name        string   `json:"name"`
	Unit        string   `json:"unit"`
	Polarity    Polarity `json:"polarity"`
	Description string   `json:"description,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"` // SHA-256 of the YAML file; empty for built-ins
}

// DefaultMetrics are the built-in definitions. Catalog files override them by name.
var DefaultMetrics = []MetricDefinition{
	{Name: MetricTotalRevenue, Unit: "USD", Polarity: HigherIsBetter, Description: "Resale and recycling revenue"},
	{Name: MetricCarbonSaved, Unit: "kg", Polarity: HigherIsBetter, Description: "CO2 emissions avoided"},
	{Name: MetricAssetsProcessed, Unit: "assets", Polarity: HigherIsBetter, Description: "Assets with a recorded disposition"},
	{Name: MetricSuccessRate, Unit: "%", Polarity: HigherIsBetter, Description: "Share of assets refurbished for resale"},
	{Name: MetricAvgProcessingTime, Unit: "days", Polarity: LowerIsBetter, Description: "Intake to disposition, refurbished and recycled only"},
	{Name: MetricCustomerSatisfaction, Unit: "score", Polarity: HigherIsBetter, Description: "Mean satisfaction score (1-5)"},
	{Name: MetricCircularValue, Unit: "USD", Polarity: HigherIsBetter, Description: "Refurbished revenue plus recovered material value"},
	{Name: MetricMaterialRecovered, Unit: "kg", Polarity: HigherIsBetter, Description: "Material recovered by weight"},
	{Name: MetricRecoveryRate, Unit: "%", Polarity: HigherIsBetter, Description: "Share of assets refurbished or recycled"},
	{Name: MetricLaborCostPerUnit, Unit: "USD", Polarity: LowerIsBetter, Description: "Labor cost per processed asset"},
	{Name: MetricPartsCostRatio, Unit: "%", Polarity: LowerIsBetter, Description: "Parts cost as a share of revenue"},
	{Name: MetricQualityScore, Unit: "score", Polarity: HigherIsBetter, Description: "Satisfaction scaled to 10"},
	{Name: MetricCarbonSavedYoY, Unit: "kg", Polarity: HigherIsBetter, Description: "CO2 avoided over the latest 12 months, against the 12 before"},
}

// Catalog resolves metric metadata by name.
type Catalog interface {
	// Get returns the definition for name, or false when the metric is unknown.
	Get(name string) (MetricDefinition, bool)

	// List returns every definition sorted by name.
	List() []MetricDefinition
}

// StaticCatalog is an in-memory catalog.
type StaticCatalog struct {
	metrics map[string]MetricDefinition
}

// NewStaticCatalog returns a catalog holding DefaultMetrics plus the given
// definitions, later entries replacing earlier ones with the same name.
func NewStaticCatalog(defs ...MetricDefinition) *StaticCatalog {
	c := &StaticCatalog{metrics: make(map[string]MetricDefinition, len(DefaultMetrics)+len(defs))}
	for _, d := range DefaultMetrics {
		c.metrics[d.Name] = d
	}
	for _, d := range defs {
		c.metrics[d.Name] = d
	}
	return c
}

func (c *StaticCatalog) Get(name string) (MetricDefinition, bool) {
	d, ok := c.metrics[name]
	return d, ok
}

func (c *StaticCatalog) List() []MetricDefinition {
	out := make([]MetricDefinition, 0, len(c.metrics))
	for _, d := range c.metrics {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// rawMetric is the on-disk YAML shape.
type rawMetric struct {
	Name        string `yaml:"name"`
	Unit        string `yaml:"unit"`
	Polarity    string `yaml:"polarity"`
	Description string `yaml:"description"`
}

// LoadCatalog reads metric definitions from *.yaml files in dir, one metric per
// file, layered over DefaultMetrics. A missing directory yields the defaults.
// Definitions are loaded once; there is no hot reload.
func LoadCatalog(dir string) (*StaticCatalog, error) {
	if dir == "" {
		return NewStaticCatalog(), nil
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return NewStaticCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("metric catalog dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("metric catalog path %q is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading metric catalog dir: %w", err)
	}

	seen := make(map[string]string)
	var defs []MetricDefinition
	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading metric file %s: %w", path, err)
		}

		var raw rawMetric
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing metric file %s: %w", path, err)
		}
		if raw.Name == "" {
			continue // comment-only file
		}

		polarity := Polarity(raw.Polarity)
		if polarity == "" {
			polarity = Neutral
		}
		if !validPolarity(polarity) {
			return nil, fmt.Errorf("metric %q: unsupported polarity %q", raw.Name, raw.Polarity)
		}
		if prev, exists := seen[raw.Name]; exists {
			return nil, fmt.Errorf("metric %q: defined in both %s and %s", raw.Name, prev, e.Name())
		}
		seen[raw.Name] = e.Name()

		defs = append(defs, MetricDefinition{
			Name:        raw.Name,
			Unit:        raw.Unit,
			Polarity:    polarity,
			Description: raw.Description,
			Fingerprint: fmt.Sprintf("%x", sha256.Sum256(data)),
		})
	}
	return NewStaticCatalog(defs...), nil
}

// PolarityOf returns the polarity of name, or Neutral when the metric is unknown.
func PolarityOf(c Catalog, name string) Polarity {
	if c == nil {
		return Neutral
	}
	if d, ok := c.Get(name); ok {
		return d.Polarity
	}
	return Neutral
}
