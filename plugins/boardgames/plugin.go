// Package boardgames contributes the dashboard's dataset templates: one per
// question asked of the board-game table.
package boardgames

import (
	"boardgamestats/internal/core"
	"boardgamestats/pkg/datasetapi"
)

// PluginName is the slug prefix of every template registered here.
const PluginName = "boardgames"

// Template keys.
const (
	KeyRatingDistribution = "rating_distribution"
	KeyEraComparison      = "era_comparison"
	KeyEraScatter         = "era_scatter"
	KeyCategoryWinners    = "category_player_winners"
	KeyRatingByAge        = "rating_by_age"
	KeyPlaytimeTrend      = "playtime_trend"
)

const templateVersion = "1.0.0"

// Plugin registers the board-game dataset templates.
type Plugin struct{}

// New constructs a boardgames plugin instance.
func New() Plugin {
	return Plugin{}
}

// Name returns the plugin identifier.
func (Plugin) Name() string { return PluginName }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "1.0.0" }

// Register contributes the six dataset templates.
func (Plugin) Register(registry *core.PluginRegistry) error {
	for _, template := range Templates() {
		if err := registry.RegisterDatasetTemplate(template); err != nil {
			return err
		}
	}
	return nil
}

// Templates returns fresh copies of the template definitions in dashboard
// order.
func Templates() []datasetapi.Template {
	return []datasetapi.Template{
		ratingDistributionTemplate(),
		eraComparisonTemplate(),
		eraScatterTemplate(),
		categoryWinnersTemplate(),
		ratingByAgeTemplate(),
		playtimeTrendTemplate(),
	}
}

// Slug returns the full template slug for a key registered by this plugin.
func Slug(key string) string {
	return PluginName + "/" + key + "@" + templateVersion
}

var allFormats = []datasetapi.Format{
	datasetapi.FormatJSON,
	datasetapi.FormatCSV,
	datasetapi.FormatParquet,
	datasetapi.FormatPNG,
	datasetapi.FormatHTML,
}
