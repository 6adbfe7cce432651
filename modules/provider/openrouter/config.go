package openrouter

const (
	// defaultBaseURL is the OpenRouter API root.
	defaultBaseURL = "https://openrouter.ai/api/v1"

	// appReferer and appTitle are sent on every request. OpenRouter uses
	// them for app attribution.
	appReferer = "https://github.com/glossahq/glossa"
	appTitle   = "Glossa"
)

// resolveModel maps the "auto" shorthand onto OpenRouter's router model.
func resolveModel(model string) string {
	if model == "auto" {
		return "openrouter/auto"
	}
	return model
}
