package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"sideai/internal/storage"
)

// Theme selects the UI color scheme.
type Theme string

const (
	ThemeAuto  Theme = "auto"
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Storage keys. These match the persisted record one to one; Save
// writes raw string values under these keys and Load interprets them.
const (
	KeyAPIKey             = "apiKey"
	KeyAPIURL             = "apiUrl"
	KeyModel              = "model"
	KeyModels             = "models"
	KeyActiveModel        = "activeModel"
	KeyTheme              = "theme"
	KeyTemperature        = "temperature"
	KeyMaxTokens          = "maxTokens"
	KeyTopP               = "topP"
	KeyPresencePenalty    = "presencePenalty"
	KeyFrequencyPenalty   = "frequencyPenalty"
	KeyStream             = "stream"
	KeyRenderUserMarkdown = "renderUserMarkdown"
)

var allKeys = []string{
	KeyAPIKey, KeyAPIURL, KeyModel, KeyModels, KeyActiveModel, KeyTheme,
	KeyTemperature, KeyMaxTokens, KeyTopP, KeyPresencePenalty,
	KeyFrequencyPenalty, KeyStream, KeyRenderUserMarkdown,
}

// Settings is the resolved configuration used for one session. Optional
// generation parameters are nil when unset so the request builder can
// omit them entirely.
type Settings struct {
	APIKey      string
	APIURL      string // normalized to end in /chat/completions
	Model       string // legacy single-model field, kept as fallback
	ModelsRaw   string // comma-separated field as entered
	Models      []string
	ActiveModel string
	Theme       Theme

	Temperature      *float64
	MaxTokens        *int
	TopP             *float64
	PresencePenalty  *float64
	FrequencyPenalty *float64

	Stream             bool
	RenderUserMarkdown bool
}

// Ready reports whether the settings are complete enough to send a
// message, naming the first missing piece otherwise.
func (s *Settings) Ready() (bool, string) {
	if s.APIKey == "" {
		return false, "API key"
	}
	if s.APIURL == "" {
		return false, "API URL"
	}
	if s.ActiveModel == "" {
		return false, "model"
	}
	return true, ""
}

// Store loads and saves settings through a key/value backend.
type Store struct {
	kv storage.Store
}

func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv}
}

// Load reads all settings keys, applies defaults, normalizes the API
// URL and resolves the model list and active model. The returned
// ActiveModel is always either empty or a member of Models.
func (s *Store) Load() (*Settings, error) {
	data, err := s.kv.Get(allKeys...)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	settings := &Settings{
		APIKey:             strings.TrimSpace(data[KeyAPIKey]),
		APIURL:             NormalizeAPIURL(data[KeyAPIURL]),
		Model:              strings.TrimSpace(data[KeyModel]),
		ModelsRaw:          data[KeyModels],
		Theme:              parseTheme(data[KeyTheme]),
		Temperature:        parseNumber(data[KeyTemperature]),
		MaxTokens:          parseTokenCount(data[KeyMaxTokens]),
		TopP:               parseNumber(data[KeyTopP]),
		PresencePenalty:    parseNumber(data[KeyPresencePenalty]),
		FrequencyPenalty:   parseNumber(data[KeyFrequencyPenalty]),
		Stream:             data[KeyStream] != "false",
		RenderUserMarkdown: data[KeyRenderUserMarkdown] == "true",
	}

	settings.Models = ParseModels(settings.ModelsRaw, settings.Model)

	// The active model must be a member of the resolved list. A list
	// with a single entry selects it implicitly; anything else leaves
	// the choice to the user.
	stored := strings.TrimSpace(data[KeyActiveModel])
	switch {
	case stored != "" && contains(settings.Models, stored):
		settings.ActiveModel = stored
	case len(settings.Models) == 1:
		settings.ActiveModel = settings.Models[0]
	}

	return settings, nil
}

// Save merges the given raw values into the persisted record. Callers
// pass only the keys they changed; everything else is left untouched.
func (s *Store) Save(values map[string]string) error {
	if err := s.kv.Set(values); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// SetActiveModel persists the model selection.
func (s *Store) SetActiveModel(model string) error {
	return s.Save(map[string]string{KeyActiveModel: model})
}

// SetTheme persists the theme selection.
func (s *Store) SetTheme(theme Theme) error {
	return s.Save(map[string]string{KeyTheme: string(theme)})
}

// NormalizeAPIURL resolves a user-entered endpoint to the full chat
// completions URL. A URL that already contains /chat/completions is
// left alone.
func NormalizeAPIURL(inputURL string) string {
	raw := strings.TrimSpace(inputURL)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "/chat/completions") {
		return raw
	}
	if strings.HasSuffix(raw, "/v1") {
		return raw + "/chat/completions"
	}
	if strings.HasSuffix(raw, "/") {
		return raw + "v1/chat/completions"
	}
	return raw + "/v1/chat/completions"
}

// ParseModels splits the comma-separated models field into a list,
// falling back to the legacy single-model field when empty.
func ParseModels(models, fallback string) []string {
	var list []string
	for _, item := range strings.Split(models, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			list = append(list, item)
		}
	}
	if len(list) > 0 {
		return list
	}
	if fallback != "" {
		return []string{fallback}
	}
	return nil
}

// NextTheme cycles auto -> light -> dark -> auto.
func NextTheme(current Theme) Theme {
	switch current {
	case ThemeAuto:
		return ThemeLight
	case ThemeLight:
		return ThemeDark
	default:
		return ThemeAuto
	}
}

func parseTheme(value string) Theme {
	switch Theme(value) {
	case ThemeLight:
		return ThemeLight
	case ThemeDark:
		return ThemeDark
	default:
		return ThemeAuto
	}
}

// parseNumber returns nil for empty or non-numeric input so that unset
// parameters stay unset instead of collapsing to zero.
func parseNumber(value string) *float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsInf(parsed, 0) || math.IsNaN(parsed) {
		return nil
	}
	return &parsed
}

func parseTokenCount(value string) *int {
	parsed := parseNumber(value)
	if parsed == nil {
		return nil
	}
	tokens := int(*parsed)
	return &tokens
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
