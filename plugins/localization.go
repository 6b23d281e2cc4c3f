package plugins

import (
	"fmt"

	"golang.org/x/text/language"

	flutterhost "github.com/machinefabric/flutterhost-go"
	"github.com/machinefabric/flutterhost-go/codec"
)

// LocalizationPlugin tells the framework which locales the host prefers.
type LocalizationPlugin struct {
	channel *flutterhost.MethodChannel
}

// NewLocalizationPlugin builds the plugin.
func NewLocalizationPlugin() *LocalizationPlugin {
	return &LocalizationPlugin{}
}

// Name implements flutterhost.Plugin.
func (p *LocalizationPlugin) Name() string {
	return "localization"
}

// InitPlugin implements flutterhost.Plugin.
func (p *LocalizationPlugin) InitPlugin(registrar *flutterhost.Registrar) error {
	p.channel = flutterhost.NewMethodChannel(registrar.Messenger(), "flutter/localization", codec.JSONMethod)
	registrar.RegisterChannel(p.channel)
	return nil
}

// SendLocales announces the preferred locales, most preferred first.
// Tags are BCP 47; each expands to the framework's flat
// [language, country, script, variant] quad encoding.
func (p *LocalizationPlugin) SendLocales(tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	flat := make([]codec.Value, 0, len(tags)*4)
	for _, raw := range tags {
		tag, err := language.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid locale %q: %w", raw, err)
		}
		lang, script, region := tag.Raw()
		regionStr := ""
		if region.IsCountry() {
			regionStr = region.String()
		}
		scriptStr := ""
		// Only report a script the tag actually carries.
		if _, conf := tag.Script(); conf == language.Exact {
			scriptStr = script.String()
		}
		flat = append(flat,
			codec.String(lang.String()),
			codec.String(regionStr),
			codec.String(scriptStr),
			codec.String(""),
		)
	}
	return p.channel.InvokeMethod("setLocale", codec.List(flat...))
}
