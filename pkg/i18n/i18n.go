package i18n

import (
	"strings"

	"github.com/cloudfoundry/jibber_jabber"
	"github.com/go-errors/errors"
	"github.com/imdario/mergo"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// ISO 639-1 supported language codes.
const (
	// Polish
	PL = "pl"
	// German
	DE = "de"
	// English
	EN = "en"
)

func NewTranslationSetFromConfig(log *logrus.Entry, configLanguage string) (*TranslationSet, error) {
	if configLanguage == "auto" {
		language := detectLanguage(jibber_jabber.DetectLanguage)

		return NewTranslationSet(log, language), nil
	}

	if lo.Contains(getSupportedLanguages(), configLanguage) {
		return NewTranslationSet(log, configLanguage), nil
	}

	return NewTranslationSet(log, EN), errors.New("Language not found: " + configLanguage)
}

func NewTranslationSet(log *logrus.Entry, language string) *TranslationSet {
	log.Info("language: " + language)

	baseSet := englishSet()
	otherSet := getTranslationSet(language)

	_ = mergo.Merge(&baseSet, otherSet, mergo.WithOverride)

	return &baseSet
}

// GetTranslationSets gets all the translation sets, keyed by language code
func GetTranslationSets() map[string]TranslationSet {
	return lo.MapValues(translationSets, func(set func() TranslationSet, _ string) TranslationSet {
		return set()
	})
}

var translationSets = map[string]func() TranslationSet{
	PL: polishSet,
	DE: germanSet,
	EN: englishSet,
}

// getTranslationSet returns the translation set for a language code, or the
// english one if we have none
func getTranslationSet(languageCode string) TranslationSet {
	if set, ok := translationSets[languageCode]; ok {
		return set()
	}
	return englishSet()
}

func getSupportedLanguages() []string {
	return lo.Keys(translationSets)
}

// detectLanguage extracts user language from environment
func detectLanguage(langDetector func() (string, error)) string {
	if userLang, err := langDetector(); err == nil {
		// drop any territory, e.g. de_AT
		return strings.ToLower(strings.SplitN(userLang, "_", 2)[0])
	}

	return "C"
}
