package main

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/jesseduffield/lazygpg/pkg/i18n"
	"github.com/samber/lo"
)

func main() {
	fmt.Println(getOutstandingTranslations())
}

// adapted from https://github.com/a8m/reflect-examples#read-struct-tags
func getOutstandingTranslations() string {
	translationSets := i18n.GetTranslationSets()
	languageCodes := lo.Keys(translationSets)
	sort.Strings(languageCodes)

	output := ""
	for _, languageCode := range languageCodes {
		output += languageCode + ":\n"
		v := reflect.ValueOf(translationSets[languageCode])

		for i := 0; i < v.NumField(); i++ {
			value := v.Field(i).String()
			if value == "" {
				output += v.Type().Field(i).Name + "\n"
			}
		}
		output += "\n"
	}
	return output
}
