package i18n

import (
	"strings"

	"github.com/go-errors/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// UTF8 is returned by DetectCharset when the locale asks for UTF-8 or does not
// say at all.
const UTF8 = "UTF-8"

var localeVariables = []string{"LC_ALL", "LC_CTYPE", "LANG"}

// DetectCharset works out the codeset of the user's locale, the way setlocale
// would: the first of LC_ALL, LC_CTYPE and LANG that is set wins, and the
// codeset is whatever follows the '.' up to any '@modifier'.
func DetectCharset(getenv func(string) string) string {
	for _, variable := range localeVariables {
		value := getenv(variable)
		if value == "" {
			continue
		}
		return charsetFromLocale(value)
	}
	return UTF8
}

func charsetFromLocale(locale string) string {
	dot := strings.IndexByte(locale, '.')
	if dot < 0 {
		return UTF8
	}
	codeset := locale[dot+1:]
	if at := strings.IndexByte(codeset, '@'); at >= 0 {
		codeset = codeset[:at]
	}
	return NormalizeCharset(codeset)
}

// NormalizeCharset maps a codeset name onto its preferred MIME name. Anything
// we cannot resolve is treated as UTF-8.
func NormalizeCharset(name string) string {
	if isUTF8(name) {
		return UTF8
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return UTF8
	}
	canonical, err := ianaindex.MIME.Name(enc)
	if err != nil {
		return UTF8
	}
	return canonical
}

// LookupEncoding returns the encoding for a charset name, or nil when the name
// means UTF-8 and no conversion is needed.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" || isUTF8(name) {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	if enc == nil {
		return nil, errors.New("unsupported charset: " + name)
	}
	return enc, nil
}

func isUTF8(name string) bool {
	normalized := strings.ReplaceAll(strings.ToLower(name), "-", "")
	return normalized == "utf8"
}
