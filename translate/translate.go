// Package translate formats user visible messages for the current locale.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer *message.Printer
	current language.Tag
)

// fallback is used when the system locale cannot be determined.
const fallback = "en-US"

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("lc3: locale: %v", err)
	}

	SetLanguage(locales...)
}

// SetLanguage selects the message language from BCP 47 tags, in order of
// preference. No tags selects en-US.
func SetLanguage(tags ...string) {
	if len(tags) == 0 {
		tags = []string{fallback}
	}

	current = message.MatchLanguage(tags...)
	printer = message.NewPrinter(current)
}

// Language returns the current message language.
func Language() language.Tag {
	return current
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
