package translate

import "strings"

// commonPhrases is the static fallback dictionary, keyed by source language,
// lowercase phrase, then target language. It only covers a handful of
// greetings; anything else falls through to the original text.
var commonPhrases = map[string]map[string]map[string]string{
	"en": {
		"hello": {
			"es": "hola",
			"fr": "bonjour",
			"de": "hallo",
			"zh": "你好",
			"ja": "こんにちは",
			"ru": "привет",
			"ar": "مرحبا",
			"hi": "नमस्ते",
		},
		"thank you": {
			"es": "gracias",
			"fr": "merci",
			"de": "danke",
			"zh": "谢谢",
			"ja": "ありがとう",
			"ru": "спасибо",
			"ar": "شكرا",
			"hi": "धन्यवाद",
		},
		"bye": {
			"es": "adiós",
			"fr": "au revoir",
			"de": "tschüss",
			"zh": "再见",
			"ja": "さようなら",
			"ru": "пока",
			"ar": "وداعا",
			"hi": "अलविदा",
		},
	},
}

// lookupPhrase resolves text through the static dictionary.
func lookupPhrase(text, sourceLang, targetLang string) (string, bool) {
	phrases, ok := commonPhrases[sourceLang]
	if !ok {
		return "", false
	}
	targets, ok := phrases[strings.ToLower(strings.TrimSpace(text))]
	if !ok {
		return "", false
	}
	translated, ok := targets[targetLang]
	return translated, ok
}
