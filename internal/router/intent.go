// Package router answers free-text operator queries. A small keyword state
// machine picks an intent, and each intent is served by a ticket lookup or
// the document-QA capability.
package router

import (
	"net/url"
	"path"
	"strings"
	"unicode"
)

// Intent is the state the classifier moves to from NoIntent.
type Intent string

const (
	NoIntent      Intent = "no_intent"
	TicketLookup  Intent = "ticket_lookup"
	DocumentQuery Intent = "document_query"
	Help          Intent = "help"
	Unknown       Intent = "unknown"
)

// MinTicketIDLength is the shortest token accepted as a ticket id.
// Identifiers are opaque random strings, so anything shorter is a word.
const MinTicketIDLength = 11

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

const tokenPunctuation = ".,;:!?\"'()[]{}<>"

// DetectIntent moves from NoIntent on keywords, checked in order: "ticket",
// then "image" or "document", then "help". Blank input stays in NoIntent.
func DetectIntent(query string) Intent {
	q := strings.ToLower(query)
	switch {
	case strings.TrimSpace(q) == "":
		return NoIntent
	case strings.Contains(q, "ticket"):
		return TicketLookup
	case strings.Contains(q, "image"), strings.Contains(q, "document"):
		return DocumentQuery
	case strings.Contains(q, "help"):
		return Help
	default:
		return Unknown
	}
}

// ExtractTicketID returns the first token of at least MinTicketIDLength
// characters that is not a plain word, lowercased.
func ExtractTicketID(query string) (string, bool) {
	for _, token := range strings.Fields(query) {
		token = strings.Trim(token, tokenPunctuation)
		if len(token) < MinTicketIDLength || isWord(token) {
			continue
		}
		if strings.Contains(token, "://") {
			continue
		}
		return strings.ToLower(token), true
	}
	return "", false
}

// ExtractImageURL returns the first http(s) URL whose path ends in a PNG or
// JPEG extension.
func ExtractImageURL(query string) (string, bool) {
	for _, token := range strings.Fields(query) {
		token = strings.TrimRight(strings.TrimLeft(token, "(<\"'"), tokenPunctuation)
		if isImageURL(token) {
			return token, true
		}
	}
	return "", false
}

// QuestionFor picks the question to ask about an image: the query without
// the URL when that reads as a question, otherwise fallback.
func QuestionFor(query, imageURL, fallback string) string {
	q := strings.TrimSpace(strings.Replace(query, imageURL, "", 1))
	q = strings.Join(strings.Fields(q), " ")
	if strings.HasSuffix(q, "?") {
		return q
	}
	return fallback
}

func isImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

func isWord(token string) bool {
	for _, r := range token {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
