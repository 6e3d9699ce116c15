package common

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/dtnitsch/lunch-bot/models"
)

var (
	markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

	// Must start with http:// or https:// and have a valid host
	urlPattern = regexp.MustCompile(`^https?://[a-zA-Z0-9][-a-zA-Z0-9.]*[a-zA-Z0-9](:[0-9]+)?(/[^\s]*)?$`)
)

// SanitizeURL performs basic cleanup on URLs to handle common copy-paste issues.
// Removes whitespace, trailing punctuation, markdown artifacts.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	// [menu](https://example.com) -> https://example.com
	if matches := markdownLinkPattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	trailingChars := []string{",", ".", ")", "}", "]", "\"", "'", ">", ";"}
	for _, char := range trailingChars {
		cleaned = strings.TrimSuffix(cleaned, char)
	}

	leadingChars := []string{"(", "[", "<", "\"", "'"}
	for _, char := range leadingChars {
		cleaned = strings.TrimPrefix(cleaned, char)
	}

	return strings.TrimSpace(cleaned)
}

// ValidateURL sanitizes rawURL and returns it, or an error when the result
// is not an absolute http(s) URL.
func ValidateURL(rawURL string) (string, error) {
	cleaned := SanitizeURL(rawURL)
	if cleaned == "" {
		return "", fmt.Errorf("empty URL")
	}

	// Literal spaces must be pre-encoded as %20
	if strings.Contains(cleaned, " ") {
		return "", fmt.Errorf("URL %q contains spaces", rawURL)
	}
	if !urlPattern.MatchString(cleaned) {
		return "", fmt.Errorf("malformed URL %q", rawURL)
	}

	parsed, err := url.Parse(cleaned)
	if err != nil {
		return "", fmt.Errorf("malformed URL %q: %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL %q: unsupported scheme %q", rawURL, parsed.Scheme)
	}
	if parsed.Host == "" || strings.ContainsAny(parsed.Host, "{}[]<>\"'") {
		return "", fmt.Errorf("URL %q: invalid host", rawURL)
	}
	return cleaned, nil
}

// SanitizeAndValidateURLs sanitizes all URLs and returns (sanitized URLs, invalid URLs).
func SanitizeAndValidateURLs(urls []string) ([]string, []string) {
	sanitized := make([]string, 0, len(urls))
	var invalidURLs []string
	for _, rawURL := range urls {
		cleaned, err := ValidateURL(rawURL)
		if err != nil {
			invalidURLs = append(invalidURLs, rawURL)
			continue
		}
		sanitized = append(sanitized, cleaned)
	}
	return sanitized, invalidURLs
}

// SanitizeSources cleans every configured attempt URL and proxy in place.
// It fails on the first restaurant carrying an unusable URL.
func SanitizeSources(cfg *models.Config) error {
	for i := range cfg.Restaurants {
		r := &cfg.Restaurants[i]
		sanitized, invalid := SanitizeAndValidateURLs(r.URLs())
		if len(invalid) > 0 {
			return fmt.Errorf("restaurant %q: invalid source URLs: %s", r.Name, strings.Join(invalid, ", "))
		}
		for j := range r.Sources {
			r.Sources[j].URL = sanitized[j]
			if r.Sources[j].Proxy == "" {
				continue
			}
			proxy, err := ValidateURL(r.Sources[j].Proxy)
			if err != nil {
				return fmt.Errorf("restaurant %q: invalid proxy: %w", r.Name, err)
			}
			r.Sources[j].Proxy = proxy
		}
	}
	return nil
}
