// Package aiparse extracts structured personalization (names, year, hold
// hints) from free-form order text via a JSON-mode chat completion API.
package aiparse
