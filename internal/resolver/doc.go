// Package resolver extracts structured personalization from raw order
// text, deterministically for operator-marked input and via the AI service
// for free text, with a bounded retry budget per item.
package resolver
