// Package artwork hands eligible items to the external document-automation
// driver one at a time: write the fixed-schema handoff document, run the
// driver, verify the artifact appeared, record the outcome.
package artwork
