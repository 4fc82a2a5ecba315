// Package services provides shared error classification and context plumbing
// for the external collaborators Stencil talks to: the order source, the AI
// text service, the document-automation driver, and the tracking API.
//
// Stage code wraps collaborator failures with services.Wrap so that retry
// policy can be decided from the sentinel marker rather than string matching.
// Context helpers carry item, order, stage, and correlation identifiers so
// logs emitted deep inside clients stay attributable.
package services
