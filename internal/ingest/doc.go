// Package ingest pulls open marketplace orders into the queue and
// reconciles the shipped flag against each successful fetch.
package ingest
