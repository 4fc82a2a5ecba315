// Package nesting batches artwork-ready items into production sheets.
//
// Eligible items are grouped into color buckets by their order's derived
// color, each bucket is handed to a Packer, and every materialized sheet
// is recorded by flagging its member items nested as a group. Items the
// packer rejects stay unnested and return on the next pass.
package nesting
