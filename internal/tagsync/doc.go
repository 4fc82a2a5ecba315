// Package tagsync pushes queue state back to the order source as tags.
//
// Orders whose every item finished artwork get the ready and routing
// tags; orders stuck on holds, exhausted parse retries, or artwork
// failures get the intervention tag. Each order is tagged once and
// flagged locally after the attempt, successful or not.
package tagsync
