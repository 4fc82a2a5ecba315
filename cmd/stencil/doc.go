// Command stencil is the operator CLI for the order pipeline: queue
// inspection, manual stage passes, hold management, and production job
// registration.
package main
