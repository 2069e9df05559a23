// Package feed reconciles a lossy trade packet stream into a complete ordered set.
//
// A run has three sequential phases:
// - stream: one channel, request [1,0], read 17-byte frames until a clean close
// - resolve: one fresh channel per missing sequence, request [2,seq], read one frame
// - sequence: stable sort by sequence and report the gaps that remain
//
// Stream failures are fatal for the run. Resend failures are isolated per
// sequence and only reduce completeness.
package feed
