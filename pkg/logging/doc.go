// Package logging is a leveled, multi-transport logger.
//
// Records have one of seven severities, from error down to silly, and are
// routed to the transports a Config attaches for its environment: a colorized
// console in development, rotating error and combined files plus an
// error-only console in production, and nothing otherwise. Writes are best
// effort; a transport failure is counted by Logger.Dropped and never reaches
// the caller.
package logging
