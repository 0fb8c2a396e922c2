// Package channel keeps the mapping from channel numbers to port names
// and to the live host ports of each channel.
//
// Channels are identified by a positive [ID]. An [Identity] carries the
// port names derived from that number; two identities with the same ID are
// interchangeable. A [Resource] is the input/output port pair the host
// granted for one channel. The [Registry] holds resources while the engine
// is idle and hands them out with [Registry.TakeResources] when a process
// callback is built, so a resource is owned by exactly one side at a time.
package channel
