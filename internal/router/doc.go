// Package router counts validated feed events and hands them to the event
// journal through a growable buffer.
package router
