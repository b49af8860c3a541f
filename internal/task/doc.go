// Package task manages background job queuing, processing, and lifecycle.
// It runs article generation batches off the request path, reports their
// progress to a ProgressSink, and recovers unfinished work after a restart.
package task
