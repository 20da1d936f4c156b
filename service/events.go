package service

import (
	"context"

	"campuswatch/core"
)

// Publisher delivers realtime events derived from completed writes. Every
// publish happens strictly after the durable write succeeds; a failed
// write is never announced, and a failed publish is logged but never fails
// the operation that produced it.
//
// Defined here (consumer package) following Interface Segregation Principle.
type Publisher interface {
	// PublishMessage announces a persisted chat message to the room channel.
	PublishMessage(ctx context.Context, msg core.Message)
	// PublishNotification announces a persisted notification to its
	// recipient's channel.
	PublishNotification(ctx context.Context, n core.Notification)
	// PublishReport announces a newly submitted report to the admin channel.
	PublishReport(ctx context.Context, report core.Report)
}

// NoopPublisher discards all events. Used when realtime delivery is
// disabled and as the default in tests.
type NoopPublisher struct{}

func (NoopPublisher) PublishMessage(ctx context.Context, msg core.Message)         {}
func (NoopPublisher) PublishNotification(ctx context.Context, n core.Notification) {}
func (NoopPublisher) PublishReport(ctx context.Context, report core.Report)        {}
