// internal/store/event_log.go
// Mongo-backed append-only MatchEvent log. A schemaless document
// collection fits the plugin's opaque per-kind JSON payloads, keyed by
// matchSlug plus a monotonically increasing id drawn from a counter
// document (Mongo has no native serial column).

package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"matchzy-auto-tournament/internal/apperrors"
	"matchzy-auto-tournament/internal/models"
)

const (
	eventsCollection  = "match_events"
	countersCollection = "counters"
	eventIDCounter    = "match_event_id"
)

// EventLog is the append-only store for MatchEvent.
type EventLog struct {
	events   *mongo.Collection
	counters *mongo.Collection
}

func NewEventLog(db *mongo.Database) *EventLog {
	return &EventLog{
		events:   db.Collection(eventsCollection),
		counters: db.Collection(countersCollection),
	}
}

// nextID atomically increments and returns the shared event-id counter.
func (l *EventLog) nextID(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	err := l.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": eventIDCounter},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

// Append inserts event with a freshly minted monotonic id and returns
// it. The event log never rejects an insert for an unknown matchSlug;
// orphaned events are stored and surfaced, not dropped.
func (l *EventLog) Append(ctx context.Context, event *models.MatchEvent) (int64, error) {
	id, err := l.nextID(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.Upstream, "allocate event id", err)
	}
	event.ID = id
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}

	if _, err := l.events.InsertOne(ctx, event); err != nil {
		return 0, apperrors.Wrap(apperrors.Upstream, "append event", err)
	}
	return id, nil
}

// List returns events for matchSlug with id > afterID, in append order.
func (l *EventLog) List(ctx context.Context, matchSlug string, afterID int64, limit int) ([]*models.MatchEvent, error) {
	filter := bson.M{"matchSlug": matchSlug}
	if afterID > 0 {
		filter["_id"] = bson.M{"$gt": afterID}
	}
	opts := options.Find().SetSort(bson.M{"_id": 1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := l.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Upstream, "list events", err)
	}
	defer cur.Close(ctx)

	out := make([]*models.MatchEvent, 0)
	for cur.Next(ctx) {
		var e models.MatchEvent
		if err := cur.Decode(&e); err != nil {
			return nil, apperrors.Wrap(apperrors.Internal, "decode event", err)
		}
		out = append(out, &e)
	}
	return out, cur.Err()
}

// Clear empties the event log. Used by tournament reset/wipe.
func (l *EventLog) Clear(ctx context.Context) error {
	if _, err := l.events.DeleteMany(ctx, bson.M{}); err != nil {
		return apperrors.Wrap(apperrors.Upstream, "clear event log", err)
	}
	if _, err := l.counters.DeleteOne(ctx, bson.M{"_id": eventIDCounter}); err != nil && err != mongo.ErrNoDocuments {
		return apperrors.Wrap(apperrors.Upstream, "reset event counter", err)
	}
	return nil
}
