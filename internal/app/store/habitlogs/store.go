// internal/app/store/habitlogs/store.go
package habitlogs

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"time"

	"github.com/dalemusser/stratahabit/internal/app/store/storeutil"
	"github.com/dalemusser/stratahabit/internal/app/tracking"
	"github.com/dalemusser/stratahabit/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection for habit completion logs.
const CollectionName = "habit_logs"

// Store manages habit log documents: the durable side of the completion
// engine. At most one document exists per (user_id, habit_id, day); the
// unique index enforces it and every write is an upsert on that triple.
// Store implements tracking.LogWriter and tracking.Querier.
type Store struct {
	c *mongo.Collection
}

// New creates a new habit log Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// EnsureIndexes creates necessary indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// The uniqueness invariant: one log per (user, habit, day).
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "habit_id", Value: 1},
				{Key: "day", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("idx_log_user_habit_day"),
		},
		// Range scans per habit (window loads).
		{
			Keys:    bson.D{{Key: "habit_id", Value: 1}, {Key: "day", Value: 1}},
			Options: options.Index().SetName("idx_log_habit_day"),
		},
		// Per-user range scans (dashboard bulk loads, export, insights).
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "day", Value: 1}},
			Options: options.Index().SetName("idx_log_user_day"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Upsert writes the log for (user, habit, day), creating or overwriting as
// needed. Implements tracking.LogWriter.
func (s *Store) Upsert(ctx context.Context, userID, habitID string, day tracking.Day, status string) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}
	hid, err := primitive.ObjectIDFromHex(habitID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	filter := bson.M{"user_id": uid, "habit_id": hid, "day": string(day)}
	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"user_id":    uid,
			"habit_id":   hid,
			"day":        string(day),
			"created_at": now,
		},
	}
	_, err = s.c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// Delete removes the log for (user, habit, day). Deleting a log that does
// not exist is not an error; undo is a no-op at the store level too.
// Implements tracking.LogWriter.
func (s *Store) Delete(ctx context.Context, userID, habitID string, day tracking.Day) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}
	hid, err := primitive.ObjectIDFromHex(habitID)
	if err != nil {
		return err
	}
	_, err = s.c.DeleteOne(ctx, bson.M{"user_id": uid, "habit_id": hid, "day": string(day)})
	return err
}

// SetNote attaches (or clears) the free-text note on an existing log.
// The log must already exist; notes never create a completion record.
func (s *Store) SetNote(ctx context.Context, userID, habitID string, day tracking.Day, note string) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}
	hid, err := primitive.ObjectIDFromHex(habitID)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{"note": note, "updated_at": time.Now().UTC()}}
	if note == "" {
		update = bson.M{
			"$unset": bson.M{"note": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"user_id": uid, "habit_id": hid, "day": string(day)}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// QueryRange returns all logs for one habit within [from, to] inclusive,
// as tracking records, ordered by day ascending. Implements
// tracking.Querier.
func (s *Store) QueryRange(ctx context.Context, userID, habitID string, from, to tracking.Day) ([]tracking.LogRecord, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}
	hid, err := primitive.ObjectIDFromHex(habitID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"user_id":  uid,
		"habit_id": hid,
		"day":      bson.M{"$gte": string(from), "$lte": string(to)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "day", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []models.HabitLog
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]tracking.LogRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, tracking.LogRecord{
			Day:    tracking.Day(d.Day),
			Status: d.Status,
			Note:   d.Note,
		})
	}
	return records, nil
}

// QueryRangeAll returns all logs for a set of habits within [from, to],
// grouped by habit hex ID. One round trip serves a whole dashboard load.
func (s *Store) QueryRangeAll(ctx context.Context, userID string, habitIDs []string, from, to tracking.Day) (map[string][]tracking.LogRecord, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}
	hids := make([]primitive.ObjectID, 0, len(habitIDs))
	for _, h := range habitIDs {
		hid, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, err
		}
		hids = append(hids, hid)
	}

	grouped := make(map[string][]tracking.LogRecord, len(habitIDs))
	if len(hids) == 0 {
		return grouped, nil
	}

	filter := bson.M{
		"user_id":  uid,
		"habit_id": bson.M{"$in": hids},
		"day":      bson.M{"$gte": string(from), "$lte": string(to)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "day", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []models.HabitLog
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		key := d.HabitID.Hex()
		grouped[key] = append(grouped[key], tracking.LogRecord{
			Day:    tracking.Day(d.Day),
			Status: d.Status,
			Note:   d.Note,
		})
	}
	return grouped, nil
}

// GetByUserInRange returns the raw documents for one user across all
// habits within [from, to], ordered by day then habit. Used by CSV export.
func (s *Store) GetByUserInRange(ctx context.Context, userID primitive.ObjectID, from, to tracking.Day) ([]models.HabitLog, error) {
	filter := bson.M{
		"user_id": userID,
		"day":     bson.M{"$gte": string(from), "$lte": string(to)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "day", Value: 1}, {Key: "habit_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []models.HabitLog
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// ListByUserPaged returns one page of a user's raw log documents, newest
// day first. Page numbers are 1-based; a non-positive limit falls back to
// the storeutil default. Powers the log history endpoint.
func (s *Store) ListByUserPaged(ctx context.Context, userID primitive.ObjectID, limit, page int64) ([]models.HabitLog, error) {
	opts := storeutil.Paginate(limit, page).
		SetSort(bson.D{{Key: "day", Value: -1}, {Key: "habit_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []models.HabitLog
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// CountByUser returns the total number of log documents for a user.
func (s *Store) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID})
}

// DeleteByHabit removes every log for a habit. Called when the habit
// itself is deleted.
func (s *Store) DeleteByHabit(ctx context.Context, userID, habitID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID, "habit_id": habitID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// WeekdayDoneCounts aggregates done-day counts per ISO weekday (Monday=1)
// for one user across all habits within [from, to]. Powers the weekly
// insights endpoint.
func (s *Store) WeekdayDoneCounts(ctx context.Context, userID primitive.ObjectID, from, to tracking.Day) (map[int]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id": userID,
			"status":  tracking.StatusDone,
			"day":     bson.M{"$gte": string(from), "$lte": string(to)},
		}}},
		{{Key: "$addFields", Value: bson.M{
			"day_date": bson.M{"$dateFromString": bson.M{"dateString": "$day", "format": "%Y-%m-%d"}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$isoDayOfWeek": "$day_date"},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Weekday int `bson:"_id"`
		Count   int `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[int]int, len(rows))
	for _, r := range rows {
		counts[r.Weekday] = r.Count
	}
	return counts, nil
}
