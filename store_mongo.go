package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoConnectTimeout = 15 * time.Second
	// A seed claim older than this while the collection is still empty is treated as abandoned.
	seedClaimTimeout = time.Minute
)

type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	log    *slog.Logger
}

func openMongoStore(ctx context.Context, uri, dbName string, logger *slog.Logger) (*mongoStore, error) {
	start := time.Now()
	dctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(dctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(dctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &mongoStore{client: client, db: client.Database(dbName), log: logger}
	if err := s.createIndexes(dctx); err != nil {
		logger.Warn("mongo index creation warnings", "err", err)
	}

	logger.Info("mongo connected", "uri", redactURI(uri), "db", dbName, "duration_ms", time.Since(start).Milliseconds())
	return s, nil
}

func (s *mongoStore) createIndexes(ctx context.Context) error {
	var errs []string
	if _, err := s.db.Collection(locationsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "Province", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		errs = append(errs, "Locations.Province: "+err.Error())
	}
	if _, err := s.db.Collection(violationTypesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "Name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		errs = append(errs, "ViolationTypes.Name: "+err.Error())
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (s *mongoStore) Name() string { return storeDriverMongo }

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *mongoStore) ListLocations(ctx context.Context) ([]Location, error) {
	rows := []Location{}
	if err := s.findAll(ctx, locationsCollection, bson.D{}, &rows); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return rows, nil
}

func (s *mongoStore) ListViolationTypes(ctx context.Context) ([]ViolationType, error) {
	rows := []ViolationType{}
	if err := s.findAll(ctx, violationTypesCollection, bson.D{}, &rows); err != nil {
		return nil, fmt.Errorf("list violation types: %w", err)
	}
	return rows, nil
}

func (s *mongoStore) findAll(ctx context.Context, collection string, filter any, out any) error {
	cur, err := s.db.Collection(collection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func (s *mongoStore) SeedLocations(ctx context.Context, rows []Location) (int, error) {
	docs := make([]any, 0, len(rows))
	for _, row := range rows {
		row.ID = ""
		docs = append(docs, row)
	}
	return s.seedCollection(ctx, locationsCollection, docs)
}

func (s *mongoStore) SeedViolationTypes(ctx context.Context, rows []ViolationType) (int, error) {
	docs := make([]any, 0, len(rows))
	for _, row := range rows {
		row.ID = ""
		docs = append(docs, row)
	}
	return s.seedCollection(ctx, violationTypesCollection, docs)
}

// seedCollection claims a per-collection marker document before inserting.
// The unique _id of the marker makes the claim atomic across processes.
func (s *mongoStore) seedCollection(ctx context.Context, collection string, docs []any) (int, error) {
	markers := s.db.Collection(seedMarkersCollection)
	target := s.db.Collection(collection)

	for attempt := 0; attempt < 2; attempt++ {
		_, err := markers.InsertOne(ctx, bson.M{"_id": collection, "claimedAt": time.Now().UTC()})
		if err == nil {
			break
		}
		if !mongo.IsDuplicateKeyError(err) {
			return 0, fmt.Errorf("claim seed marker %s: %w", collection, err)
		}
		count, err := target.CountDocuments(ctx, bson.D{})
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", collection, err)
		}
		if count > 0 || attempt > 0 {
			return 0, errAlreadySeeded
		}
		stale := time.Now().UTC().Add(-seedClaimTimeout)
		res, err := markers.DeleteOne(ctx, bson.M{"_id": collection, "claimedAt": bson.M{"$lt": stale}})
		if err != nil {
			return 0, fmt.Errorf("release stale seed marker %s: %w", collection, err)
		}
		if res.DeletedCount == 0 {
			return 0, errAlreadySeeded
		}
		s.log.Warn("released abandoned seed claim", "collection", collection)
	}

	release := func() {
		if _, err := markers.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": collection}); err != nil {
			s.log.Error("failed to release seed marker", "collection", collection, "err", err)
		}
	}

	count, err := target.CountDocuments(ctx, bson.D{})
	if err != nil {
		release()
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	if count > 0 {
		return 0, errAlreadySeeded
	}

	res, err := target.InsertMany(ctx, docs)
	if err != nil {
		release()
		return 0, fmt.Errorf("seed %s: %w", collection, err)
	}
	return len(res.InsertedIDs), nil
}

func prepareReportDocument(report *ViolationReport) {
	report.ID = ""
	if report.EvidenceImagePaths == nil {
		report.EvidenceImagePaths = []string{}
	}
	if report.StatusHistory == nil {
		report.StatusHistory = []StatusChange{}
	}
}

func (s *mongoStore) InsertReport(ctx context.Context, report *ViolationReport) error {
	prepareReportDocument(report)
	res, err := s.db.Collection(reportsCollection).InsertOne(ctx, report)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		report.ID = oid.Hex()
	}
	return nil
}

func (s *mongoStore) InsertReports(ctx context.Context, reports []ViolationReport) (int, error) {
	if len(reports) == 0 {
		return 0, nil
	}
	docs := make([]any, 0, len(reports))
	for i := range reports {
		prepareReportDocument(&reports[i])
		docs = append(docs, reports[i])
	}
	res, err := s.db.Collection(reportsCollection).InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("insert reports: %w", err)
	}
	for i, id := range res.InsertedIDs {
		if oid, ok := id.(primitive.ObjectID); ok && i < len(reports) {
			reports[i].ID = oid.Hex()
		}
	}
	return len(res.InsertedIDs), nil
}

func (s *mongoStore) GetReport(ctx context.Context, id string) (*ViolationReport, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errReportNotFound
	}
	var report ViolationReport
	err = s.db.Collection(reportsCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

func (s *mongoStore) ListReports(ctx context.Context, filters map[string]any) ([]ViolationReport, error) {
	cur, err := s.db.Collection(reportsCollection).Find(ctx, buildMongoReportFilter(filters),
		options.Find().SetSort(bson.D{{Key: "ReportedDate", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	reports := []ViolationReport{}
	if err := cur.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	return reports, nil
}

func (s *mongoStore) UpdateReportStatus(ctx context.Context, id string, change StatusChange) (*ViolationReport, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errReportNotFound
	}
	col := s.db.Collection(reportsCollection)

	var current any = change.From
	if change.From == reportStatusPending {
		// documents written before statuses existed have no Status field
		current = bson.M{"$in": bson.A{reportStatusPending, "", nil}}
	}
	filter := bson.M{"_id": oid, "Status": current}
	update := bson.M{
		"$set":  bson.M{"Status": change.To, "UpdatedAt": change.ChangedAt},
		"$push": bson.M{"StatusHistory": change},
	}

	var updated ViolationReport
	err = col.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		count, countErr := col.CountDocuments(ctx, bson.M{"_id": oid})
		if countErr != nil {
			return nil, fmt.Errorf("update report status: %w", countErr)
		}
		if count == 0 {
			return nil, errReportNotFound
		}
		return nil, errStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update report status: %w", err)
	}
	return &updated, nil
}

func (s *mongoStore) EvidencePaths(ctx context.Context) (map[string]struct{}, error) {
	cur, err := s.db.Collection(reportsCollection).Find(ctx,
		bson.M{"EvidenceImagePaths.0": bson.M{"$exists": true}},
		options.Find().SetProjection(bson.M{"EvidenceImagePaths": 1}))
	if err != nil {
		return nil, fmt.Errorf("list evidence paths: %w", err)
	}
	defer cur.Close(ctx)

	paths := map[string]struct{}{}
	for cur.Next(ctx) {
		var doc struct {
			Paths []string `bson:"EvidenceImagePaths"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode evidence paths: %w", err)
		}
		for _, p := range doc.Paths {
			paths[p] = struct{}{}
		}
	}
	return paths, cur.Err()
}

func buildMongoReportFilter(filters map[string]any) bson.M {
	filter := bson.M{}
	if status := filterString(filters, "status"); status != "" {
		if status == reportStatusPending {
			filter["Status"] = bson.M{"$in": bson.A{reportStatusPending, "", nil}}
		} else {
			filter["Status"] = status
		}
	}
	if priority, ok := filterInt(filters, "priority"); ok {
		filter["Priority"] = priority
	}
	if province := filterString(filters, "province"); province != "" {
		filter["Province"] = province
	}
	if district := filterString(filters, "district"); district != "" {
		filter["District"] = district
	}
	if violationType := filterString(filters, "violation_type"); violationType != "" {
		filter["ViolationType"] = violationType
	}
	dateRange := bson.M{}
	if from, ok := filterTime(filters, "from"); ok {
		dateRange["$gte"] = from
	}
	if to, ok := filterTime(filters, "to"); ok {
		dateRange["$lte"] = to
	}
	if len(dateRange) > 0 {
		filter["ReportedDate"] = dateRange
	}
	return filter
}

func redactURI(raw string) string {
	if raw == "" || !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}
