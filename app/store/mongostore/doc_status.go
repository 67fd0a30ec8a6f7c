package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/query"
	"github.com/quka-ai/ragstore/pkg/types"
)

type docRecord struct {
	Key            string `bson:"_id"`
	Workspace      string `bson:"workspace"`
	types.Document `bson:",inline"`
}

type DocStatusStore struct {
	coll *mongo.Collection
}

func (s *DocStatusStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: true, ServerFilter: true}
}

func (s *DocStatusStore) Upsert(ctx context.Context, ws types.Workspace, docs ...*types.Document) error {
	if len(docs) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(docs))
	for _, d := range docs {
		rec := docRecord{Key: ws.Key(types.NS_DOC_STATUS, d.ID), Workspace: ws.String(), Document: *d}
		models = append(models, mongo.NewReplaceOneModel().SetFilter(bson.M{"_id": rec.Key}).SetReplacement(rec).SetUpsert(true))
	}
	_, err := s.coll.BulkWrite(ctx, models)
	return wrapErr(err)
}

func (s *DocStatusStore) Get(ctx context.Context, ws types.Workspace, id string) (*types.Document, error) {
	var rec docRecord
	if err := s.coll.FindOne(ctx, bson.M{"_id": ws.Key(types.NS_DOC_STATUS, id)}).Decode(&rec); err != nil {
		return nil, wrapErr(err)
	}
	return &rec.Document, nil
}

func (s *DocStatusStore) GetByStatus(ctx context.Context, ws types.Workspace, statuses ...types.DocStatus) ([]*types.Document, error) {
	return s.Find(ctx, ws, types.DocumentFilter{Statuses: statuses})
}

func (s *DocStatusStore) Find(ctx context.Context, ws types.Workspace, filter types.DocumentFilter) ([]*types.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "id", Value: 1}})
	return s.find(ctx, documentFilter(ws, filter), opts)
}

func (s *DocStatusStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*types.Document, error) {
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapErr(err)
	}
	var recs []docRecord
	if err = cur.All(ctx, &recs); err != nil {
		return nil, wrapErr(err)
	}
	out := make([]*types.Document, 0, len(recs))
	for i := range recs {
		out = append(out, &recs[i].Document)
	}
	return out, nil
}

func (s *DocStatusStore) Delete(ctx context.Context, ws types.Workspace, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, ws.Key(types.NS_DOC_STATUS, id))
	}
	_, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	return wrapErr(err)
}

func (s *DocStatusStore) StatusCounts(ctx context.Context, ws types.Workspace) (map[types.DocStatus]int, error) {
	cur, err := s.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"workspace": ws.String()}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	var rows []struct {
		Status types.DocStatus `bson:"_id"`
		Count  int             `bson:"count"`
	}
	if err = cur.All(ctx, &rows); err != nil {
		return nil, wrapErr(err)
	}
	counts := make(map[types.DocStatus]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *DocStatusStore) Query(ctx context.Context, ws types.Workspace, filter types.DocumentFilter, order query.Sort, page query.PageRequest) (query.Page[*types.Document], error) {
	page, err := page.Normalize()
	if err != nil {
		return query.Page[*types.Document]{}, err
	}
	f := documentFilter(ws, filter)
	total, err := s.coll.CountDocuments(ctx, f)
	if err != nil {
		return query.Page[*types.Document]{}, wrapErr(err)
	}

	res := query.Page[*types.Document]{
		Total:    int(total),
		Page:     page.Page,
		PageSize: page.PageSize,
		Items:    []*types.Document{},
	}
	if page.Offset() >= res.Total {
		return res, nil
	}

	items, err := s.find(ctx, f, pageOptions(order, page))
	if err != nil {
		return query.Page[*types.Document]{}, err
	}
	res.Items = append(res.Items, items...)
	return res, nil
}

func documentFilter(ws types.Workspace, f types.DocumentFilter) bson.M {
	m := bson.M{"workspace": ws.String()}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, s.String())
		}
		m["status"] = bson.M{"$in": statuses}
	}
	if f.TrackID != "" {
		m["track_id"] = f.TrackID
	}
	if f.FilePath != "" {
		m["file_path"] = f.FilePath
	}
	if f.ContentHash != "" {
		m["content_hash"] = f.ContentHash
	}
	if f.CategoryID != "" {
		m["category_id"] = f.CategoryID
	}
	return m
}

func pageOptions(order query.Sort, page query.PageRequest) *options.FindOptions {
	direction := 1
	if order.Desc {
		direction = -1
	}
	return options.Find().
		SetSort(bson.D{{Key: types.NormalizeDocumentSortField(order.Field), Value: direction}, {Key: "id", Value: 1}}).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.PageSize))
}
