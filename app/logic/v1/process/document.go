package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/ai"
	"github.com/quka-ai/ragstore/pkg/types"
	"github.com/quka-ai/ragstore/pkg/utils"
)

type docResult string

const (
	resultProcessed docResult = "processed"
	resultFailed    docResult = "failed"
	resultCancelled docResult = "cancelled"
	resultSkipped   docResult = "skipped"
)

var (
	ErrCancelled         = errors.New(CANCELLED_BY_USER)
	ErrInvalidTransition = errors.New("invalid document status transition")
)

// Transition moves doc to the next lifecycle status, refusing any edge the
// lifecycle table does not allow.
func Transition(doc *types.Document, to types.DocStatus) error {
	if !doc.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, doc.Status, to)
	}
	doc.Status = to
	doc.UpdatedAt = time.Now().Unix()
	return nil
}

// retry runs fn again while it fails with a retryable backend error,
// sleeping attempt*backoff between tries.
func (p *Pipeline) retry(ctx context.Context, fn func() error) error {
	cfg := p.core.Cfg().Pipeline
	var err error
	for attempt := 0; attempt <= cfg.RetryTimes; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(time.Duration(attempt) * cfg.RetryBackoff()):
			}
		}
		if err = fn(); err == nil || !store.IsRetryable(err) {
			return err
		}
	}
	return err
}

func (p *Pipeline) saveStatus(ctx context.Context, ws types.Workspace, doc *types.Document) error {
	return p.retry(ctx, func() error {
		return p.core.Stores().DocStatus.Upsert(ctx, ws, doc)
	})
}

// processDocument runs one pending document through chunking, extraction and
// knowledge writing. Any failure, cancellation included, leaves it failed.
func (p *Pipeline) processDocument(ctx context.Context, ws types.Workspace, st *workspaceState, docID string) (docResult, error) {
	stores := p.core.Stores()

	var doc *types.Document
	err := p.retry(ctx, func() error {
		var err error
		doc, err = stores.DocStatus.Get(ctx, ws, docID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return resultSkipped, nil
	}
	if err != nil {
		return resultSkipped, err
	}
	if doc.Status != types.DOC_STATUS_PENDING {
		return resultSkipped, nil
	}

	if err = Transition(doc, types.DOC_STATUS_PROCESSING); err != nil {
		return resultSkipped, err
	}
	doc.ErrorMsg = ""
	if err = p.saveStatus(ctx, ws, doc); err != nil {
		return resultSkipped, err
	}

	err = p.runDocument(ctx, ws, st, doc)
	if err == nil {
		return resultProcessed, nil
	}

	result := resultFailed
	doc.ErrorMsg = err.Error()
	if errors.Is(err, ErrCancelled) {
		result = resultCancelled
		doc.ErrorMsg = CANCELLED_BY_USER
	}
	if terr := Transition(doc, types.DOC_STATUS_FAILED); terr != nil {
		return result, errors.Join(err, terr)
	}
	if serr := p.saveStatus(context.Background(), ws, doc); serr != nil {
		slog.Error("failed to mark document failed", slog.String("workspace", ws.String()),
			slog.String("doc_id", doc.ID), slog.String("error", serr.Error()))
		return result, errors.Join(err, serr)
	}
	return result, err
}

func (p *Pipeline) runDocument(ctx context.Context, ws types.Workspace, st *workspaceState, doc *types.Document) error {
	stores := p.core.Stores()

	var full *types.FullDoc
	err := p.retry(ctx, func() error {
		var err error
		full, err = store.GetJSON[types.FullDoc](ctx, stores.FullDocs, ws, doc.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}

	chunks, err := p.writeChunks(ctx, ws, doc, full.Content)
	if err != nil {
		return err
	}

	doc.ChunksCount = len(chunks)
	doc.ChunksList = lo.Map(chunks, func(c *types.Chunk, _ int) string { return c.ID })
	if err = Transition(doc, types.DOC_STATUS_PREPROCESSED); err != nil {
		return err
	}
	if err = p.saveStatus(ctx, ws, doc); err != nil {
		return err
	}

	result := types.ExtractResult{}
	for _, chunk := range chunks {
		if p.cancelRequested(st) {
			return ErrCancelled
		}
		timer := p.core.Metrics().ExtractTimer(p.core.AIDriver())
		res, err := p.core.Extractor().Extract(ctx, chunk.Content)
		timer.ObserveDuration()
		if err != nil {
			if !errors.Is(err, ai.ErrExtraction) {
				err = fmt.Errorf("%w: %w", ai.ErrExtraction, err)
			}
			return fmt.Errorf("chunk %s: %w", chunk.ID, err)
		}
		now := time.Now().Unix()
		for _, e := range res.Entities {
			e.ChunkIDs = []string{chunk.ID}
			e.FilePath = doc.FilePath
			e.CreatedAt, e.UpdatedAt = now, now
		}
		for _, r := range res.Relations {
			r.ChunkIDs = []string{chunk.ID}
			r.FilePath = doc.FilePath
			r.CreatedAt, r.UpdatedAt = now, now
		}
		result.Entities = append(result.Entities, res.Entities...)
		result.Relations = append(result.Relations, res.Relations...)
	}

	if p.cancelRequested(st) {
		return ErrCancelled
	}

	writer := NewKnowledgeWriter(stores, p.core.Embedder()).WithRetry(p.retry)
	if err = writer.Write(ctx, ws, ai.NormalizeResult(result)); err != nil {
		return fmt.Errorf("write knowledge: %w", err)
	}

	if err = Transition(doc, types.DOC_STATUS_PROCESSED); err != nil {
		return err
	}
	return p.saveStatus(ctx, ws, doc)
}

// writeChunks splits content and stores the chunks with their vectors.
func (p *Pipeline) writeChunks(ctx context.Context, ws types.Workspace, doc *types.Document, content string) ([]*types.Chunk, error) {
	stores := p.core.Stores()
	now := time.Now().Unix()

	pieces := p.core.Chunker().Chunk(content)
	chunks := make([]*types.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, &types.Chunk{
			ID:         utils.ChunkID(doc.ID, piece.Order, piece.Content),
			FullDocID:  doc.ID,
			OrderIndex: piece.Order,
			TokenCount: piece.Tokens,
			Content:    piece.Content,
			FilePath:   doc.FilePath,
			CreatedAt:  now,
		})
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := p.core.Embedder().Embed(ctx, lo.Map(chunks, func(c *types.Chunk, _ int) string { return c.Content }))
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	records := make([]*types.VectorRecord, 0, len(chunks))
	for i, c := range chunks {
		rec := &types.VectorRecord{
			ID:        c.ID,
			Content:   c.Content,
			FullDocID: doc.ID,
			ChunkIDs:  []string{c.ID},
			FilePath:  doc.FilePath,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if i < len(vectors) {
			rec.Vector = vectors[i]
		}
		records = append(records, rec)
	}

	err = p.retry(ctx, func() error {
		for _, c := range chunks {
			if err := store.PutJSON(ctx, stores.TextChunks, ws, c.ID, c); err != nil {
				return err
			}
		}
		return stores.Chunks.Upsert(ctx, ws, records...)
	})
	if err != nil {
		return nil, fmt.Errorf("write chunks: %w", err)
	}
	return chunks, nil
}
