package process

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/quka-ai/ragstore/pkg/types"
)

// Recover fails the documents a previous process left in flight. It runs
// before the pipeline accepts work, nothing can legitimately be processing.
func (p *Pipeline) Recover(ctx context.Context, workspaces ...types.Workspace) {
	for _, ws := range lo.Uniq(workspaces) {
		docs, err := p.core.Stores().DocStatus.GetByStatus(ctx, ws, types.DOC_STATUS_PROCESSING, types.DOC_STATUS_PREPROCESSED)
		if err != nil {
			slog.Error("failed to list interrupted documents", slog.String("workspace", ws.String()),
				slog.String("component", "pipeline"), slog.String("error", err.Error()))
			continue
		}
		for _, doc := range docs {
			if err = Transition(doc, types.DOC_STATUS_FAILED); err != nil {
				continue
			}
			doc.ErrorMsg = "interrupted by service restart"
			if err = p.saveStatus(ctx, ws, doc); err != nil {
				slog.Error("failed to recover document", slog.String("workspace", ws.String()),
					slog.String("doc_id", doc.ID), slog.String("error", err.Error()))
			}
		}
		if len(docs) > 0 {
			slog.Info("recovered interrupted documents", slog.String("workspace", ws.String()), slog.Int("count", len(docs)))
		}
		p.state(ws)
	}
}

// Flush restarts pending documents nobody queued, such as those written
// while a previous run was ending. Workspaces held by a cancellation are left alone.
func (p *Pipeline) Flush() {
	ctx, cancel := context.WithTimeout(p.ctx, time.Second*30)
	defer cancel()

	for _, ws := range p.Workspaces() {
		st := p.state(ws)
		st.mu.Lock()
		skip := st.status.Busy || st.held
		st.mu.Unlock()
		if skip {
			continue
		}

		docs, err := p.core.Stores().DocStatus.GetByStatus(ctx, ws, types.DOC_STATUS_PENDING)
		if err != nil {
			slog.Error("failed to list pending documents", slog.String("workspace", ws.String()),
				slog.String("component", "pipeline"), slog.String("error", err.Error()))
			continue
		}
		if len(docs) == 0 {
			continue
		}
		slog.Info("pipeline flush", slog.String("workspace", ws.String()), slog.Int("length", len(docs)))

		st.mu.Lock()
		start := false
		for _, doc := range docs {
			start = p.push(st, []queuedDoc{{docID: doc.ID, trackID: doc.TrackID}}) || start
		}
		st.mu.Unlock()
		if start {
			p.submit(ws, st)
		}
	}
}
