package process

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/quka-ai/ragstore/app/core"
	"github.com/quka-ai/ragstore/pkg/safe"
	"github.com/quka-ai/ragstore/pkg/types"
)

const CANCELLED_BY_USER = "cancelled by user"

type queuedDoc struct {
	docID   string
	trackID string
}

// workspaceState is the run state of one workspace. Every field is guarded by mu.
type workspaceState struct {
	mu     sync.Mutex
	status types.PipelineStatus
	queue  []queuedDoc
	queued map[string]struct{}
	// next collects submissions that arrive while a cancellation is pending.
	// They start a fresh run once the cancelled one stops.
	next []queuedDoc
	// held is set by a cancellation and keeps the periodic flush from
	// restarting the leftover pending documents until the next submission.
	held bool
}

func newWorkspaceState() *workspaceState {
	return &workspaceState{
		queued: make(map[string]struct{}),
		status: types.PipelineStatus{QueuedDocIDs: []string{}, HistoryMessages: []string{}},
	}
}

// message records a progress line. The caller holds mu.
func (s *workspaceState) message(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.status.LatestMessage = msg
	s.status.HistoryMessages = append(s.status.HistoryMessages, msg)
	if over := len(s.status.HistoryMessages) - types.MAX_HISTORY_MESSAGES; over > 0 {
		s.status.HistoryMessages = append([]string(nil), s.status.HistoryMessages[over:]...)
	}
}

func (s *workspaceState) syncQueue() {
	ids := make([]string, 0, len(s.queue)+len(s.next))
	for _, v := range s.queue {
		ids = append(ids, v.docID)
	}
	for _, v := range s.next {
		ids = append(ids, v.docID)
	}
	s.status.QueuedDocIDs = ids
}

func (s *workspaceState) snapshot() types.PipelineStatus {
	st := s.status
	st.QueuedDocIDs = append([]string{}, s.status.QueuedDocIDs...)
	st.HistoryMessages = append([]string{}, s.status.HistoryMessages...)
	return st
}

// Pipeline drains the document queue of each workspace. One drain task per
// workspace runs on the shared pool, documents inside it run one at a time.
type Pipeline struct {
	ctx    context.Context
	cancel context.CancelFunc
	core   *core.Core
	pool   *ants.Pool
	states cmap.ConcurrentMap[string, *workspaceState]
	wg     sync.WaitGroup
}

func NewPipeline(core *core.Core) (*Pipeline, error) {
	pool, err := ants.NewPool(core.Cfg().Pipeline.MaxParallelWorkspaces, ants.WithPanicHandler(func(r any) {
		slog.Error("pipeline task panic", slog.Any("recover", r), slog.String("component", "pipeline"))
	}))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		ctx:    ctx,
		cancel: cancel,
		core:   core,
		pool:   pool,
		states: cmap.New[*workspaceState](),
	}, nil
}

func (p *Pipeline) state(ws types.Workspace) *workspaceState {
	return p.states.Upsert(ws.String(), nil, func(exist bool, old, _ *workspaceState) *workspaceState {
		if exist {
			return old
		}
		return newWorkspaceState()
	})
}

// Workspaces lists every workspace the pipeline has seen since start.
func (p *Pipeline) Workspaces() []types.Workspace {
	var list []types.Workspace
	for _, k := range p.states.Keys() {
		list = append(list, types.Workspace(k))
	}
	return list
}

func (p *Pipeline) Enqueue(ws types.Workspace, trackID string, docIDs ...string) {
	items := make([]queuedDoc, 0, len(docIDs))
	for _, id := range docIDs {
		items = append(items, queuedDoc{docID: id, trackID: trackID})
	}

	st := p.state(ws)
	st.mu.Lock()
	st.held = false
	start := p.push(st, items)
	st.mu.Unlock()

	if start {
		p.submit(ws, st)
	}
}

// push appends the ids not queued yet and reports whether a run must start.
// The caller holds st.mu.
func (p *Pipeline) push(st *workspaceState, items []queuedDoc) bool {
	if len(items) == 0 {
		return false
	}
	if st.status.CancelRequested {
		st.next = append(st.next, items...)
		st.syncQueue()
		st.message("%d documents held for the next job", len(items))
		return false
	}

	added := 0
	for _, item := range items {
		if _, ok := st.queued[item.docID]; ok {
			continue
		}
		st.queued[item.docID] = struct{}{}
		st.queue = append(st.queue, item)
		added++
	}
	st.syncQueue()

	if st.status.Busy {
		st.status.Docs += added
		if added > 0 {
			st.message("%d documents appended to the running job", added)
		}
		return false
	}
	if len(st.queue) == 0 {
		return false
	}

	st.status.Busy = true
	st.status.JobName = fmt.Sprintf("indexing %d documents", len(st.queue))
	st.status.JobStart = time.Now().Unix()
	st.status.TrackID = items[0].trackID
	st.status.Docs = len(st.queue)
	st.status.ProcessedCount = 0
	st.status.FailedCount = 0
	st.status.CancelRequested = false
	st.message("job started with %d documents", len(st.queue))
	return true
}

func (p *Pipeline) submit(ws types.Workspace, st *workspaceState) {
	p.wg.Add(1)
	safe.Go("pipeline.submit", func() {
		err := p.pool.Submit(func() {
			defer p.wg.Done()
			p.drain(ws, st)
		})
		if err != nil {
			p.wg.Done()
			slog.Error("failed to submit pipeline task", slog.String("workspace", ws.String()),
				slog.String("component", "pipeline"), slog.String("error", err.Error()))
			st.mu.Lock()
			p.stop(st, "job aborted: "+err.Error())
			st.mu.Unlock()
		}
	})
}

// stop ends a run and drops whatever is still queued. The caller holds st.mu.
func (p *Pipeline) stop(st *workspaceState, msg string) {
	st.queue = nil
	st.next = nil
	st.queued = make(map[string]struct{})
	st.syncQueue()
	st.status.Busy = false
	st.status.CancelRequested = false
	st.message("%s", msg)
}

func (p *Pipeline) drain(ws types.Workspace, st *workspaceState) {
	logger := slog.With(slog.String("workspace", ws.String()), slog.String("component", "pipeline"))

	if locker := p.core.PipelineLocker(); locker != nil {
		ok, err := locker.TryLock(p.ctx, ws)
		if err != nil || !ok {
			logger.Warn("workspace pipeline is running on another instance", slog.Any("error", err))
			st.mu.Lock()
			p.stop(st, "job skipped, workspace is locked by another instance")
			st.mu.Unlock()
			return
		}
		defer func() {
			if err := locker.Unlock(context.Background(), ws); err != nil {
				logger.Error("failed to release pipeline lock", slog.String("error", err.Error()))
			}
		}()
	}

	for {
		st.mu.Lock()
		if st.status.CancelRequested {
			next := st.next
			p.stop(st, "job cancelled by user")
			if !p.push(st, next) {
				st.held = true
				st.mu.Unlock()
				p.core.Metrics().PipelineQueueSet(ws.String(), 0)
				return
			}
			st.mu.Unlock()
			continue
		}
		if len(st.queue) == 0 || p.ctx.Err() != nil {
			p.stop(st, fmt.Sprintf("job finished, %d processed, %d failed", st.status.ProcessedCount, st.status.FailedCount))
			st.mu.Unlock()
			p.core.Metrics().PipelineQueueSet(ws.String(), 0)
			return
		}
		item := st.queue[0]
		st.queue = st.queue[1:]
		delete(st.queued, item.docID)
		st.syncQueue()
		st.status.TrackID = item.trackID
		st.message("processing %s", item.docID)
		queueLen := len(st.queue)
		st.mu.Unlock()

		p.core.Metrics().PipelineQueueSet(ws.String(), queueLen)

		result, err := p.processDocument(p.ctx, ws, st, item.docID)

		st.mu.Lock()
		switch result {
		case resultProcessed:
			st.status.ProcessedCount++
			st.message("%s processed", item.docID)
		case resultFailed, resultCancelled:
			st.status.FailedCount++
			st.message("%s failed: %v", item.docID, err)
		default:
			st.message("%s skipped", item.docID)
		}
		st.mu.Unlock()

		if result != resultSkipped {
			p.core.Metrics().PipelineDocumentInc(string(result))
		}
		if err != nil {
			logger.Warn("document processing failed", slog.String("doc_id", item.docID),
				slog.String("track_id", item.trackID), slog.String("error", err.Error()))
		}
	}
}

func (p *Pipeline) Busy(ws types.Workspace) bool {
	st, ok := p.states.Get(ws.String())
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.status.Busy
}

func (p *Pipeline) Status(ws types.Workspace) types.PipelineStatus {
	st := p.state(ws)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshot()
}

func (p *Pipeline) Cancel(ws types.Workspace) types.CancelResponse {
	st := p.state(ws)
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.status.Busy {
		return types.CancelResponse{
			Status:  types.CANCEL_STATUS_NOT_BUSY,
			Message: "Pipeline is not currently running. No cancellation needed.",
		}
	}
	st.status.CancelRequested = true
	st.message("pipeline cancellation requested by user")
	return types.CancelResponse{
		Status:  types.CANCEL_STATUS_REQUESTED,
		Message: "Pipeline cancellation has been requested. Documents will be marked as FAILED.",
	}
}

func (p *Pipeline) cancelRequested(st *workspaceState) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.status.CancelRequested
}

// Wait blocks until every submitted drain task returned.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) Close() {
	p.cancel()
	p.wg.Wait()
	p.pool.Release()
}
