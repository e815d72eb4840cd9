package jobs

import (
	gopath "path"
	"sync"

	"github.com/gigimon/vcmc/backend"
	"github.com/gigimon/vcmc/fs"
)

// DefaultWorkers is the pool size when the caller does not override it.
const DefaultWorkers = 2

// Notify delivers an update to the event queue. It is called from worker
// goroutines and must not block indefinitely.
type Notify func(Update)

// queue is an unbounded FIFO of requests; Submit never blocks the caller.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Request
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(req Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, req)
	q.cond.Signal()
	return true
}

// pop blocks until a request is available or the queue is closed and empty.
func (q *queue) pop() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return Request{}, false
	}
	req := q.items[0]
	q.items = q.items[1:]
	return req, true
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Pool executes requests on a fixed set of worker goroutines draining one
// unbounded queue.
type Pool struct {
	queue  *queue
	notify Notify
	wg     sync.WaitGroup
}

// NewPool starts workers and returns the pool. workers < 1 is clamped to 1.
func NewPool(workers int, notify Notify) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		queue:  newQueue(),
		notify: notify,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Submit enqueues a request and returns immediately.
func (p *Pool) Submit(req Request) {
	if !p.queue.push(req) {
		fs.Errorf(nil, "job %d submitted after pool shutdown", req.ID)
	}
}

// Close stops accepting requests and joins the workers. Outstanding jobs
// complete first.
func (p *Pool) Close() {
	p.queue.close()
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			fs.Errorf(nil, "job worker %d terminated with panic: %v", id, r)
		}
	}()

	for {
		req, ok := p.queue.pop()
		if !ok {
			return
		}
		p.notify(Update{
			ID:          req.ID,
			BatchID:     req.BatchID,
			Kind:        req.Kind,
			Status:      StatusRunning,
			Source:      req.Source,
			Destination: req.Destination,
			Message:     "running",
		})

		destination, err := execute(&req)
		update := Update{
			ID:      req.ID,
			BatchID: req.BatchID,
			Kind:    req.Kind,
			Source:  req.Source,
		}
		if err != nil {
			update.Status = StatusFailed
			update.Destination = req.Destination
			update.Message = failureMessage(&req, err)
		} else {
			update.Status = StatusDone
			if destination == "" {
				destination = req.Destination
			}
			update.Destination = destination
			update.Message = successMessage(&req)
		}
		p.notify(update)
	}
}

// execute runs one request against its backend(s) and returns the resolved
// destination when the operation produces one.
func execute(req *Request) (string, error) {
	src, err := backend.FromSpec(req.SourceBackend)
	if err != nil {
		return "", err
	}

	switch req.Kind {
	case KindDelete:
		return "", src.RemovePath(req.Source)
	case KindMkdir:
		return "", src.CreateDir(req.Source)
	}

	// Copy/Move
	if req.Destination == "" {
		return "", fs.PreconditionError(req.Kind.String(), req.Kind.String()+" requires destination")
	}
	if req.DestinationBackend == nil || req.DestinationBackend.String() == req.SourceBackend.String() {
		if req.Kind == KindMove {
			return src.MovePath(req.Source, req.Destination)
		}
		return src.CopyPath(req.Source, req.Destination)
	}

	// Backends differ: synthesize from read/write/create-dir.
	dst, err := backend.FromSpec(*req.DestinationBackend)
	if err != nil {
		return "", err
	}
	resolved, err := crossBackendCopy(src, dst, req.Source, req.Destination)
	if err != nil {
		return "", err
	}
	if req.Kind == KindMove {
		if err := src.RemovePath(req.Source); err != nil {
			return "", err
		}
	}
	return resolved, nil
}

// crossBackendCopy moves bytes between two different backends. Directories
// recurse; entry order inside a directory does not matter.
func crossBackendCopy(src, dst backend.Backend, srcPath, dstPath string) (string, error) {
	entry, err := src.StatEntry(srcPath)
	if err != nil {
		return "", err
	}

	if de, err := dst.StatEntry(dstPath); err == nil && de.IsDir() {
		dstPath = gopath.Join(dstPath, gopath.Base(srcPath))
	}
	resolved, err := dst.NormalizeNewPath("copy", dstPath)
	if err != nil {
		return "", err
	}

	if err := copyAcross(src, dst, &entry, resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

func copyAcross(src, dst backend.Backend, entry *fs.Entry, target string) error {
	if entry.IsDir() {
		if err := dst.CreateDir(target); err != nil {
			// an existing target directory is fine
			if de, statErr := dst.StatEntry(target); statErr != nil || !de.IsDir() {
				return err
			}
		}
		children, err := src.ListDir(entry.Path, fs.SortName, true)
		if err != nil {
			return err
		}
		for i := range children {
			child := &children[i]
			if child.Virtual {
				continue
			}
			if err := copyAcross(src, dst, child, gopath.Join(target, child.Name)); err != nil {
				return err
			}
		}
		return nil
	}

	data, err := src.ReadFile(entry.Path)
	if err != nil {
		return err
	}
	return dst.WriteFile(target, data)
}
