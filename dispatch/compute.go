package dispatch

import (
	"github.com/xtaci/dispatchd/cache"
	"github.com/xtaci/dispatchd/limiter"
	"github.com/xtaci/dispatchd/parser"
	"github.com/xtaci/dispatchd/task"
)

// computeResult implements the compute job body from §4.2: parse, admit
// (CPU class only), execute, and return the result to be cached and
// enqueued. It does not itself touch the cache or the response queue —
// callers decide when and in what order to insert/enqueue, which is
// exactly the baseline-vs-strict-ordering distinction between the two
// compute-job paths of handleLine in handler.go.
func computeResult(line string, lim *limiter.Limiter) cache.Result {
	req, err := parser.Parse(line)
	if err != nil {
		return cache.Uncomputable
	}

	if req.Type == task.CPU {
		permit := lim.Acquire()
		defer permit.Release()
	}

	return cache.Result{Value: task.Execute(req.Type, req.Seed)}
}
