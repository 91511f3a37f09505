package upload

import "time"

// retryController tracks consecutive transport failures against a ceiling
// and owns the single pending retry timer. All methods are called with the
// uploader's lock held.
type retryController struct {
	failures   int
	maxRetries int
	delay      time.Duration
	timer      *time.Timer
}

// exhausted reports whether the retry ceiling has been reached.
func (r *retryController) exhausted() bool {
	return r.failures >= r.maxRetries
}

// recordFailure increments the consecutive failure count and returns the
// 1-based attempt number.
func (r *retryController) recordFailure() int {
	r.failures++
	return r.failures
}

// reset clears the consecutive failure count.
func (r *retryController) reset() {
	r.failures = 0
}

// schedule arms the retry timer. At most one retry is pending at a time.
func (r *retryController) schedule(fn func()) {
	r.cancel()
	r.timer = time.AfterFunc(r.delay, fn)
}

// cancel stops a pending retry so it never fires.
func (r *retryController) cancel() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
