package services

import "sync"

// LoadingState aggregates every in-flight operation of a session into one
// busy flag. It is busy while at least one Begin has not been settled.
type LoadingState struct {
	mu       sync.Mutex
	count    int
	onChange func(busy bool)
}

func NewLoadingState() *LoadingState {
	return &LoadingState{}
}

// OnChange registers fn to be called whenever the busy flag flips.
// fn runs with the state locked and must not call back into it.
func (l *LoadingState) OnChange(fn func(busy bool)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// Begin marks one operation as in flight. The returned func settles it and
// may be called any number of times.
func (l *LoadingState) Begin() func() {
	l.mu.Lock()
	l.count++
	if l.count == 1 && l.onChange != nil {
		l.onChange(true)
	}
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(l.end)
	}
}

func (l *LoadingState) end() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count == 0 {
		return
	}
	l.count--
	if l.count == 0 && l.onChange != nil {
		l.onChange(false)
	}
}

func (l *LoadingState) Busy() bool {
	return l.Count() > 0
}

func (l *LoadingState) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
