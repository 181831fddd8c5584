package intent

import (
	"github.com/qurani-maai/quranchat/core/quran"
	"github.com/qurani-maai/quranchat/core/refs"
)

// Router tries its interpreters in order. It is immutable and safe for
// concurrent use.
type Router struct {
	interpreters []Interpreter
}

// Option configures the default router.
type Option func(*options)

type options struct {
	searchLimit int
}

// WithSearchLimit sets the keyword search cap.
func WithSearchLimit(n int) Option {
	return func(o *options) { o.searchLimit = n }
}

// New returns the standard router: continue, direct reference, full
// chapter, keyword search, greeting, fallback.
func New(resolver *refs.Resolver, opts ...Option) *Router {
	o := options{searchLimit: DefaultSearchLimit}
	for _, opt := range opts {
		opt(&o)
	}
	return NewRouter(
		Continue{Resolver: resolver},
		DirectReference{Resolver: resolver},
		FullChapter{Resolver: resolver},
		KeywordSearch{Limit: o.searchLimit},
		Greeting{},
		Fallback{},
	)
}

// NewRouter builds a router over a custom interpreter chain.
func NewRouter(interpreters ...Interpreter) *Router {
	return &Router{interpreters: interpreters}
}

// Route returns the outcome of the first interpreter that claims in. When
// none does, the fallback outcome is returned.
func (r *Router) Route(in Input) Outcome {
	for _, it := range r.interpreters {
		if out, ok := it.Attempt(in); ok {
			out.Interpreter = it.Name()
			return out
		}
	}
	out, _ := Fallback{}.Attempt(in)
	out.Interpreter = Fallback{}.Name()
	return out
}

// RouteText normalizes utterance and routes it.
func (r *Router) RouteText(utterance string, lastRead *quran.VerseRef) Outcome {
	return r.Route(NewInput(utterance, lastRead))
}
