package middleware

import "net/http"

// Stage is one step of request handling. A stage may answer the request itself,
// decorate the request or response, or hand off to next.
type Stage func(next http.Handler) http.Handler

// Pipeline applies its stages in the order they were given: the first stage
// sees the request first.
type Pipeline struct {
	stages []Stage
}

func CreatePipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Append returns a new pipeline with more stages at the end.
func (p *Pipeline) Append(stages ...Stage) *Pipeline {
	combined := make([]Stage, 0, len(p.stages)+len(stages))
	combined = append(combined, p.stages...)
	combined = append(combined, stages...)
	return &Pipeline{stages: combined}
}

func (p *Pipeline) Then(h http.Handler) http.Handler {
	for i := len(p.stages) - 1; i >= 0; i-- {
		h = p.stages[i](h)
	}
	return h
}

// Middleware exposes the pipeline as a single stage, e.g. for mux.Router.Use.
func (p *Pipeline) Middleware(next http.Handler) http.Handler {
	return p.Then(next)
}
