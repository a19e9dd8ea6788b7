package application

import (
	"context"
	"net/http"
	"sync"

	"kisanbot/internal/domain"
)

type fakeValidator struct {
	result domain.ValidationResult
	calls  int
}

func (f *fakeValidator) Validate(buf domain.ImageBuffer) domain.ValidationResult {
	f.calls++
	return f.result
}

type fakePreprocessor struct {
	err error
}

func (f *fakePreprocessor) Preprocess(data []byte) (domain.ProcessedImage, error) {
	if f.err != nil {
		return domain.ProcessedImage{}, f.err
	}
	return domain.ProcessedImage{Buffer: []byte("processed-jpeg"), Width: 640, Height: 480}, nil
}

type fakeAnalyzer struct {
	report domain.QualityReport
	err    error
}

func (f *fakeAnalyzer) Analyze(buffer []byte) (domain.QualityReport, error) {
	return f.report, f.err
}

type fakeInvoker struct {
	mu       sync.Mutex
	primary  domain.ModelID
	fallback domain.ModelID
	results  map[domain.ModelID]domain.GenerationResult
	errs     map[domain.ModelID]error
	panicMsg string
	calls    []domain.ModelID
	requests []domain.GenerationRequest
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{
		primary: "gemini-1.5-flash",
		results: map[domain.ModelID]domain.GenerationResult{},
		errs:    map[domain.ModelID]error{},
	}
}

func (f *fakeInvoker) Generate(ctx context.Context, model domain.ModelID, req domain.GenerationRequest) (domain.GenerationResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, model)
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if err := f.errs[model]; err != nil {
		return domain.GenerationResult{}, err
	}
	result := f.results[model]
	result.ModelID = model
	if result.Diagnostics != nil {
		copied := *result.Diagnostics
		result.Diagnostics = &copied
	}
	return result, nil
}

func (f *fakeInvoker) DefaultModel() domain.ModelID  { return f.primary }
func (f *fakeInvoker) FallbackModel() domain.ModelID { return f.fallback }

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeInvoker) succeed(model domain.ModelID, text string) {
	f.results[model] = domain.GenerationResult{Text: text, Attempts: 1}
}

func (f *fakeInvoker) fail(model domain.ModelID, status int, kind domain.FailureKind, available ...string) {
	f.results[model] = domain.GenerationResult{
		Attempts: 2,
		Diagnostics: &domain.Diagnostics{
			Status:          status,
			StatusText:      http.StatusText(status),
			BodySnippet:     "upstream said no",
			ModelID:         model.Short(),
			Attempt:         2,
			Kind:            kind,
			AvailableModels: available,
		},
	}
}

type fakeDirectory struct {
	models   []domain.ModelDescriptor
	err      error
	validity domain.ModelValidity
}

func (f *fakeDirectory) ListModels(ctx context.Context) ([]domain.ModelDescriptor, error) {
	return f.models, f.err
}

func (f *fakeDirectory) IsModelValid(ctx context.Context, id domain.ModelID) domain.ModelValidity {
	return f.validity
}
