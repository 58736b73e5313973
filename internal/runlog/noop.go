package runlog

import "context"

// NoopStore is used when run history is disabled.
// It silently discards all writes and returns empty results for reads.
type NoopStore struct{}

func (s *NoopStore) Create(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	return nil
}

func (s *NoopStore) Get(ctx context.Context, id string) (*Run, error) {
	return nil, nil
}

func (s *NoopStore) Resolve(ctx context.Context, idOrPrefix string) (*Run, error) {
	return nil, ErrNotFound
}

func (s *NoopStore) UpdateProgress(ctx context.Context, id string, iterations, toolCalls int, threadID string) error {
	return nil
}

func (s *NoopStore) Finish(ctx context.Context, id string, status RunStatus, limitReached bool, errMsg string) error {
	return nil
}

func (s *NoopStore) Delete(ctx context.Context, id string) error {
	return nil
}

func (s *NoopStore) List(ctx context.Context, opts ListOptions) ([]Run, error) {
	return nil, nil
}

func (s *NoopStore) AddMessage(ctx context.Context, runID string, msg *Message) error {
	return nil
}

func (s *NoopStore) GetMessages(ctx context.Context, runID string) ([]Message, error) {
	return nil, nil
}

func (s *NoopStore) Close() error {
	return nil
}
