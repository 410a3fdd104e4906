package extract

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-postpass/engine/ecs"
)

// Extractor refreshes a render-side snapshot from the simulation world.
type Extractor interface {
	Extract(views []ecs.Entity)
}

// Preparer uploads extracted data to the GPU.
type Preparer interface {
	Prepare(gpu GPU) error
}

// Schedule runs every registered extractor, then every registered preparer, once per frame.
type Schedule struct {
	mu         sync.Mutex
	extractors []Extractor
	preparers  []Preparer
}

// AddExtractor appends x to the extract stage.
func (s *Schedule) AddExtractor(x Extractor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extractors = append(s.extractors, x)
}

// AddPreparer appends p to the prepare stage.
func (s *Schedule) AddPreparer(p Preparer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preparers = append(s.preparers, p)
}

// Run extracts for views and prepares every registered preparer in registration order.
// It returns the first preparer error; later preparers still run.
//
// Parameters:
//   - views: the entities of this frame's active views
//   - gpu: the device/queue used by preparers
//
// Returns:
//   - error: the first prepare error, if any
func (s *Schedule) Run(views []ecs.Entity, gpu GPU) error {
	s.mu.Lock()
	extractors := s.extractors
	preparers := s.preparers
	s.mu.Unlock()

	for _, x := range extractors {
		x.Extract(views)
	}
	var first error
	for _, p := range preparers {
		if err := p.Prepare(gpu); err != nil && first == nil {
			first = err
		}
	}
	return first
}
