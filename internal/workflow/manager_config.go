package workflow

import "plaques2gallery/internal/records"

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	var stages []pipelineStage
	if set.Normalizer != nil {
		stages = append(stages, pipelineStage{
			name:         "normalize",
			handler:      set.Normalizer,
			failureStage: records.StageNormalization,
			accepts: func(r *records.Record) bool {
				return r.Status == records.StatusPending && r.Query == nil
			},
		})
	}
	if set.Searcher != nil {
		stages = append(stages, pipelineStage{
			name:         "search",
			handler:      set.Searcher,
			failureStage: records.StageSearch,
			accepts: func(r *records.Record) bool {
				return r.Status == records.StatusPending && r.Query != nil
			},
		})
	}
	if set.Resolver != nil {
		stages = append(stages, pipelineStage{
			name:         "resolve",
			handler:      set.Resolver,
			failureStage: records.StageRender,
			accepts: func(r *records.Record) bool {
				return r.Status == records.StatusSearched
			},
		})
	}

	m.mu.Lock()
	m.stages = stages
	m.mu.Unlock()
}

func (m *Manager) stageFor(record *records.Record) (pipelineStage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, stg := range m.stages {
		if stg.accepts(record) {
			return stg, true
		}
	}
	return pipelineStage{}, false
}

func (m *Manager) stageList() []pipelineStage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]pipelineStage(nil), m.stages...)
}
