package rules

// TriggerSet groups triggers by asset name. Assets keep first-insertion order.
type TriggerSet struct {
	order   []string
	byAsset map[string][]Trigger
}

// NewTriggerSet returns an empty set.
func NewTriggerSet() *TriggerSet {
	return &TriggerSet{byAsset: make(map[string][]Trigger)}
}

// Add appends a trigger under asset. Duplicate datapoints are kept.
func (s *TriggerSet) Add(asset string, trigger Trigger) {
	if s.byAsset == nil {
		s.byAsset = make(map[string][]Trigger)
	}
	if _, ok := s.byAsset[asset]; !ok {
		s.order = append(s.order, asset)
	}
	s.byAsset[asset] = append(s.byAsset[asset], trigger)
}

// Clear drops every trigger.
func (s *TriggerSet) Clear() {
	s.order = nil
	s.byAsset = make(map[string][]Trigger)
}

// Assets returns asset names in insertion order.
func (s *TriggerSet) Assets() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Triggers returns the triggers configured for asset.
func (s *TriggerSet) Triggers(asset string) []Trigger {
	if s == nil {
		return nil
	}
	list := s.byAsset[asset]
	out := make([]Trigger, len(list))
	copy(out, list)
	return out
}

// Len returns the number of assets.
func (s *TriggerSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// TriggerCount returns the number of triggers across all assets.
func (s *TriggerSet) TriggerCount() int {
	if s == nil {
		return 0
	}
	count := 0
	for _, list := range s.byAsset {
		count += len(list)
	}
	return count
}

func (s *TriggerSet) Empty() bool {
	return s.Len() == 0
}

// SummaryEntry describes one asset of a trigger set.
type SummaryEntry struct {
	Asset    string `json:"asset"`
	Label    string `json:"label,omitempty"`
	Interval uint   `json:"interval,omitempty"`
}

// Summary returns one entry per asset. The label comes from the first
// trigger of the asset that declares a window statistic.
func (s *TriggerSet) Summary() []SummaryEntry {
	if s == nil {
		return nil
	}
	entries := make([]SummaryEntry, 0, len(s.order))
	for _, asset := range s.order {
		entry := SummaryEntry{Asset: asset}
		for _, trigger := range s.byAsset[asset] {
			if label := trigger.Label(); label != "" {
				entry.Label = label
				entry.Interval = trigger.Interval()
				break
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
