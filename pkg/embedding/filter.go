package embedding

import "sort"

// FeatureFilter restricts batch data to a fixed set of feature names.
type FeatureFilter struct {
	names map[string]struct{}
}

func NewFeatureFilter(names ...string) FeatureFilter {
	f := FeatureFilter{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		f.names[name] = struct{}{}
	}
	return f
}

// Names returns the filtered names in ascending order.
func (f FeatureFilter) Names() []string {
	result := make([]string, 0, len(f.names))
	for name := range f.names {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

func (f FeatureFilter) Contains(name string) bool {
	_, ok := f.names[name]
	return ok
}

// Filter drops every input whose name is not configured.
func (f FeatureFilter) Filter(inputs map[string]Input) map[string]Input {
	result := make(map[string]Input, len(f.names))
	for name, input := range inputs {
		if f.Contains(name) {
			result[name] = input
		}
	}
	return result
}

// FilterSizes is Filter for input shapes.
func (f FeatureFilter) FilterSizes(sizes map[string]InputSize) map[string]InputSize {
	result := make(map[string]InputSize, len(f.names))
	for name, size := range sizes {
		if f.Contains(name) {
			result[name] = size
		}
	}
	return result
}
