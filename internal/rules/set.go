package rules

import "github.com/emirpasic/gods/sets/linkedhashset"

// stringSet keeps insertion order so canonical output is stable
type stringSet struct {
	set *linkedhashset.Set
}

func newStringSet(items ...string) *stringSet {
	s := &stringSet{set: linkedhashset.New()}
	s.Add(items...)
	return s
}

func (s *stringSet) Add(items ...string) {
	for _, item := range items {
		s.set.Add(item)
	}
}

func (s *stringSet) Remove(item string) {
	s.set.Remove(item)
}

func (s *stringSet) Contains(item string) bool {
	return s.set.Contains(item)
}

func (s *stringSet) Len() int {
	return s.set.Size()
}

func (s *stringSet) Clear() {
	s.set.Clear()
}

func (s *stringSet) Values() []string {
	values := s.set.Values()
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.(string))
	}
	return out
}
