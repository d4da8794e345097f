package modenv

import (
	"sort"

	"pyenv/moduledb"
)

// dependencyMap maps a ModuleName D to the non-empty set of
// ModuleNames that explicitly depend on D. A key is present only
// while its dependant set is non-empty: addDependent creates it lazily,
// removeName deletes it once empty.
type dependencyMap map[moduledb.ModuleName]map[moduledb.ModuleName]struct{}

func (m dependencyMap) addDependent(dep, dependant moduledb.ModuleName) {
	if m[dep] == nil {
		m[dep] = make(map[moduledb.ModuleName]struct{})
	}
	m[dep][dependant] = struct{}{}
}

// dependantsOf returns the sorted list of names that currently depend
// on name, or nil if none.
func (m dependencyMap) dependantsOf(name moduledb.ModuleName) []moduledb.ModuleName {
	set, ok := m[name]
	if !ok || len(set) == 0 {
		return nil
	}
	out := make([]moduledb.ModuleName, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m dependencyMap) okToUnload(name moduledb.ModuleName) bool {
	return len(m.dependantsOf(name)) == 0
}

// removeName deletes name from every dependant set it appears in,
// dropping the owning key once its set becomes empty. Collect-then-
// delete: this ranges the map once to find what to drop, then deletes,
// so it never mutates the map mid-range (a bug the build-order graph
// this is modeled on is careful to avoid).
func (m dependencyMap) removeName(name moduledb.ModuleName) {
	delete(m, name)

	var emptied []moduledb.ModuleName
	for dep, dependants := range m {
		if _, ok := dependants[name]; ok {
			delete(dependants, name)
			if len(dependants) == 0 {
				emptied = append(emptied, dep)
			}
		}
	}
	for _, dep := range emptied {
		delete(m, dep)
	}
}

func (m dependencyMap) clone() dependencyMap {
	out := make(dependencyMap, len(m))
	for dep, dependants := range m {
		set := make(map[moduledb.ModuleName]struct{}, len(dependants))
		for d := range dependants {
			set[d] = struct{}{}
		}
		out[dep] = set
	}
	return out
}

// loadedSet is the set of currently loaded ModuleNames. Membership is
// the source of truth for "is loaded"; insertion order is irrelevant.
type loadedSet map[moduledb.ModuleName]struct{}

func (s loadedSet) has(name moduledb.ModuleName) bool {
	_, ok := s[name]
	return ok
}

func (s loadedSet) sorted() []moduledb.ModuleName {
	out := make([]moduledb.ModuleName, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s loadedSet) clone() loadedSet {
	out := make(loadedSet, len(s))
	for name := range s {
		out[name] = struct{}{}
	}
	return out
}
