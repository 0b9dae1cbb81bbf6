package postconf

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// fakePostfix is an in-memory postconf: defaults for known parameters plus
// the explicit entries of main.cf.
type fakePostfix struct {
	defaults   map[string]string
	file       map[string]string
	order      []string
	brokenRead map[string]bool
	mutateErr  error
	searchErr  error

	calls     []string
	mutations int
}

func newFakePostfix(defaults map[string]string) *fakePostfix {
	return &fakePostfix{
		defaults:   defaults,
		file:       make(map[string]string),
		brokenRead: make(map[string]bool),
	}
}

func (f *fakePostfix) withEntry(name, value string) *fakePostfix {
	if _, ok := f.file[name]; !ok {
		f.order = append(f.order, name)
	}
	f.file[name] = value
	return f
}

func (f *fakePostfix) known(name string) bool {
	if _, ok := f.defaults[name]; ok {
		return true
	}
	_, ok := f.file[name]
	return ok
}

func (f *fakePostfix) Describe(_ context.Context, name string) error {
	f.calls = append(f.calls, "describe "+name)
	if !f.known(name) {
		return errors.New("postconf: warning: " + name + ": unknown parameter")
	}
	return nil
}

func (f *fakePostfix) Value(_ context.Context, name string) (string, error) {
	f.calls = append(f.calls, "value "+name)
	if f.brokenRead[name] {
		return "", errors.New("postconf: fatal: bad parameter value")
	}
	if v, ok := f.file[name]; ok {
		return strings.TrimSpace(v), nil
	}
	return f.defaults[name], nil
}

func (f *fakePostfix) Set(_ context.Context, name, value string) error {
	f.calls = append(f.calls, "set "+name+"="+value)
	f.mutations++
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.withEntry(name, value)
	return nil
}

func (f *fakePostfix) DeleteFromFile(_ context.Context, name string) error {
	f.calls = append(f.calls, "delete "+name)
	f.mutations++
	if f.mutateErr != nil {
		return f.mutateErr
	}
	delete(f.file, name)
	kept := f.order[:0]
	for _, n := range f.order {
		if n != name {
			kept = append(kept, n)
		}
	}
	f.order = kept
	return nil
}

func (f *fakePostfix) Match(_ context.Context, pattern, path string) (bool, error) {
	f.calls = append(f.calls, "match "+path)
	if f.searchErr != nil {
		return false, f.searchErr
	}
	re, err := regexp.Compile("(?m)" + pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(f.mainCF()), nil
}

func (f *fakePostfix) mainCF() string {
	var b strings.Builder
	b.WriteString("# main.cf\n")
	for _, name := range f.order {
		v := f.file[name]
		b.WriteString(name)
		b.WriteString(" =")
		if v != "" {
			b.WriteString(" ")
			b.WriteString(v)
		}
		b.WriteString("\n")
	}
	return b.String()
}
