package command

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/world"
)

// paramReader pulls typed values out of an envelope's string params and
// collects every problem instead of stopping at the first.
type paramReader struct {
	kind   engine.Kind
	params map[string]string
	used   map[string]bool
	errs   []error
}

func newParamReader(kind engine.Kind, params map[string]string) *paramReader {
	return &paramReader{kind: kind, params: params, used: make(map[string]bool)}
}

func (r *paramReader) fail(name, format string, args ...any) {
	r.errs = append(r.errs, fmt.Errorf("%s: param %q: %s: %w", r.kind, name, fmt.Sprintf(format, args...), ErrBadParam))
}

func (r *paramReader) lookup(name string, required bool) (string, bool) {
	r.used[name] = true
	v, ok := r.params[name]
	if !ok && required {
		r.fail(name, "missing")
	}
	return v, ok
}

func (r *paramReader) str(name string) string {
	v, _ := r.lookup(name, true)
	return v
}

func (r *paramReader) optStr(name, def string) string {
	if v, ok := r.lookup(name, false); ok {
		return v
	}
	return def
}

func (r *paramReader) intValue(name string, v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(name, "not an integer: %q", v)
	}
	return n
}

func (r *paramReader) int(name string) int {
	v, ok := r.lookup(name, true)
	if !ok {
		return 0
	}
	return r.intValue(name, v)
}

func (r *paramReader) optInt(name string, def int) int {
	v, ok := r.lookup(name, false)
	if !ok {
		return def
	}
	return r.intValue(name, v)
}

func (r *paramReader) id(name string) uint64 {
	v, ok := r.lookup(name, true)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		r.fail(name, "not an id: %q", v)
	}
	return n
}

func (r *paramReader) optID(name string, def uint64) uint64 {
	if _, ok := r.params[name]; !ok {
		r.used[name] = true
		return def
	}
	return r.id(name)
}

func (r *paramReader) optFloat(name string, def float64) float64 {
	v, ok := r.lookup(name, false)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(name, "not a number: %q", v)
	}
	return f
}

func (r *paramReader) coord() world.Coord {
	return world.Coord{X: r.int("x"), Y: r.int("y")}
}

// check records a failure for name unless ok holds.
func (r *paramReader) check(ok bool, name, format string, args ...any) {
	if !ok {
		r.fail(name, format, args...)
	}
}

// wrap records err, if any, against name.
func (r *paramReader) wrap(name string, err error) {
	if err != nil {
		r.fail(name, "%v", err)
	}
}

// err reports every problem found, including params nobody asked for.
func (r *paramReader) err() error {
	var extra []string
	for name := range r.params {
		if !r.used[name] {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	for _, name := range extra {
		r.fail(name, "not a parameter of %s", r.kind)
	}
	return errors.Join(r.errs...)
}

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
