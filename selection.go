package instrument

import (
	"reflect"
	"runtime"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// constructorName is the conventional Go constructor. A member with this name
// is never wrapped.
const constructorName = "New"

// Member describes one member of a class, computed once at wrap time.
type Member struct {
	Name string

	// Static marks class-level functions from ClassDef.Statics.
	Static bool

	// Inherited marks methods promoted from an embedded field.
	Inherited bool

	// Level is the embedding depth of the declaring type: 0 for members of
	// the class itself, 1 for methods of a directly embedded type, and so on.
	Level int

	// Accessor marks the X/SetX getter and setter pairs.
	Accessor bool
}

// Selector decides which members of a class are wrapped.
type Selector struct {
	IncludeInherited bool
	IncludePrivate   bool
	IncludeAccessors bool

	// Names, when non-nil, is the explicit set of names to wrap.
	Names map[string]struct{}

	// Filter, when non-nil, must accept a name for it to be wrapped.
	Filter func(name string) bool
}

// Eligible applies the selection rules to a member name, in order: the
// constructor is never eligible, inherited members need IncludeInherited,
// private members need IncludePrivate, and configured name sets and filters
// must accept the name.
func (s Selector) Eligible(name string, inherited bool) bool {
	if name == constructorName {
		return false
	}
	if inherited && !s.IncludeInherited {
		return false
	}
	if isPrivate(name) && !s.IncludePrivate {
		return false
	}
	if s.Names != nil {
		if _, ok := s.Names[name]; !ok {
			return false
		}
	}
	if s.Filter != nil && !s.Filter(name) {
		return false
	}
	return true
}

// Select is Eligible extended to accessors, which are only wrapped with
// IncludeAccessors.
func (s Selector) Select(m Member) bool {
	if m.Accessor && !s.IncludeAccessors {
		return false
	}
	return s.Eligible(m.Name, m.Inherited && !m.Static)
}

// isPrivate reports names starting with an underscore or a lower-case letter.
func isPrivate(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return r == '_' || unicode.IsLower(r)
}

// Members lists the instance methods of t (in the method set of *t) followed
// by the statics, each group sorted by name.
func Members(t reflect.Type, statics map[string]any) []Member {
	pt := reflect.PointerTo(t)
	methods := make(map[string]reflect.Method, pt.NumMethod())
	for i := range pt.NumMethod() {
		m := pt.Method(i)
		methods[m.Name] = m
	}
	accessor := accessors(methods)

	members := make([]Member, 0, len(methods)+len(statics))
	for i := range pt.NumMethod() {
		name := pt.Method(i).Name
		level := declaringLevel(t, name)
		inherited := level > 0 && promoted(t, name)
		if !inherited {
			level = 0
		}
		members = append(members, Member{
			Name:      name,
			Inherited: inherited,
			Level:     level,
			Accessor:  accessor[name],
		})
	}

	names := make([]string, 0, len(statics))
	for name, v := range statics {
		if v != nil && reflect.TypeOf(v).Kind() == reflect.Func {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		members = append(members, Member{Name: name, Static: true})
	}
	return members
}

// accessors finds X/SetX pairs where X takes no arguments and returns one
// value, and SetX takes one argument and returns nothing or an error.
func accessors(methods map[string]reflect.Method) map[string]bool {
	out := make(map[string]bool)
	for name, setter := range methods {
		field, ok := strings.CutPrefix(name, "Set")
		if !ok || field == "" {
			continue
		}
		getter, ok := methods[field]
		if !ok {
			continue
		}
		// method types from a Type include the receiver
		gt, st := getter.Type, setter.Type
		isGetter := gt.NumIn() == 1 && gt.NumOut() == 1
		isSetter := st.NumIn() == 2 && (st.NumOut() == 0 || (st.NumOut() == 1 && st.Out(0) == errorType))
		if isGetter && isSetter {
			out[name] = true
			out[field] = true
		}
	}
	return out
}

// promoted reports whether the method name of t is compiler generated, which
// is the case for methods promoted from embedded fields. Methods declared on t
// point at their own source.
func promoted(t reflect.Type, name string) bool {
	if m, ok := t.MethodByName(name); ok {
		return autogenerated(m.Func)
	}
	if m, ok := reflect.PointerTo(t).MethodByName(name); ok {
		return autogenerated(m.Func)
	}
	return false
}

func autogenerated(fn reflect.Value) bool {
	if !fn.IsValid() {
		return false
	}
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return false
	}
	file, _ := f.FileLine(f.Entry())
	return file == "<autogenerated>"
}

// declaringLevel walks the embedded fields of t breadth first and returns the
// depth of the shallowest type declaring name, or 0 when no embedded type has
// such a method.
func declaringLevel(t reflect.Type, name string) int {
	if t.Kind() != reflect.Struct {
		return 0
	}
	seen := map[reflect.Type]bool{t: true}
	current := []reflect.Type{t}
	for depth := 1; len(current) > 0; depth++ {
		var next []reflect.Type
		for _, ct := range current {
			for i := range ct.NumField() {
				f := ct.Field(i)
				if !f.Anonymous {
					continue
				}
				base := f.Type
				if base.Kind() == reflect.Pointer {
					base = base.Elem()
				}
				if seen[base] {
					continue
				}
				seen[base] = true
				if declares(base, name) {
					return depth
				}
				if base.Kind() == reflect.Struct {
					next = append(next, base)
				}
			}
		}
		current = next
	}
	return 0
}

// declares reports whether t has its own method name, as opposed to one
// promoted from deeper down.
func declares(t reflect.Type, name string) bool {
	if t.Kind() == reflect.Interface {
		_, ok := t.MethodByName(name)
		return ok
	}
	if _, ok := reflect.PointerTo(t).MethodByName(name); !ok {
		return false
	}
	if t.Kind() != reflect.Struct {
		return true
	}
	return !promoted(t, name) || declaringLevel(t, name) == 0
}
