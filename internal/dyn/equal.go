package dyn

// Equal reports structural equality. Map comparison ignores key order and
// a nil Value equals Null{}.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch av := a.(type) {
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, ae := range av {
			be, found := bv[k]
			if !found || !Equal(ae, be) {
				return false
			}
		}
		return true
	}
	return false
}

// Contains reports whether want is a structural subset of got: every key in
// a wanted map must be present and match, lists must match element-wise,
// scalars must be equal.
func Contains(got, want Value) bool {
	wm, ok := want.(Map)
	if !ok {
		wl, isList := want.(List)
		if !isList {
			return Equal(got, want)
		}
		gl, ok := got.(List)
		if !ok || len(gl) != len(wl) {
			return false
		}
		for i := range wl {
			if !Contains(gl[i], wl[i]) {
				return false
			}
		}
		return true
	}
	gm, ok := got.(Map)
	if !ok {
		return false
	}
	for k, we := range wm {
		ge, found := gm[k]
		if !found || !Contains(ge, we) {
			return false
		}
	}
	return true
}
