package schema

// Plain is the trivial schema for unstructured string members. Members
// pass through untouched: every string is valid, already canonical, and
// already current, so there is nothing to stamp, validate, or upgrade.
type Plain struct {
	name string
}

func NewPlain(name string) Plain {
	return Plain{name: name}
}

func (p Plain) Type() string {
	return p.name
}

func (p Plain) Encode(member string) (string, error) {
	return member, nil
}

func (p Plain) Decode(raw string) (string, error) {
	return raw, nil
}
