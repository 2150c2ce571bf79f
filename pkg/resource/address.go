package resource

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// Scheme is the URI scheme of every address.
	Scheme = "content"

	// Authority identifies this store.
	Authority = "com.hashicorp.recipebox"
)

// ErrInvalidAddress is returned for input that does not match the scheme.
var ErrInvalidAddress = errors.New("invalid resource address")

// Address names a collection or a single row. The zero value is invalid.
type Address struct {
	kind Kind
	id   int64
}

// CollectionAddress returns the address of a whole collection.
func CollectionAddress(c Collection) Address {
	return Address{kind: c.DirKind()}
}

// ItemAddress returns the address of a single row.
func ItemAddress(c Collection, id int64) Address {
	return Address{kind: c.ItemKind(), id: id}
}

// Parse classifies a raw address string.
func Parse(raw string) (Address, error) {
	if raw == "" {
		return Address{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if u.Scheme != Scheme {
		return Address{}, fmt.Errorf("%w: scheme %q", ErrInvalidAddress, u.Scheme)
	}
	if u.Host != Authority {
		return Address{}, fmt.Errorf("%w: authority %q", ErrInvalidAddress, u.Host)
	}
	if u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return Address{}, fmt.Errorf("%w: unexpected query or fragment", ErrInvalidAddress)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 || len(segments) > 2 || segments[0] == "" {
		return Address{}, fmt.Errorf("%w: path %q", ErrInvalidAddress, u.Path)
	}

	c, err := ParseCollection(segments[0])
	if err != nil {
		return Address{}, err
	}
	if len(segments) == 1 {
		return CollectionAddress(c), nil
	}

	// Only canonical decimal ids, so that Parse(s).String() == s.
	id, err := strconv.ParseInt(segments[1], 10, 64)
	if err != nil || id <= 0 || strconv.FormatInt(id, 10) != segments[1] {
		return Address{}, fmt.Errorf("%w: id %q", ErrInvalidAddress, segments[1])
	}
	return ItemAddress(c, id), nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(raw string) Address {
	a, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return a
}

// Kind returns the address classification.
func (a Address) Kind() Kind {
	return a.kind
}

// Collection returns the table the address refers to.
func (a Address) Collection() Collection {
	return a.kind.Collection()
}

// ID returns the row id, or 0 for collection addresses.
func (a Address) ID() int64 {
	return a.id
}

// IsZero returns true for the zero Address.
func (a Address) IsZero() bool {
	return a.kind == KindUnknown
}

// IsCollection returns true if the address names a whole table.
func (a Address) IsCollection() bool {
	return a.kind.IsCollection()
}

// IsItem returns true if the address names a single row.
func (a Address) IsItem() bool {
	return a.kind.IsItem()
}

// ContentType returns the type descriptor of the address.
func (a Address) ContentType() string {
	return a.kind.ContentType()
}

// Parent returns the collection address for an item, or the address itself.
func (a Address) Parent() Address {
	if a.IsItem() {
		return CollectionAddress(a.Collection())
	}
	return a
}

// Contains reports whether other is a or lies beneath it.
func (a Address) Contains(other Address) bool {
	if a == other {
		return true
	}
	return a.IsCollection() && other.IsItem() && a.Collection() == other.Collection()
}

// String returns the canonical address.
func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	s := fmt.Sprintf("%s://%s/%s", Scheme, Authority, a.Collection())
	if a.IsItem() {
		s += "/" + strconv.FormatInt(a.id, 10)
	}
	return s
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
