package sequence

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/lanrat/passcracker/alphabet"
)

// Unused marks a slot that is not part of the password.
const Unused = alphabet.Unused

// ErrCheckpointSyntax is returned when a checkpoint literal does not match
// the array-of-integers grammar.
var ErrCheckpointSyntax = errors.New("malformed checkpoint literal")

// checkpointPattern is the grammar of a serialized Value.
var checkpointPattern = regexp.MustCompile(`^\[ *((-?\d+, *)*(-?\d+))? *\]$`)

// Value is a candidate: a bijective numeral of fixed width. Slot 0 holds the
// least significant symbol index. Active slots come first, every slot after
// the first Unused one is Unused too.
type Value []int

// Len returns the number of active slots, which is the password length in
// symbols.
func (v Value) Len() int {
	return alphabet.ActiveLength(v)
}

// Clone returns an independent copy of v.
func (v Value) Clone() Value {
	if v == nil {
		return nil
	}
	out := make(Value, len(v))
	copy(out, v)
	return out
}

// Equal reports whether v and o hold the same active symbols.
func (v Value) Equal(o Value) bool {
	n := v.Len()
	if n != o.Len() {
		return false
	}
	for i := 0; i < n; i++ {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}

// Indices returns the active symbol indices in password order, that is most
// significant first.
func (v Value) Indices() []int {
	n := v.Len()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = v[n-1-i]
	}
	return out
}

// String serializes v as a checkpoint literal, e.g. "[0,1]" for the password
// "ab" over the alphabet {a,b}. Unused slots are omitted.
func (v Value) String() string {
	indices := v.Indices()
	parts := make([]string, len(indices))
	for i, d := range indices {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// MarshalText implements encoding.TextMarshaler using the checkpoint literal.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// FromIndices builds a Value of width maxLength from symbol indices listed in
// password order. Trailing Unused entries are dropped. Index ranges are not
// checked against any alphabet here; Sequence construction does that.
func FromIndices(indices []int, maxLength int) (Value, error) {
	n := alphabet.ActiveLength(indices)
	for i := n; i < len(indices); i++ {
		if indices[i] != Unused {
			return nil, fmt.Errorf("%w: index %d follows an unused entry", ErrStartValue, indices[i])
		}
	}
	if n > maxLength {
		return nil, fmt.Errorf("%w: %d symbols exceed maximum length %d", ErrStartValue, n, maxLength)
	}
	v := make(Value, maxLength)
	for i := range v {
		v[i] = Unused
	}
	for i := 0; i < n; i++ {
		if indices[i] < 0 {
			return nil, fmt.Errorf("%w: negative index %d", ErrStartValue, indices[i])
		}
		v[n-1-i] = indices[i]
	}
	return v, nil
}

// ParseValue parses a checkpoint literal such as "[3, 0, 12]" into a Value
// of width maxLength.
func ParseValue(literal string, maxLength int) (Value, error) {
	literal = strings.TrimSpace(literal)
	if !checkpointPattern.MatchString(literal) {
		return nil, fmt.Errorf("%w: %q", ErrCheckpointSyntax, literal)
	}

	body := strings.Trim(literal, "[] ")
	var indices []int
	if body != "" {
		for _, part := range strings.Split(body, ",") {
			d, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCheckpointSyntax, err)
			}
			indices = append(indices, d)
		}
	}
	return FromIndices(indices, maxLength)
}

// ReadStart resolves a start value option. The option is first tried as a
// checkpoint literal; failing that it is treated as the path of a file whose
// first line holds one.
func ReadStart(option string, maxLength int) (Value, error) {
	v, err := ParseValue(option, maxLength)
	if err == nil || !errors.Is(err, ErrCheckpointSyntax) {
		return v, err
	}

	f, ferr := os.Open(option)
	if ferr != nil {
		return nil, fmt.Errorf("start value %q is neither a checkpoint literal nor a readable file: %w", option, ferr)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading start value from %s: %w", option, err)
		}
		return nil, fmt.Errorf("%w: %s is empty", ErrCheckpointSyntax, option)
	}
	v, err = ParseValue(scanner.Text(), maxLength)
	if err != nil {
		return nil, fmt.Errorf("start value from %s: %w", option, err)
	}
	return v, nil
}
