package matchmaker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Default party size bounds.
const (
	DefaultMinCount = 2
	DefaultMaxCount = 100
)

// Errors
var (
	ErrDuplicateProperty = errors.New("matchmaker property already registered")
	ErrNoPredicate       = errors.New("query item has no predicate")
)

// Spec is the compiled matchmaking request consumed by the realtime
// matchmaker add operations.
type Spec struct {
	Query             string
	StringProperties  map[string]string
	NumericProperties map[string]float64
	MinCount          int
	MaxCount          int
}

// Matchmaker accumulates properties and query clauses for one ticket.
type Matchmaker struct {
	minCount          int
	maxCount          int
	stringProperties  map[string]string
	numericProperties map[string]float64
	query             strings.Builder
}

// New returns a builder with the default party size bounds.
func New() *Matchmaker {
	return &Matchmaker{
		minCount:          DefaultMinCount,
		maxCount:          DefaultMaxCount,
		stringProperties:  make(map[string]string),
		numericProperties: make(map[string]float64),
	}
}

// Min sets the minimum party size.
func (m *Matchmaker) Min(n int) *Matchmaker {
	m.minCount = n
	return m
}

// Max sets the maximum party size.
func (m *Matchmaker) Max(n int) *Matchmaker {
	m.maxCount = n
	return m
}

// HasProperty reports whether name is registered as either property type.
func (m *Matchmaker) HasProperty(name string) bool {
	_, str := m.stringProperties[name]
	_, num := m.numericProperties[name]
	return str || num
}

// AddStringProperty registers a string property. Registering a name that
// already exists under either type is a programming error and panics.
func (m *Matchmaker) AddStringProperty(name, value string) *Matchmaker {
	if m.HasProperty(name) {
		panic(fmt.Errorf("%w: %q", ErrDuplicateProperty, name))
	}
	m.stringProperties[name] = value
	return m
}

// AddNumericProperty registers a numeric property. Registering a name that
// already exists under either type is a programming error and panics.
func (m *Matchmaker) AddNumericProperty(name string, value float64) *Matchmaker {
	if m.HasProperty(name) {
		panic(fmt.Errorf("%w: %q", ErrDuplicateProperty, name))
	}
	m.numericProperties[name] = value
	return m
}

// AddQuery appends an already compiled clause.
func (m *Matchmaker) AddQuery(clause string) *Matchmaker {
	if m.query.Len() > 0 {
		m.query.WriteByte(' ')
	}
	m.query.WriteString(clause)
	return m
}

// Add compiles item and appends it to the query.
func (m *Matchmaker) Add(item *QueryItem) error {
	clause, err := item.Build()
	if err != nil {
		return err
	}
	m.AddQuery(clause)
	return nil
}

// Query returns the accumulated query string.
func (m *Matchmaker) Query() string {
	return m.query.String()
}

// Spec returns a snapshot of the builder state.
func (m *Matchmaker) Spec() Spec {
	strs := make(map[string]string, len(m.stringProperties))
	for k, v := range m.stringProperties {
		strs[k] = v
	}
	nums := make(map[string]float64, len(m.numericProperties))
	for k, v := range m.numericProperties {
		nums[k] = v
	}

	return Spec{
		Query:             m.query.String(),
		StringProperties:  strs,
		NumericProperties: nums,
		MinCount:          m.minCount,
		MaxCount:          m.maxCount,
	}
}

// StringPropertiesJSON renders the string properties as a JSON object with
// sorted keys.
func (m *Matchmaker) StringPropertiesJSON() string {
	data, _ := json.Marshal(m.stringProperties)
	return string(data)
}

// NumericPropertiesJSON renders the numeric properties as a JSON object with
// sorted keys.
func (m *Matchmaker) NumericPropertiesJSON() string {
	data, _ := json.Marshal(m.numericProperties)
	return string(data)
}

type modifier int

const (
	optional modifier = iota
	required
	excluded
)

type predicate struct {
	set   bool
	op    string // "" for term, otherwise >, >=, <, <=
	term  string
	value int
}

// QueryItem builds a single query clause against one property.
type QueryItem struct {
	property string
	pred     predicate
	mod      modifier
	boost    int
}

// NewQueryItem starts a clause on property. Exactly one predicate must be
// set before Build; setting another replaces it.
func NewQueryItem(property string) *QueryItem {
	return &QueryItem{property: property}
}

// Term matches the property against a literal value.
func (q *QueryItem) Term(term string) *QueryItem {
	q.pred = predicate{set: true, term: term}
	return q
}

func (q *QueryItem) Gt(v int) *QueryItem  { return q.rng(">", v) }
func (q *QueryItem) Gte(v int) *QueryItem { return q.rng(">=", v) }
func (q *QueryItem) Lt(v int) *QueryItem  { return q.rng("<", v) }
func (q *QueryItem) Lte(v int) *QueryItem { return q.rng("<=", v) }

func (q *QueryItem) rng(op string, v int) *QueryItem {
	q.pred = predicate{set: true, op: op, value: v}
	return q
}

// Required marks the clause as mandatory (+).
func (q *QueryItem) Required() *QueryItem {
	q.mod = required
	return q
}

// Excluded marks the clause as forbidden (-).
func (q *QueryItem) Excluded() *QueryItem {
	q.mod = excluded
	return q
}

// Optional clears any modifier.
func (q *QueryItem) Optional() *QueryItem {
	q.mod = optional
	return q
}

// Boost weights the clause; zero means no boost.
func (q *QueryItem) Boost(n int) *QueryItem {
	q.boost = n
	return q
}

// Build renders the clause as {modifier}properties.{name}:{predicate}{^boost}.
func (q *QueryItem) Build() (string, error) {
	if !q.pred.set {
		return "", fmt.Errorf("%w: %q", ErrNoPredicate, q.property)
	}

	var b strings.Builder
	switch q.mod {
	case required:
		b.WriteByte('+')
	case excluded:
		b.WriteByte('-')
	}

	b.WriteString("properties.")
	b.WriteString(q.property)
	b.WriteByte(':')

	if q.pred.op == "" {
		if strings.ContainsAny(q.pred.term, " \t\n") {
			b.WriteString(strconv.Quote(q.pred.term))
		} else {
			b.WriteString(q.pred.term)
		}
	} else {
		b.WriteString(q.pred.op)
		b.WriteString(strconv.Itoa(q.pred.value))
	}

	if q.boost != 0 {
		b.WriteByte('^')
		b.WriteString(strconv.Itoa(q.boost))
	}

	return b.String(), nil
}
