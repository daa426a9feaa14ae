package policy

import (
	"encoding/json"
	"fmt"

	"rma-engine-be/internal/entity"
	"rma-engine-be/pkg/apperror"
)

// Subject is what a condition is evaluated against. For request-level rules it
// describes the whole RMA; for inspection rules it describes a single item.
type Subject struct {
	Reason     entity.ReturnReason
	Type       entity.RMAType
	Categories []string
	ItemCount  int
	TotalValue float64
}

// Condition is a compiled, typed rule.
type Condition interface {
	Matches(s Subject) bool
}

const (
	FieldReason     = "reason"
	FieldType       = "type"
	FieldCategory   = "category"
	FieldItemCount  = "item_count"
	FieldTotalValue = "total_value"

	OpEquals    = "equals"
	OpNotEquals = "not_equals"
	OpIn        = "in"
	OpNotIn     = "not_in"
	OpLT        = "lt"
	OpLTE       = "lte"
	OpGT        = "gt"
	OpGTE       = "gte"
)

type stringCondition struct {
	get    func(Subject) string
	op     string
	values map[string]struct{}
}

func (c stringCondition) Matches(s Subject) bool {
	_, found := c.values[c.get(s)]
	switch c.op {
	case OpEquals, OpIn:
		return found
	default:
		return !found
	}
}

type categoryCondition struct {
	negate bool
	values map[string]struct{}
}

func (c categoryCondition) Matches(s Subject) bool {
	hit := false
	for _, cat := range s.Categories {
		if _, ok := c.values[cat]; ok {
			hit = true
			break
		}
	}
	if c.negate {
		return !hit
	}
	return hit
}

type numberCondition struct {
	get   func(Subject) float64
	op    string
	value float64
}

func (c numberCondition) Matches(s Subject) bool {
	v := c.get(s)
	switch c.op {
	case OpEquals:
		return v == c.value
	case OpLT:
		return v < c.value
	case OpLTE:
		return v <= c.value
	case OpGT:
		return v > c.value
	default:
		return v >= c.value
	}
}

func invalid(c entity.PolicyCondition, format string, args ...interface{}) error {
	return apperror.ErrInvalidPolicy.With("condition %s %s: %s", c.Field, c.Operator, fmt.Sprintf(format, args...))
}

// Compile turns a stored condition into a typed one. Unknown fields, unsupported
// operators and mistyped values are rejected with INVALID_POLICY.
func Compile(c entity.PolicyCondition) (Condition, error) {
	switch c.Field {
	case FieldReason, FieldType:
		get := func(s Subject) string { return string(s.Reason) }
		if c.Field == FieldType {
			get = func(s Subject) string { return string(s.Type) }
		}
		values, err := stringValues(c)
		if err != nil {
			return nil, err
		}
		return stringCondition{get: get, op: c.Operator, values: values}, nil

	case FieldCategory:
		if c.Operator != OpIn && c.Operator != OpNotIn {
			return nil, invalid(c, "unsupported operator")
		}
		values, err := stringValues(c)
		if err != nil {
			return nil, err
		}
		return categoryCondition{negate: c.Operator == OpNotIn, values: values}, nil

	case FieldItemCount, FieldTotalValue:
		switch c.Operator {
		case OpEquals, OpLT, OpLTE, OpGT, OpGTE:
		default:
			return nil, invalid(c, "unsupported operator")
		}
		var v float64
		if err := json.Unmarshal(c.Value, &v); err != nil {
			return nil, invalid(c, "value must be a number")
		}
		get := func(s Subject) float64 { return float64(s.ItemCount) }
		if c.Field == FieldTotalValue {
			get = func(s Subject) float64 { return s.TotalValue }
		}
		return numberCondition{get: get, op: c.Operator, value: v}, nil
	}
	return nil, invalid(c, "unknown field")
}

func stringValues(c entity.PolicyCondition) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	switch c.Operator {
	case OpEquals, OpNotEquals:
		var v string
		if err := json.Unmarshal(c.Value, &v); err != nil {
			return nil, invalid(c, "value must be a string")
		}
		set[v] = struct{}{}
	case OpIn, OpNotIn:
		var vs []string
		if err := json.Unmarshal(c.Value, &vs); err != nil {
			return nil, invalid(c, "value must be a list of strings")
		}
		for _, v := range vs {
			set[v] = struct{}{}
		}
	default:
		return nil, invalid(c, "unsupported operator")
	}
	return set, nil
}

// CompileAll compiles every condition, failing on the first invalid one.
func CompileAll(conds []entity.PolicyCondition) ([]Condition, error) {
	out := make([]Condition, 0, len(conds))
	for _, c := range conds {
		compiled, err := Compile(c)
		if err != nil {
			return nil, err
		}
		out = append(out, compiled)
	}
	return out, nil
}

// MatchAll reports whether every condition matches. An empty list matches.
func MatchAll(conds []Condition, s Subject) bool {
	for _, c := range conds {
		if !c.Matches(s) {
			return false
		}
	}
	return true
}

// NewCondition builds the stored form of a condition with a JSON-encoded value.
func NewCondition(field, operator string, value interface{}) entity.PolicyCondition {
	raw, _ := json.Marshal(value)
	return entity.PolicyCondition{Field: field, Operator: operator, Value: raw}
}

// RequestSubject describes a whole RMA for request-level rules.
func RequestSubject(rmaType entity.RMAType, reason entity.ReturnReason, items []entity.RMAItem) Subject {
	s := Subject{Reason: reason, Type: rmaType, ItemCount: len(items)}
	for _, it := range items {
		if it.Category != "" {
			s.Categories = append(s.Categories, it.Category)
		}
		s.TotalValue += it.Price * float64(it.Quantity)
	}
	return s
}

// ItemSubject describes one line for inspection rules.
func ItemSubject(rma *entity.RMA, item *entity.RMAItem) Subject {
	reason := item.Reason
	if reason == "" {
		reason = rma.Reason
	}
	s := Subject{
		Reason:     reason,
		Type:       rma.Type,
		ItemCount:  item.Quantity,
		TotalValue: item.Price * float64(item.Quantity),
	}
	if item.Category != "" {
		s.Categories = []string{item.Category}
	}
	return s
}
