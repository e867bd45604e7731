package linearize

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Marker operations framing a block in the flat stream.
const (
	OpBlockStart = "block_start"
	OpBlockEnd   = "block_end"
)

// Field is one kind-specific field of a record. Value is a string, a
// []string (call args), an int (the block_start ID of a body) or nil (an
// absent body).
type Field struct {
	Key   string
	Value any
}

// Record is one entry of the flat stream. ParentStmtID is set only on
// block markers and names the statement owning the block.
type Record struct {
	Operation    string
	StmtID       int
	ParentStmtID int
	Fields       []Field
}

// IsMarker reports whether r is a block_start or block_end.
func (r Record) IsMarker() bool {
	return r.Operation == OpBlockStart || r.Operation == OpBlockEnd
}

// Field returns the value stored under key.
func (r Record) Field(key string) (any, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// StringField returns the string value stored under key, or "".
func (r Record) StringField(key string) string {
	v, _ := r.Field(key)
	s, _ := v.(string)
	return s
}

// Body returns the block_start ID a body field points at. ok is false
// when the field is missing or the body is absent.
func (r Record) Body(key string) (id int, ok bool) {
	v, _ := r.Field(key)
	id, ok = v.(int)
	return id, ok
}

// Bodies returns the block_start IDs of every present body, in field
// order.
func (r Record) Bodies() []int {
	var ids []int
	for _, f := range r.Fields {
		if id, ok := f.Value.(int); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Text renders r on one line: the ID, the operation, then key=value pairs.
func (r Record) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %s", r.StmtID, r.Operation)
	if r.IsMarker() {
		fmt.Fprintf(&sb, " parent_stmt_id=%d", r.ParentStmtID)
	}
	for _, f := range r.Fields {
		sb.WriteString(" " + f.Key + "=" + formatValue(f.Value))
	}
	return sb.String()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	case []string:
		return "[" + strings.Join(v, ", ") + "]"
	}
	return fmt.Sprintf("%v", v)
}

// MarshalYAML encodes r as a mapping whose keys keep stream order:
// operation, stmt_id, parent_stmt_id (markers only), then the fields.
func (r Record) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		node.Content = append(node.Content, strNode(key), value)
	}
	add("operation", strNode(r.Operation))
	add("stmt_id", intNode(r.StmtID))
	if r.IsMarker() {
		add("parent_stmt_id", intNode(r.ParentStmtID))
	}
	for _, f := range r.Fields {
		switch v := f.Value.(type) {
		case nil:
			add(f.Key, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"})
		case int:
			add(f.Key, intNode(v))
		case string:
			add(f.Key, strNode(v))
		case []string:
			seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
			for _, s := range v {
				seq.Content = append(seq.Content, strNode(s))
			}
			add(f.Key, seq)
		default:
			return nil, fmt.Errorf("record %d: field %s has unsupported value %T", r.StmtID, f.Key, f.Value)
		}
	}
	return node, nil
}

// UnmarshalYAML decodes the mapping written by MarshalYAML.
func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: record must be a mapping", node.Line)
	}
	*r = Record{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		switch key {
		case "operation":
			r.Operation = value.Value
		case "stmt_id":
			if err := value.Decode(&r.StmtID); err != nil {
				return err
			}
		case "parent_stmt_id":
			if err := value.Decode(&r.ParentStmtID); err != nil {
				return err
			}
		default:
			v, err := decodeValue(value)
			if err != nil {
				return fmt.Errorf("line %d: field %s: %w", value.Line, key, err)
			}
			r.Fields = append(r.Fields, Field{Key: key, Value: v})
		}
	}
	return nil
}

func decodeValue(n *yaml.Node) (any, error) {
	switch {
	case n.Kind == yaml.SequenceNode:
		args := []string{}
		for _, item := range n.Content {
			args = append(args, item.Value)
		}
		return args, nil
	case n.Kind != yaml.ScalarNode:
		return nil, fmt.Errorf("unexpected node kind %d", n.Kind)
	case n.ShortTag() == "!!null":
		return nil, nil
	case n.ShortTag() == "!!int":
		return strconv.Atoi(n.Value)
	}
	return n.Value, nil
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func intNode(i int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(i)}
}
