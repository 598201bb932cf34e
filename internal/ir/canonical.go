package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 style canonical JSON for hashing.
// CRITICAL: This is the ONLY serialization that should be used for
// content-addressed identity computation.
//
// Key differences from standard json.Marshal:
// 1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
// 2. No HTML escaping (< > & are NOT escaped)
// 3. Strings are NFC normalized
// 4. No floats (returns error); format them as strings first
// 5. No null (returns error)
func MarshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(val)
	case int64:
		return []byte(strconv.FormatInt(val, 10)), nil
	case int:
		return []byte(strconv.Itoa(val)), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case []any:
		return marshalCanonicalArray(val)
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return marshalCanonicalArray(arr)
	case []int:
		arr := make([]any, len(val))
		for i, n := range val {
			arr[i] = n
		}
		return marshalCanonicalArray(arr)
	case map[string]any:
		return marshalCanonicalObject(val)
	case float64, float32:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString produces a canonical JSON string with NFC
// normalization and no HTML escaping.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // CRITICAL: <, >, & must NOT be escaped
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds trailing newline, remove it
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	// RFC 8785 orders keys by UTF-16 code units.
	slices.SortFunc(keys, func(a, b string) int {
		return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CanonicalForm returns a float-free, map-based description of g suitable
// for MarshalCanonical. Node order is insertion order; nested blocks are
// described recursively.
func CanonicalForm(g *Graph) map[string]any {
	nodes := make([]any, 0, g.Len())
	for _, n := range g.nodes {
		nodes = append(nodes, canonicalNode(n))
	}
	return map[string]any{
		"name":   g.Name,
		"unit":   g.Unit,
		"qubits": g.qubits,
		"clbits": g.clbits,
		"nodes":  nodes,
	}
}

func canonicalNode(n *Node) map[string]any {
	m := map[string]any{
		"kind":   n.Kind.String(),
		"name":   n.Name,
		"qubits": n.Qubits,
		"clbits": n.Clbits,
	}
	if len(n.Params) > 0 {
		m["params"] = FormatParams(n.Params)
	}
	if n.Condition != nil {
		m["condition"] = map[string]any{
			"clbits": n.Condition.Clbits,
			"value":  n.Condition.Value,
		}
	}
	if n.Duration != nil {
		m["duration"] = n.Duration.String()
	}
	if len(n.Blocks) > 0 {
		blocks := make([]any, len(n.Blocks))
		for i, b := range n.Blocks {
			blocks[i] = CanonicalForm(b)
		}
		m["blocks"] = blocks
	}
	return m
}

// WireSequences describes g as the ordered instruction sequence on every
// wire. Two graphs with equal wire sequences are the same circuit regardless
// of the interleaving of independent instructions. Multi-wire instructions
// carry an occurrence counter so their alignment across wires is compared
// too.
func WireSequences(g *Graph) map[string][]string {
	out := make(map[string][]string)
	seen := map[string]int{}
	label := make([]string, g.Len())
	for _, n := range g.nodes {
		s := n.String()
		if len(n.Blocks) > 0 {
			for i, b := range n.Blocks {
				s += fmt.Sprintf(" {%d:%v}", i, WireSequences(b))
			}
		}
		if len(n.Wires()) > 1 {
			seen[s]++
			s = fmt.Sprintf("%s #%d", s, seen[s])
		}
		label[n.ID] = s
	}
	for w, ops := range g.wires {
		if w.Class == Classical {
			continue
		}
		seq := make([]string, len(ops))
		for i, id := range ops {
			seq[i] = label[id]
		}
		out[w.String()] = seq
	}
	for _, q := range g.qubits {
		if _, ok := out[QubitWire(q).String()]; !ok {
			out[QubitWire(q).String()] = []string{}
		}
	}
	return out
}
