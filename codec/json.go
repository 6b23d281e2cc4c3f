package codec

import (
	"bytes"
	"encoding/json"
	"strings"
)

// JSONMessageCodec encodes messages as UTF-8 JSON text.
type JSONMessageCodec struct{}

// JSONMethodCodec layers the method-call envelope over JSON: calls are
// {"method": ..., "args": ...} objects, success replies are single-element
// arrays, error replies are [code, message, details] arrays and
// not-implemented is a zero-length buffer.
type JSONMethodCodec struct{}

var (
	JSONMessage = JSONMessageCodec{}
	JSONMethod  = JSONMethodCodec{}
)

// EncodeMessage implements MessageCodec.
func (JSONMessageCodec) EncodeMessage(value Value) ([]byte, error) {
	raw, err := valueToJSON(value)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, NewUnsupportedTypeError("value is not JSON-representable: %v", err)
	}
	return data, nil
}

// DecodeMessage implements MessageCodec.
func (JSONMessageCodec) DecodeMessage(data []byte) (Value, error) {
	raw, err := parseJSON(data)
	if err != nil {
		return Value{}, err
	}
	return jsonToValue(raw), nil
}

// EncodeMethodCall implements MethodCodec.
func (JSONMethodCodec) EncodeMethodCall(call MethodCall) ([]byte, error) {
	args, err := valueToJSON(call.Arguments)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(map[string]interface{}{
		"method": call.Method,
		"args":   args,
	})
	if err != nil {
		return nil, NewUnsupportedTypeError("call is not JSON-representable: %v", err)
	}
	return data, nil
}

// DecodeMethodCall implements MethodCodec.
func (JSONMethodCodec) DecodeMethodCall(data []byte) (MethodCall, error) {
	raw, err := parseJSON(data)
	if err != nil {
		return MethodCall{}, err
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return MethodCall{}, NewMalformedError("method call must be a JSON object")
	}
	method, ok := obj["method"].(string)
	if !ok {
		return MethodCall{}, NewMalformedError("method call is missing a string \"method\" field")
	}
	return MethodCall{Method: method, Arguments: jsonToValue(obj["args"])}, nil
}

// EncodeSuccessEnvelope implements MethodCodec.
func (JSONMethodCodec) EncodeSuccessEnvelope(result Value) ([]byte, error) {
	raw, err := valueToJSON(result)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal([]interface{}{raw})
	if err != nil {
		return nil, NewUnsupportedTypeError("result is not JSON-representable: %v", err)
	}
	return data, nil
}

// EncodeErrorEnvelope implements MethodCodec.
func (JSONMethodCodec) EncodeErrorEnvelope(code, message string, details Value) ([]byte, error) {
	rawDetails, err := valueToJSON(details)
	if err != nil {
		return nil, err
	}
	var rawMessage interface{}
	if message != "" {
		rawMessage = message
	}
	data, err := json.Marshal([]interface{}{code, rawMessage, rawDetails})
	if err != nil {
		return nil, NewUnsupportedTypeError("error details are not JSON-representable: %v", err)
	}
	return data, nil
}

// DecodeEnvelope implements MethodCodec.
func (JSONMethodCodec) DecodeEnvelope(data []byte) (MethodResult, error) {
	if len(data) == 0 {
		return NotImplemented(), nil
	}
	raw, err := parseJSON(data)
	if err != nil {
		return MethodResult{}, err
	}
	arr, ok := raw.([]interface{})
	if !ok {
		return MethodResult{}, NewMalformedError("reply envelope must be a JSON array")
	}
	switch len(arr) {
	case 1:
		return Success(jsonToValue(arr[0])), nil
	case 3:
		code, ok := arr[0].(string)
		if !ok {
			return MethodResult{}, NewMalformedError("error code must be a string")
		}
		message := ""
		if arr[1] != nil {
			if message, ok = arr[1].(string); !ok {
				return MethodResult{}, NewMalformedError("error message must be a string or null")
			}
		}
		return ErrorResult(code, message, jsonToValue(arr[2])), nil
	default:
		return MethodResult{}, NewMalformedError("reply envelope has %d elements, want 1 or 3", len(arr))
	}
}

// FromAny converts a Go value into a Value. Primitives, byte slices, []Value,
// []interface{} and map[string]interface{} convert directly; anything else
// goes through its JSON representation, which covers tagged structs.
func FromAny(v interface{}) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int64(int64(t)), nil
	case int32:
		return Int32(t), nil
	case int64:
		return Int64(t), nil
	case float64:
		return Float64(t), nil
	case string:
		return String(t), nil
	case []byte:
		return ByteList(t), nil
	case []int32:
		return Int32List(t), nil
	case []int64:
		return Int64List(t), nil
	case []float64:
		return Float64List(t), nil
	case []Value:
		return List(t...), nil
	case []interface{}:
		items := make([]Value, len(t))
		for i, e := range t {
			item, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			items[i] = item
		}
		return List(items...), nil
	case map[string]interface{}:
		pairs := make([]Pair, 0, len(t))
		for k, e := range t {
			item, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			pairs = append(pairs, Pair{Key: String(k), Value: item})
		}
		return Map(pairs...), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return Value{}, NewUnsupportedTypeError("cannot represent %T as a value: %v", v, err)
		}
		return JSONMessage.DecodeMessage(data)
	}
}

// UnmarshalInto decodes a Value into target through its JSON representation.
// Handlers use it to map method arguments onto tagged structs.
func UnmarshalInto(v Value, target interface{}) error {
	data, err := JSONMessage.EncodeMessage(v)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return NewMalformedError("cannot unmarshal value: %v", err)
	}
	return nil
}

// parseJSON parses a whole buffer, preserving number text so integers
// survive the trip. Trailing content is malformed.
func parseJSON(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, NewMalformedError("invalid JSON payload: %v", err)
	}
	if dec.More() {
		return nil, NewMalformedError("trailing content after JSON payload")
	}
	return raw, nil
}

func jsonToValue(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			if i, err := t.Int64(); err == nil {
				return Int64(i)
			}
			return BigInt(t.String())
		}
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Float64(f)
	case float64:
		return Float64(t)
	case string:
		return String(t)
	case []interface{}:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = jsonToValue(e)
		}
		return List(items...)
	case map[string]interface{}:
		pairs := make([]Pair, 0, len(t))
		for k, e := range t {
			pairs = append(pairs, Pair{Key: String(k), Value: jsonToValue(e)})
		}
		return Map(pairs...)
	default:
		return Null()
	}
}

func valueToJSON(v Value) (interface{}, error) {
	switch v.Kind() {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.Bool(), nil
	case KindInt32:
		return v.Int32(), nil
	case KindInt64:
		return v.Int64(), nil
	case KindBigInt:
		digits := v.String()
		if !isDecimalInteger(digits) {
			return nil, NewUnsupportedTypeError("big integer %q is not a decimal number", digits)
		}
		return json.Number(digits), nil
	case KindFloat64:
		return v.Float64(), nil
	case KindString:
		return v.String(), nil
	case KindByteList:
		items := make([]interface{}, len(v.ByteList()))
		for i, b := range v.ByteList() {
			items[i] = int(b)
		}
		return items, nil
	case KindInt32List:
		items := make([]interface{}, len(v.Int32List()))
		for i, e := range v.Int32List() {
			items[i] = e
		}
		return items, nil
	case KindInt64List:
		items := make([]interface{}, len(v.Int64List()))
		for i, e := range v.Int64List() {
			items[i] = e
		}
		return items, nil
	case KindFloat64List:
		items := make([]interface{}, len(v.Float64List()))
		for i, e := range v.Float64List() {
			items[i] = e
		}
		return items, nil
	case KindList:
		items := make([]interface{}, len(v.List()))
		for i, e := range v.List() {
			raw, err := valueToJSON(e)
			if err != nil {
				return nil, err
			}
			items[i] = raw
		}
		return items, nil
	case KindMap:
		obj := make(map[string]interface{}, len(v.Pairs()))
		for _, p := range v.Pairs() {
			if p.Key.Kind() != KindString {
				return nil, NewUnsupportedTypeError("JSON map keys must be strings, got %s", p.Key.Kind())
			}
			raw, err := valueToJSON(p.Value)
			if err != nil {
				return nil, err
			}
			obj[p.Key.String()] = raw
		}
		return obj, nil
	default:
		return nil, NewUnsupportedTypeError("cannot represent kind %s as JSON", v.Kind())
	}
}

func isDecimalInteger(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
