package mcpserver

import (
	"strconv"
	"time"

	"github.com/DataDog/kafka-gateway/gateway"

	"github.com/pkg/errors"
)

// arguments are the decoded JSON arguments of a tool call.
type arguments map[string]interface{}

func invalidArg(name, format string, a ...interface{}) error {
	return errors.Wrapf(gateway.ErrInvalidRequest, "argument %s: "+format, append([]interface{}{name}, a...)...)
}

func (a arguments) has(name string) bool {
	v, ok := a[name]
	return ok && v != nil
}

func (a arguments) str(name string) (string, error) {
	if !a.has(name) {
		return "", nil
	}

	s, ok := a[name].(string)
	if !ok {
		return "", invalidArg(name, "must be a string")
	}

	return s, nil
}

func (a arguments) requiredStr(name string) (string, error) {
	if !a.has(name) {
		return "", invalidArg(name, "is required")
	}
	return a.str(name)
}

// integer accepts JSON numbers without a fractional part.
func (a arguments) integer(name string, def int) (int, error) {
	if !a.has(name) {
		return def, nil
	}

	switch v := a[name].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, invalidArg(name, "must be an integer")
		}
		return int(v), nil
	case int:
		return v, nil
	case string:
		// Some hosts send numbers as strings.
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, invalidArg(name, "must be an integer")
		}
		return n, nil
	default:
		return 0, invalidArg(name, "must be an integer")
	}
}

func (a arguments) boolean(name string, def bool) (bool, error) {
	if !a.has(name) {
		return def, nil
	}

	b, ok := a[name].(bool)
	if !ok {
		return false, invalidArg(name, "must be a boolean")
	}

	return b, nil
}

func (a arguments) strings(name string) ([]string, error) {
	if !a.has(name) {
		return nil, nil
	}

	switch v := a[name].(type) {
	case []string:
		return v, nil
	case []interface{}:
		var out = make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, invalidArg(name, "must be a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, invalidArg(name, "must be a list of strings")
	}
}

// configs decodes a config object. Kafka configs are strings on the wire;
// numbers and booleans are formatted as Kafka expects them.
func (a arguments) configs(name string) (map[string]string, error) {
	if !a.has(name) {
		return nil, nil
	}

	obj, ok := a[name].(map[string]interface{})
	if !ok {
		return nil, invalidArg(name, "must be an object of config names to values")
	}

	var out = make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			return nil, invalidArg(name, "value of %s must be a string, number or boolean", k)
		}
	}

	return out, nil
}

// timeout reads the optional timeout_ms argument.
func (a arguments) timeout() (time.Duration, error) {
	ms, err := a.integer(argTimeoutMs, 0)
	if err != nil {
		return 0, err
	}

	if ms < 0 {
		return 0, invalidArg(argTimeoutMs, "must be >= 0")
	}

	return time.Duration(ms) * time.Millisecond, nil
}
