package capability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codenerd/internal/evaluator"
	"codenerd/internal/value"
)

// httpClient is shared across the bundle's functions (grounded on the
// teacher's OpenAIClient, which likewise holds one *http.Client with a
// configured timeout rather than building a fresh one per request).
var httpClient = &http.Client{Timeout: 30 * time.Second}

// HTTPBundle exposes http.get/post/put/delete as record-returning builtins:
// {status: Int, body: String}.
func HTTPBundle() *Bundle {
	return &Bundle{
		Name: "http",
		Funcs: map[string]evaluator.CapabilityFunc{
			"get":    httpGet,
			"post":   httpSend("POST"),
			"put":    httpSend("PUT"),
			"delete": httpSend("DELETE"),
		},
	}
}

func httpGet(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("http.get expects 1 argument (url), got %d", len(args))
	}
	url := args[0].String()
	resp, err := httpClient.Get(url)
	if err != nil {
		return value.Nil, fmt.Errorf("http.get: %w", err)
	}
	return responseToRecord(resp)
}

func httpSend(method string) evaluator.CapabilityFunc {
	return func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return value.Nil, fmt.Errorf("http.%s expects 2 arguments (url, body), got %d", method, len(args))
		}
		url := args[0].String()
		req, err := http.NewRequest(method, url, bytes.NewBufferString(args[1].String()))
		if err != nil {
			return value.Nil, fmt.Errorf("http.%s: %w", method, err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := httpClient.Do(req)
		if err != nil {
			return value.Nil, fmt.Errorf("http.%s: %w", method, err)
		}
		return responseToRecord(resp)
	}
}

func responseToRecord(resp *http.Response) (value.Value, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return value.Nil, fmt.Errorf("reading response body: %w", err)
	}
	return value.Record(map[string]value.Value{
		"status": value.Int(int64(resp.StatusCode)),
		"body":   value.String(string(body)),
	}), nil
}

// JSONBundle exposes json.stringify/parse over the value model. Function and
// Native values reject serialization (spec.md Testable Property 1).
func JSONBundle() *Bundle {
	return &Bundle{
		Name: "json",
		Funcs: map[string]evaluator.CapabilityFunc{
			"stringify": jsonStringify,
			"parse":     jsonParse,
		},
	}
}

func jsonStringify(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("json.stringify expects 1 argument, got %d", len(args))
	}
	native, err := toNative(args[0])
	if err != nil {
		return value.Nil, err
	}
	b, err := json.Marshal(native)
	if err != nil {
		return value.Nil, fmt.Errorf("json.stringify: %w", err)
	}
	return value.String(string(b)), nil
}

func jsonParse(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("json.parse expects 1 argument, got %d", len(args))
	}
	var decoded any
	if err := json.Unmarshal([]byte(args[0].String()), &decoded); err != nil {
		return value.Nil, fmt.Errorf("json.parse: %w", err)
	}
	return fromNative(decoded), nil
}

// toNative converts a Value into a plain Go value json.Marshal understands,
// rejecting Function and Native kinds since neither survives a round trip.
func toNative(v value.Value) (any, error) {
	switch v.Kind() {
	case value.KindNil:
		return nil, nil
	case value.KindInt:
		i, _ := v.Int()
		return i, nil
	case value.KindFloat:
		f, _ := v.Float()
		return f, nil
	case value.KindString:
		return v.String(), nil
	case value.KindBool:
		b, _ := v.Bool()
		return b, nil
	case value.KindList:
		items, _ := v.List()
		out := make([]any, len(items))
		for i, item := range items {
			n, err := toNative(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case value.KindRecord:
		out := map[string]any{}
		for _, name := range v.Fields() {
			f, _ := v.Field(name)
			n, err := toNative(f)
			if err != nil {
				return nil, err
			}
			out[name] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("json.stringify: %s values are not serializable", v.Kind())
	}
}

func fromNative(v any) value.Value {
	switch x := v.(type) {
	case nil:
		return value.Nil
	case bool:
		return value.Bool(x)
	case float64:
		if x == float64(int64(x)) {
			return value.Int(int64(x))
		}
		return value.Float(x)
	case string:
		return value.String(x)
	case []any:
		items := make([]value.Value, len(x))
		for i, el := range x {
			items[i] = fromNative(el)
		}
		return value.List(items)
	case map[string]any:
		fields := make(map[string]value.Value, len(x))
		for k, el := range x {
			fields[k] = fromNative(el)
		}
		return value.Record(fields)
	default:
		return value.Nil
	}
}
