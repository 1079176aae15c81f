package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jmespath/go-jmespath"
)

// applyQuery runs a JMESPath expression over v's JSON form.
func applyQuery(v any, expr string) (any, error) {
	if expr == "" {
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}

	jp, err := jmespath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", expr, err)
	}
	return jp.Search(data)
}

// printJSON writes v as indented JSON, filtered through the --query flag.
// A query that yields a plain string prints it raw.
func (a *app) printJSON(v any) error {
	return writeJSON(a.out, v, a.query)
}

func writeJSON(w io.Writer, v any, query string) error {
	result, err := applyQuery(v, query)
	if err != nil {
		return err
	}
	if s, ok := result.(string); ok && query != "" {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
