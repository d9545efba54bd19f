// Copyright 2025 Takhin Data, Inc.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// doRequest issues method against path on the configured server and decodes
// a JSON response body into out (when non-nil), returning an error for any
// non-2xx status.
func doRequest(method, path string, out any) error {
	req, err := http.NewRequest(method, serverAddr+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(body))
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// printJSON pretty-prints v to stdout.
func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", v)
		return
	}
	fmt.Println(string(b))
}
