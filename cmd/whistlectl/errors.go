package main

import (
	"fmt"
	"sort"
	"strings"

	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
)

// describe flattens field errors into one line for the terminal.
func describe(err error) error {
	appErr := appErrors.FromError(err)
	if len(appErr.Fields) == 0 {
		return err
	}
	keys := make([]string, 0, len(appErr.Fields))
	for k := range appErr.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + appErr.Fields[k]
	}
	return fmt.Errorf("%s (%s)", appErr.Message, strings.Join(parts, "; "))
}
